// Package catalog is the read-only menu lookup used when building carts and
// bills. A Catalog value never changes after construction; availability
// updates produce a new snapshot.
package catalog

import (
	"fmt"
	"strings"

	"restaurant-pos/internal/domain"
)

// AllCategories matches every category in a Filter.
const AllCategories = "All"

type Filter struct {
	Category      string
	Search        string
	OnlyAvailable bool
}

type Catalog struct {
	items []domain.MenuItem
	index map[int]int
}

// New builds a snapshot preserving the order of items.
func New(items []domain.MenuItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]domain.MenuItem, 0, len(items)),
		index: make(map[int]int, len(items)),
	}
	for _, it := range items {
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("duplicate menu id %d: %w", it.ID, domain.ErrInvalidInput)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("menu id %d has negative price: %w", it.ID, domain.ErrInvalidInput)
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Lookup returns the item regardless of availability.
func (c *Catalog) Lookup(id int) (domain.MenuItem, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.MenuItem{}, fmt.Errorf("menu id %d: %w", id, domain.ErrItemNotFound)
	}
	return c.items[i], nil
}

func (c *Catalog) List(f Filter) []domain.MenuItem {
	search := strings.ToLower(f.Search)
	out := make([]domain.MenuItem, 0, len(c.items))
	for _, it := range c.items {
		if f.OnlyAvailable && !it.IsAvailable {
			continue
		}
		if f.Category != "" && f.Category != AllCategories && it.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(it.Name), search) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Categories returns "All" followed by the distinct categories in the order
// they first appear.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	out := []string{AllCategories}
	for _, it := range c.items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

// WithAvailability returns a copy of the catalog with one item's flag changed.
func (c *Catalog) WithAvailability(id int, available bool) (*Catalog, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("menu id %d: %w", id, domain.ErrItemNotFound)
	}
	items := make([]domain.MenuItem, len(c.items))
	copy(items, c.items)
	items[i].IsAvailable = available
	return &Catalog{items: items, index: c.index}, nil
}
