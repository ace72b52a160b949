package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/adapters/schema"
	"restaurant-pos/internal/core/catalog"
	"restaurant-pos/internal/domain"
)

// maxPrice is one past the largest price a NUMERIC(10,2) column holds.
var maxPrice = decimal.New(1, 8)

type MenuServiceInterface interface {
	List(f catalog.Filter) []domain.MenuItem
	Categories() []string
	SetAvailability(ctx context.Context, id int, available bool) (domain.MenuItem, error)
	Create(ctx context.Context, in MenuItemInput) (domain.MenuItem, error)
	Update(ctx context.Context, id int, in MenuItemInput) (domain.MenuItem, error)
	Delete(ctx context.Context, id int) error
	Import(ctx context.Context, payload []byte) (int, error)
	Refresh(ctx context.Context) (int, error)
}

// MenuItemInput is what the menu editor sends for a new or changed item.
type MenuItemInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	IsAvailable *bool
}

func (in MenuItemInput) item() (domain.MenuItem, error) {
	it := domain.MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		UnitPrice:   in.Price.Round(2),
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
	}
	if it.Name == "" || it.Category == "" {
		return domain.MenuItem{}, fmt.Errorf("menu item needs a name and a category: %w", domain.ErrInvalidInput)
	}
	if it.UnitPrice.IsNegative() || it.UnitPrice.GreaterThanOrEqual(maxPrice) {
		return domain.MenuItem{}, fmt.Errorf("price %s: %w", in.Price, domain.ErrInvalidInput)
	}
	return it, nil
}

// ItemUsage finds an open cart that still holds a menu item.
type ItemUsage interface {
	ItemInUse(ctx context.Context, itemID int) (domain.Source, bool, error)
}

type MenuService struct {
	holder *CatalogHolder
	usage  ItemUsage
}

func NewMenuService(h *CatalogHolder, usage ItemUsage) *MenuService {
	return &MenuService{holder: h, usage: usage}
}

func (m *MenuService) List(f catalog.Filter) []domain.MenuItem { return m.holder.Current().List(f) }

func (m *MenuService) Categories() []string { return m.holder.Current().Categories() }

func (m *MenuService) SetAvailability(ctx context.Context, id int, available bool) (domain.MenuItem, error) {
	return m.holder.SetAvailability(ctx, id, available)
}

func (m *MenuService) Create(ctx context.Context, in MenuItemInput) (domain.MenuItem, error) {
	it, err := in.item()
	if err != nil {
		return domain.MenuItem{}, err
	}
	return m.holder.Create(ctx, it)
}

// Update changes an item in place. Carts pick up the new price at checkout.
func (m *MenuService) Update(ctx context.Context, id int, in MenuItemInput) (domain.MenuItem, error) {
	it, err := in.item()
	if err != nil {
		return domain.MenuItem{}, err
	}
	it.ID = id
	return m.holder.Update(ctx, it)
}

// Delete removes an item no open cart refers to. Such a cart could not be
// billed any more, so the delete fails with ErrInvalidState instead.
func (m *MenuService) Delete(ctx context.Context, id int) error {
	src, used, err := m.usage.ItemInUse(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("menu id %d is on the cart of %s: %w", id, src.Label(), domain.ErrInvalidState)
	}
	return m.holder.Delete(ctx, id)
}

// Import accepts a menu in either the compact or the expanded JSON layout.
func (m *MenuService) Import(ctx context.Context, payload []byte) (int, error) {
	items, err := schema.DecodeMenu(payload)
	if err != nil {
		return 0, err
	}
	c, err := m.holder.Import(ctx, items)
	if err != nil {
		return 0, err
	}
	return c.Len(), nil
}

func (m *MenuService) Refresh(ctx context.Context) (int, error) {
	c, err := m.holder.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	return c.Len(), nil
}
