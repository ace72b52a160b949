// Package schema maps the payload shapes seen at the API and queue boundaries
// onto the canonical domain types. Nothing past this package looks at field
// naming variants.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

// menuRecord is the union of the compact {id,name,price} shape and the
// expanded {ItemID,ItemName,RegularPrice,CategoryID} shape.
type menuRecord struct {
	ID          *int            `json:"id"`
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	Category    string          `json:"category"`
	IsAvailable *bool           `json:"isAvailable"`

	ItemID       *int            `json:"ItemID"`
	ItemName     string          `json:"ItemName"`
	RegularPrice json.RawMessage `json:"RegularPrice"`
	CategoryID   json.RawMessage `json:"CategoryID"`
	Available    *bool           `json:"IsAvailable"`
}

// DecodeMenu accepts a JSON array mixing both menu shapes. Items without an
// availability flag are available.
func DecodeMenu(b []byte) ([]domain.MenuItem, error) {
	var recs []json.RawMessage
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("menu payload: %w: %v", domain.ErrInvalidInput, err)
	}
	out := make([]domain.MenuItem, 0, len(recs))
	for i, raw := range recs {
		it, err := DecodeMenuItem(raw)
		if err != nil {
			return nil, fmt.Errorf("menu record %d: %w", i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func DecodeMenuItem(raw []byte) (domain.MenuItem, error) {
	var r menuRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.MenuItem{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if r.ItemID != nil {
		return r.expanded()
	}
	if r.ID != nil {
		return r.compact()
	}
	return domain.MenuItem{}, fmt.Errorf("record has neither id nor ItemID: %w", domain.ErrInvalidInput)
}

func (r menuRecord) compact() (domain.MenuItem, error) {
	price, err := parseMoney(r.Price)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("id %d price: %w", *r.ID, err)
	}
	return finish(domain.MenuItem{
		ID:          *r.ID,
		Name:        r.Name,
		Category:    r.Category,
		UnitPrice:   price,
		IsAvailable: r.IsAvailable == nil || *r.IsAvailable,
	})
}

func (r menuRecord) expanded() (domain.MenuItem, error) {
	price, err := parseMoney(r.RegularPrice)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("ItemID %d RegularPrice: %w", *r.ItemID, err)
	}
	return finish(domain.MenuItem{
		ID:          *r.ItemID,
		Name:        r.ItemName,
		Category:    scalarString(r.CategoryID),
		UnitPrice:   price,
		IsAvailable: r.Available == nil || *r.Available,
	})
}

func finish(it domain.MenuItem) (domain.MenuItem, error) {
	it.Name = strings.TrimSpace(it.Name)
	it.Category = strings.TrimSpace(it.Category)
	if it.Name == "" {
		return domain.MenuItem{}, fmt.Errorf("id %d has no name: %w", it.ID, domain.ErrInvalidInput)
	}
	if it.UnitPrice.IsNegative() {
		return domain.MenuItem{}, fmt.Errorf("id %d has negative price: %w", it.ID, domain.ErrInvalidInput)
	}
	return it, nil
}

// parseMoney reads a price sent either as a JSON number or a numeric string.
func parseMoney(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Decimal{}, fmt.Errorf("missing: %w", domain.ErrInvalidInput)
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, domain.ErrInvalidInput)
	}
	return d, nil
}

// scalarString renders a JSON string or number as text; CategoryID arrives as
// either.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
