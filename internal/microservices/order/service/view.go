package service

import (
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/core/cart"
	"restaurant-pos/internal/core/pricing"
	"restaurant-pos/internal/domain"
)

type CartLine struct {
	ItemID    int             `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	Sent      bool            `json:"sent"`
}

// CartView is what the order screen renders: every line with its live price
// and the running totals.
type CartView struct {
	SourceID    string            `json:"sourceId"`
	SourceLabel string            `json:"sourceLabel"`
	Kind        domain.SourceKind `json:"kind"`
	State       domain.CartState  `json:"state"`
	Rounds      int               `json:"rounds"`
	InKitchen   int               `json:"inKitchen"`
	Lines       []CartLine        `json:"lines"`
	Units       int               `json:"units"`
	TaxRate     decimal.Decimal   `json:"taxRate"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	Tax         decimal.Decimal   `json:"tax"`
	GrandTotal  decimal.Decimal   `json:"grandTotal"`
}

func buildView(c *cart.Cart, menu cart.Menu, taxRate decimal.Decimal) (CartView, error) {
	src := c.Source()
	all := c.Lines()
	sent := len(all) - len(c.Current())

	v := CartView{
		SourceID:    src.ID(),
		SourceLabel: src.Label(),
		Kind:        src.Kind,
		State:       c.State(),
		Rounds:      c.Rounds(),
		InKitchen:   c.InKitchen(),
		Lines:       make([]CartLine, 0, len(all)),
		Units:       c.TotalLineCount(),
		TaxRate:     taxRate,
	}
	priced := make([]pricing.Line, 0, len(all))
	for i, l := range all {
		it, err := menu.Lookup(l.ItemID)
		if err != nil {
			return CartView{}, err
		}
		v.Lines = append(v.Lines, CartLine{
			ItemID:    l.ItemID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  l.Quantity,
			Amount:    it.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
			Note:      l.Note,
			Sent:      i < sent,
		})
		priced = append(priced, pricing.Line{UnitPrice: it.UnitPrice, Quantity: l.Quantity})
	}
	totals, err := pricing.Compute(priced, taxRate)
	if err != nil {
		return CartView{}, err
	}
	totals = totals.Rounded()
	v.Subtotal, v.Tax, v.GrandTotal = totals.Subtotal, totals.Tax, totals.GrandTotal
	return v, nil
}
