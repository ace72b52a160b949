// Package pricing computes order totals. Arithmetic stays unrounded; callers
// round only for display via Totals.Rounded.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

// DefaultTaxRate is the 5% GST applied to every bill.
var DefaultTaxRate = decimal.RequireFromString("0.05")

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

func Compute(lines []Line, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, fmt.Errorf("tax rate %s: %w", taxRate, domain.ErrInvalidInput)
	}
	subtotal := decimal.Zero
	for i, l := range lines {
		if l.Quantity < 0 {
			return Totals{}, fmt.Errorf("line %d quantity %d: %w", i, l.Quantity, domain.ErrInvalidInput)
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("line %d price %s: %w", i, l.UnitPrice, domain.ErrInvalidInput)
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	tax := subtotal.Mul(taxRate)
	return Totals{Subtotal: subtotal, Tax: tax, GrandTotal: subtotal.Add(tax)}, nil
}

// Rounded returns the totals rounded half away from zero to two places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:   t.Subtotal.Round(2),
		Tax:        t.Tax.Round(2),
		GrandTotal: t.GrandTotal.Round(2),
	}
}

// Display formats an amount the way receipts print it.
func Display(d decimal.Decimal) string { return d.StringFixed(2) }
