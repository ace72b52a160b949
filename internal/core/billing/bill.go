// Package billing turns a finished cart into an immutable bill and derives the
// reports the dashboard shows from stored bills.
package billing

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/core/cart"
	"restaurant-pos/internal/core/pricing"
	"restaurant-pos/internal/domain"
)

type Line struct {
	ItemID    int             `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

// Bill is never modified after Finalize returns it. Totals are rounded to two
// places; line amounts are exact.
type Bill struct {
	BillID      string          `json:"billId"`
	SourceID    string          `json:"sourceId"`
	SourceLabel string          `json:"sourceLabel"`
	CreatedAt   time.Time       `json:"createdAt"`
	Lines       []Line          `json:"lines"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

func (b Bill) Units() int {
	n := 0
	for _, l := range b.Lines {
		n += l.Quantity
	}
	return n
}

type IDGenerator interface {
	NextBillID(at time.Time) string
}

type Assembler struct {
	Menu cart.Menu
	IDs  IDGenerator
	Now  func() time.Time
	// RequireReady limits finalizing to carts the kitchen has marked ready
	// and that hold no unsent round.
	RequireReady bool
}

func NewAssembler(menu cart.Menu, ids IDGenerator) *Assembler {
	return &Assembler{Menu: menu, IDs: ids, Now: func() time.Time { return time.Now().UTC() }}
}

// Finalize prices the cart with the menu as it is now, so a price change made
// while the table was eating is honoured, and moves the cart to Billed.
func (a *Assembler) Finalize(c *cart.Cart, taxRate decimal.Decimal) (Bill, error) {
	src := c.Source()
	if c.State() == domain.StateBilled {
		return Bill{}, fmt.Errorf("finalize %s: already billed: %w", src.Label(), domain.ErrInvalidState)
	}
	if c.IsEmpty() {
		return Bill{}, fmt.Errorf("finalize %s: %w", src.Label(), domain.ErrEmptyCart)
	}
	if a.RequireReady {
		if c.State() != domain.StateReadyForCheckout {
			return Bill{}, fmt.Errorf("finalize %s from %s: %w", src.Label(), c.State(), domain.ErrInvalidState)
		}
		if c.HasPendingRound() {
			return Bill{}, fmt.Errorf("finalize %s: round not sent to kitchen: %w", src.Label(), domain.ErrInvalidState)
		}
	}

	lines, err := a.resolve(collapse(c.Lines()))
	if err != nil {
		return Bill{}, fmt.Errorf("finalize %s: %w", src.Label(), err)
	}
	priced := make([]pricing.Line, len(lines))
	for i, l := range lines {
		priced[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	totals, err := pricing.Compute(priced, taxRate)
	if err != nil {
		return Bill{}, fmt.Errorf("finalize %s: %w", src.Label(), err)
	}
	totals = totals.Rounded()

	now := a.Now()
	bill := Bill{
		BillID:      a.IDs.NextBillID(now),
		SourceID:    src.ID(),
		SourceLabel: src.Label(),
		CreatedAt:   now,
		Lines:       lines,
		TaxRate:     taxRate,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		GrandTotal:  totals.GrandTotal,
	}
	if err := c.MarkBilled(); err != nil {
		return Bill{}, err
	}
	return bill, nil
}

func (a *Assembler) resolve(items []domain.LineItem) ([]Line, error) {
	out := make([]Line, 0, len(items))
	for _, li := range items {
		it, err := a.Menu.Lookup(li.ItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, Line{
			ItemID:    li.ItemID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  li.Quantity,
			Amount:    it.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))),
		})
	}
	return out, nil
}

// collapse merges entries of the same item, keeping first-seen order.
func collapse(lines []domain.LineItem) []domain.LineItem {
	idx := make(map[int]int, len(lines))
	out := make([]domain.LineItem, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ItemID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ItemID] = len(out)
		out = append(out, domain.LineItem{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return out
}

// DailySequence hands out ORD_YYYYMMDD_NNN ids, restarting at 1 each UTC day.
type DailySequence struct {
	mu  sync.Mutex
	day string
	n   int
}

// Seed sets how many bills were already issued on the day of at.
func (s *DailySequence) Seed(at time.Time, issued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = at.UTC().Format("20060102")
	s.n = issued
}

func (s *DailySequence) NextBillID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := at.UTC().Format("20060102")
	if day != s.day {
		s.day = day
		s.n = 0
	}
	s.n++
	return fmt.Sprintf("ORD_%s_%03d", day, s.n)
}
