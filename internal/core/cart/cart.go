// Package cart holds the working order of one table or parcel.
//
// A cart keeps the round currently being taken separately from the rounds
// already sent to the kitchen: only the current round can be edited, while
// every query (Lines, TotalLineCount, IsEmpty) spans both.
package cart

import (
	"fmt"

	"restaurant-pos/internal/domain"
)

// Menu is the lookup a cart needs to validate additions.
type Menu interface {
	Lookup(id int) (domain.MenuItem, error)
}

type Cart struct {
	source    domain.Source
	state     domain.CartState
	current   []domain.LineItem
	submitted []domain.LineItem
	rounds    int
	// pending holds the round numbers the kitchen has not reported ready.
	pending []int
}

func New(source domain.Source) *Cart {
	return &Cart{source: source, state: domain.StateOrdering}
}

func (c *Cart) Source() domain.Source { return c.source }
func (c *Cart) State() domain.CartState { return c.state }
func (c *Cart) Rounds() int { return c.rounds }
func (c *Cart) InKitchen() int { return len(c.pending) }
func (c *Cart) HasPendingRound() bool { return len(c.current) > 0 }
func (c *Cart) IsEmpty() bool { return len(c.current) == 0 && len(c.submitted) == 0 }
func (c *Cart) Current() []domain.LineItem { return cloneLines(c.current) }

// Lines returns the submitted entries followed by the current round. The same
// item may appear once per round.
func (c *Cart) Lines() []domain.LineItem {
	out := make([]domain.LineItem, 0, len(c.submitted)+len(c.current))
	out = append(out, c.submitted...)
	return append(out, c.current...)
}

func (c *Cart) TotalLineCount() int {
	n := 0
	for _, l := range c.submitted {
		n += l.Quantity
	}
	for _, l := range c.current {
		n += l.Quantity
	}
	return n
}

// AddItem adds one unit of an available menu item to the current round.
func (c *Cart) AddItem(menu Menu, itemID int) error {
	if c.state == domain.StateBilled {
		return fmt.Errorf("add to %s: cart is billed: %w", c.source.Label(), domain.ErrInvalidState)
	}
	it, err := menu.Lookup(itemID)
	if err != nil {
		return err
	}
	if !it.IsAvailable {
		return fmt.Errorf("menu id %d is unavailable: %w", itemID, domain.ErrItemNotFound)
	}
	if i := c.find(itemID); i >= 0 {
		if c.current[i].Quantity >= domain.MaxUnitsPerLine {
			return fmt.Errorf("menu id %d above %d units: %w", itemID, domain.MaxUnitsPerLine, domain.ErrInvalidInput)
		}
		c.current[i].Quantity++
		return nil
	}
	c.current = append(c.current, domain.LineItem{ItemID: itemID, Quantity: 1})
	return nil
}

// DecrementItem removes one unit; absent items are ignored.
func (c *Cart) DecrementItem(itemID int) error {
	if c.state == domain.StateBilled {
		return fmt.Errorf("decrement on %s: cart is billed: %w", c.source.Label(), domain.ErrInvalidState)
	}
	i := c.find(itemID)
	if i < 0 {
		return nil
	}
	c.current[i].Quantity--
	if c.current[i].Quantity <= 0 {
		c.drop(i)
	}
	return nil
}

func (c *Cart) RemoveItem(itemID int) error {
	if c.state == domain.StateBilled {
		return fmt.Errorf("remove on %s: cart is billed: %w", c.source.Label(), domain.ErrInvalidState)
	}
	if i := c.find(itemID); i >= 0 {
		c.drop(i)
	}
	return nil
}

// SetNote attaches special instructions to an item of the current round.
func (c *Cart) SetNote(itemID int, note string) error {
	if c.state == domain.StateBilled {
		return fmt.Errorf("note on %s: cart is billed: %w", c.source.Label(), domain.ErrInvalidState)
	}
	i := c.find(itemID)
	if i < 0 {
		return fmt.Errorf("menu id %d not in current round: %w", itemID, domain.ErrItemNotFound)
	}
	c.current[i].Note = note
	return nil
}

// Submit closes the current round and hands it back for the kitchen. A table
// may order further rounds after the first one, even once it was marked ready.
func (c *Cart) Submit() ([]domain.LineItem, error) {
	if c.state == domain.StateBilled {
		return nil, fmt.Errorf("submit %s: cart is billed: %w", c.source.Label(), domain.ErrInvalidState)
	}
	if len(c.current) == 0 {
		return nil, fmt.Errorf("submit %s: nothing to send: %w", c.source.Label(), domain.ErrEmptyCart)
	}
	round := c.current
	c.submitted = append(c.submitted, round...)
	c.current = nil
	c.rounds++
	c.pending = append(c.pending, c.rounds)
	c.state = domain.StateSentToKitchen
	return cloneLines(round), nil
}

// PendingRounds lists the sent rounds the kitchen has not finished.
func (c *Cart) PendingRounds() []int { return append([]int(nil), c.pending...) }

// MarkReady records the kitchen's signal that the given round is done. A
// round is only accepted once, so a repeated signal fails with
// ErrInvalidState. The cart becomes ready for checkout once no round is left
// in the kitchen.
func (c *Cart) MarkReady(round int) error {
	if c.state != domain.StateSentToKitchen {
		return fmt.Errorf("mark %s ready from %s: %w", c.source.Label(), c.state, domain.ErrInvalidState)
	}
	i := -1
	for j, r := range c.pending {
		if r == round {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("round %d of %s is not in the kitchen: %w", round, c.source.Label(), domain.ErrInvalidState)
	}
	c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
	if len(c.pending) == 0 {
		c.state = domain.StateReadyForCheckout
	}
	return nil
}

// MarkBilled is called by the bill assembler once a bill has been produced.
func (c *Cart) MarkBilled() error {
	if c.state == domain.StateBilled {
		return fmt.Errorf("%s already billed: %w", c.source.Label(), domain.ErrInvalidState)
	}
	c.state = domain.StateBilled
	return nil
}

// Clear empties the cart and starts over in Ordering, e.g. after a bill or
// when a parcel is abandoned.
func (c *Cart) Clear() {
	c.current = nil
	c.submitted = nil
	c.rounds = 0
	c.pending = nil
	c.state = domain.StateOrdering
}

func (c *Cart) find(itemID int) int {
	for i, l := range c.current {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) drop(i int) {
	c.current = append(c.current[:i], c.current[i+1:]...)
}

func cloneLines(in []domain.LineItem) []domain.LineItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.LineItem, len(in))
	copy(out, in)
	return out
}
