package cart

import (
	"fmt"

	"restaurant-pos/internal/domain"
)

// Snapshot is the plain-data form of a cart used for persistence.
type Snapshot struct {
	Source    domain.Source     `json:"source"`
	State     domain.CartState  `json:"state"`
	Current   []domain.LineItem `json:"current,omitempty"`
	Submitted []domain.LineItem `json:"submitted,omitempty"`
	Rounds    int               `json:"rounds"`
	Pending   []int             `json:"pending,omitempty"`
}

func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Source:    c.source,
		State:     c.state,
		Current:   cloneLines(c.current),
		Submitted: cloneLines(c.submitted),
		Rounds:    c.rounds,
		Pending:   c.PendingRounds(),
	}
}

// Restore rebuilds a cart, rejecting snapshots that break the cart invariants.
func Restore(s Snapshot) (*Cart, error) {
	if err := s.Source.Validate(); err != nil {
		return nil, err
	}
	switch s.State {
	case domain.StateOrdering, domain.StateSentToKitchen, domain.StateReadyForCheckout, domain.StateBilled:
	default:
		return nil, fmt.Errorf("cart state %q: %w", s.State, domain.ErrInvalidInput)
	}
	seen := make(map[int]bool, len(s.Current))
	for _, l := range s.Current {
		if l.Quantity < 1 || l.Quantity > domain.MaxUnitsPerLine || seen[l.ItemID] {
			return nil, fmt.Errorf("current round line %d: %w", l.ItemID, domain.ErrInvalidInput)
		}
		seen[l.ItemID] = true
	}
	inKitchen := make(map[int]bool, len(s.Pending))
	for _, r := range s.Pending {
		if r < 1 || r > s.Rounds || inKitchen[r] {
			return nil, fmt.Errorf("pending round %d of %d: %w", r, s.Rounds, domain.ErrInvalidInput)
		}
		inKitchen[r] = true
	}
	for _, l := range s.Submitted {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("submitted line %d: %w", l.ItemID, domain.ErrInvalidInput)
		}
	}
	return &Cart{
		source:    s.Source,
		state:     s.State,
		current:   cloneLines(s.Current),
		submitted: cloneLines(s.Submitted),
		rounds:    s.Rounds,
		pending:   append([]int(nil), s.Pending...),
	}, nil
}
