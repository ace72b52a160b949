// Package kitchen groups the flat kitchen queue into per-order tickets.
package kitchen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"restaurant-pos/internal/domain"
)

// ItemName accepts either a JSON string or a JSON array of strings. Some
// upstream writers send the name as a one-element array.
type ItemName []string

func (n *ItemName) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var many []string
		if err := json.Unmarshal(b, &many); err != nil {
			return fmt.Errorf("item name array: %w", err)
		}
		*n = many
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return fmt.Errorf("item name: %w", err)
	}
	*n = ItemName{one}
	return nil
}

func (n ItemName) MarshalJSON() ([]byte, error) { return json.Marshal(n.First()) }

// First is the value used for display; an empty name yields "".
func (n ItemName) First() string {
	if len(n) == 0 {
		return ""
	}
	return n[0]
}

// QueueLine is one flat entry of the kitchen queue.
type QueueLine struct {
	OrderID     int64     `json:"orderId"`
	SourceLabel string    `json:"sourceLabel"`
	CreatedAt   time.Time `json:"createdAt"`
	ItemName    ItemName  `json:"itemName"`
	Quantity    int       `json:"quantity"`
	Note        string    `json:"note,omitempty"`
}

type TicketItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// Row is one physical unit on a ticket. Each row is marked ready on its own.
type Row struct {
	Index    int    `json:"index"`
	ItemName string `json:"itemName"`
	Note     string `json:"note,omitempty"`
	Ready    bool   `json:"ready"`
}

type Ticket struct {
	OrderID     int64        `json:"orderId"`
	SourceLabel string       `json:"sourceLabel"`
	CreatedAt   time.Time    `json:"createdAt"`
	Items       []TicketItem `json:"items"`
	Rows        []Row        `json:"rows"`
}

// Aggregate builds one ticket per distinct order id, in first-seen order.
// Items with the same name are rolled up and keep the first note seen; each
// item is then unrolled into Quantity rows with the note on the first row only.
// Lines with a non-positive quantity contribute no rows. A line, or an item
// rolled up across lines, above domain.MaxUnitsPerLine is rejected with
// ErrInvalidInput before any row is built.
func Aggregate(lines []QueueLine) ([]Ticket, error) {
	var tickets []Ticket
	byOrder := make(map[int64]int)
	byItem := make(map[int64]map[string]int)

	for _, l := range lines {
		ti, ok := byOrder[l.OrderID]
		if !ok {
			ti = len(tickets)
			byOrder[l.OrderID] = ti
			byItem[l.OrderID] = make(map[string]int)
			tickets = append(tickets, Ticket{
				OrderID:     l.OrderID,
				SourceLabel: l.SourceLabel,
				CreatedAt:   l.CreatedAt,
			})
		}
		if l.Quantity <= 0 {
			continue
		}
		if l.Quantity > domain.MaxUnitsPerLine {
			return nil, fmt.Errorf("order %d: %d units of one item: %w", l.OrderID, l.Quantity, domain.ErrInvalidInput)
		}
		t := &tickets[ti]
		name := l.ItemName.First()
		if ii, seen := byItem[l.OrderID][name]; seen {
			if t.Items[ii].Quantity > domain.MaxUnitsPerLine-l.Quantity {
				return nil, fmt.Errorf("order %d: more than %d units of %q: %w", l.OrderID, domain.MaxUnitsPerLine, name, domain.ErrInvalidInput)
			}
			t.Items[ii].Quantity += l.Quantity
			if t.Items[ii].Note == "" {
				t.Items[ii].Note = l.Note
			}
			continue
		}
		byItem[l.OrderID][name] = len(t.Items)
		t.Items = append(t.Items, TicketItem{Name: name, Quantity: l.Quantity, Note: l.Note})
	}

	for i := range tickets {
		tickets[i].Rows = unroll(tickets[i].Items)
	}
	return tickets, nil
}

func unroll(items []TicketItem) []Row {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	rows := make([]Row, 0, n)
	for _, it := range items {
		for u := 0; u < it.Quantity; u++ {
			r := Row{Index: len(rows), ItemName: it.Name}
			if u == 0 {
				r.Note = it.Note
			}
			rows = append(rows, r)
		}
	}
	return rows
}
