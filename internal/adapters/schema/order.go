package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"restaurant-pos/internal/domain"
)

// unitRecord is one element of the legacy per-unit item array: every physical
// unit was its own object, e.g. [{"id":1,"name":"Tea"},{"id":1,"name":"Tea"}].
type unitRecord struct {
	ID     *int   `json:"id"`
	ItemID *int   `json:"itemId"`
	Name   string `json:"name"`
	Note   string `json:"note"`
}

// quantityRecord is the integer quantity shape.
type quantityRecord struct {
	ItemID   int    `json:"itemId"`
	Quantity *int   `json:"quantity"`
	Qty      *int   `json:"qty"`
	Note     string `json:"note"`
}

// DecodeLineItems reads either legacy order representation and returns line
// items with integer quantities, one entry per item in first-seen order.
func DecodeLineItems(b []byte) ([]domain.LineItem, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("order items: %w: %v", domain.ErrInvalidInput, err)
	}
	var out []domain.LineItem
	idx := map[int]int{}
	add := func(i, id, qty int, note string) error {
		if j, ok := idx[id]; ok {
			if out[j].Quantity > domain.MaxUnitsPerLine-qty {
				return fmt.Errorf("order item %d: more than %d units of item %d: %w", i, domain.MaxUnitsPerLine, id, domain.ErrInvalidInput)
			}
			out[j].Quantity += qty
			if out[j].Note == "" {
				out[j].Note = note
			}
			return nil
		}
		idx[id] = len(out)
		out = append(out, domain.LineItem{ItemID: id, Quantity: qty, Note: note})
		return nil
	}

	for i, raw := range raws {
		if hasQuantity(raw) {
			var q quantityRecord
			if err := json.Unmarshal(raw, &q); err != nil {
				return nil, fmt.Errorf("order item %d: %w: %v", i, domain.ErrInvalidInput, err)
			}
			n := q.Quantity
			if n == nil {
				n = q.Qty
			}
			if *n < 0 || *n > domain.MaxUnitsPerLine {
				return nil, fmt.Errorf("order item %d quantity %d: %w", i, *n, domain.ErrInvalidInput)
			}
			if *n == 0 {
				continue
			}
			if err := add(i, q.ItemID, *n, q.Note); err != nil {
				return nil, err
			}
			continue
		}
		var u unitRecord
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("order item %d: %w: %v", i, domain.ErrInvalidInput, err)
		}
		id := u.ItemID
		if id == nil {
			id = u.ID
		}
		if id == nil {
			return nil, fmt.Errorf("order item %d has no id: %w", i, domain.ErrInvalidInput)
		}
		if err := add(i, *id, 1, u.Note); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hasQuantity(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	for _, k := range []string{"quantity", "qty"} {
		if v, ok := fields[k]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return true
		}
	}
	return false
}

// kitchenItem is a kitchen order line in either representation: it carries a
// quantity, or it stands for a single unit.
type kitchenItem struct {
	ItemID   int             `json:"item_id"`
	Name     json.RawMessage `json:"name"`
	Quantity *int            `json:"quantity"`
	Note     string          `json:"note"`
}

// DecodeKitchenOrder reads a KitchenOrderMessage. Item names may be a string or
// an array of strings, and items without a quantity count as one unit each;
// repeated items are merged.
func DecodeKitchenOrder(b []byte) (domain.KitchenOrderMessage, error) {
	var env struct {
		domain.KitchenOrderMessage
		Items []kitchenItem `json:"items"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.KitchenOrderMessage{}, fmt.Errorf("kitchen order: %w: %v", domain.ErrInvalidInput, err)
	}
	msg := env.KitchenOrderMessage
	if msg.SourceID == "" {
		return domain.KitchenOrderMessage{}, fmt.Errorf("kitchen order without source: %w", domain.ErrInvalidInput)
	}
	if msg.SourceLabel == "" {
		if src, err := domain.ParseSourceID(msg.SourceID); err == nil {
			msg.SourceLabel = src.Label()
		}
	}

	msg.Items = nil
	idx := map[string]int{}
	for i, it := range env.Items {
		name, err := firstName(it.Name)
		if err != nil {
			return domain.KitchenOrderMessage{}, fmt.Errorf("kitchen item %d: %w", i, err)
		}
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		if qty < 0 || qty > domain.MaxUnitsPerLine {
			return domain.KitchenOrderMessage{}, fmt.Errorf("kitchen item %d quantity %d: %w", i, qty, domain.ErrInvalidInput)
		}
		key := fmt.Sprintf("%d/%s", it.ItemID, name)
		if j, ok := idx[key]; ok {
			if msg.Items[j].Quantity > domain.MaxUnitsPerLine-qty {
				return domain.KitchenOrderMessage{}, fmt.Errorf("kitchen item %d: more than %d units of %s: %w", i, domain.MaxUnitsPerLine, name, domain.ErrInvalidInput)
			}
			msg.Items[j].Quantity += qty
			if msg.Items[j].Note == "" {
				msg.Items[j].Note = it.Note
			}
			continue
		}
		idx[key] = len(msg.Items)
		msg.Items = append(msg.Items, domain.KitchenOrderItem{ItemID: it.ItemID, Name: name, Quantity: qty, Note: it.Note})
	}
	if len(msg.Items) == 0 {
		return domain.KitchenOrderMessage{}, fmt.Errorf("kitchen order for %s has no items: %w", msg.SourceID, domain.ErrInvalidInput)
	}
	return msg, nil
}

func firstName(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return "", fmt.Errorf("name: %w: %v", domain.ErrInvalidInput, err)
		}
		if len(names) == 0 {
			return "", fmt.Errorf("empty name list: %w", domain.ErrInvalidInput)
		}
		return names[0], nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil || name == "" {
		return "", fmt.Errorf("name: %w", domain.ErrInvalidInput)
	}
	return name, nil
}
