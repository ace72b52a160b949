package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	IsAvailable bool            `json:"isAvailable"`
}

// MaxUnitsPerLine bounds the quantity of one item in one round. The kitchen
// board unrolls every unit into its own row.
const MaxUnitsPerLine = 200

// LineItem is one (menu item, quantity) entry of a cart. Note carries the
// special instructions shown on the kitchen ticket.
type LineItem struct {
	ItemID   int    `json:"itemId"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

type SourceKind string

const (
	SourceTable  SourceKind = "table"
	SourceParcel SourceKind = "parcel"
)

// Source identifies who a cart belongs to: a table by name or a parcel by token.
type Source struct {
	Kind SourceKind `json:"kind"`
	Ref  string     `json:"ref"`
}

func TableSource(name string) Source { return Source{Kind: SourceTable, Ref: name} }
func ParcelSource(token string) Source { return Source{Kind: SourceParcel, Ref: token} }

// MaxTableNameLen bounds a table name after normalization.
const MaxTableNameLen = 32

// NormalizeTableName trims and upper-cases a table name. Names end up in
// source ids and URL paths, so separators are refused.
func NormalizeTableName(name string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" || len(n) > MaxTableNameLen || strings.ContainsAny(n, ":/?#%") {
		return "", fmt.Errorf("table name %q: %w", name, ErrInvalidInput)
	}
	return n, nil
}

// ID is the stable key of the source, e.g. "table:4" or "parcel:12".
func (s Source) ID() string { return string(s.Kind) + ":" + s.Ref }

// Label is the human form printed on tickets and bills.
func (s Source) Label() string {
	if s.Kind == SourceParcel {
		return "Parcel " + s.Ref
	}
	return "Table " + s.Ref
}

func (s Source) Validate() error {
	if s.Kind != SourceTable && s.Kind != SourceParcel {
		return fmt.Errorf("source kind %q: %w", s.Kind, ErrInvalidInput)
	}
	if strings.TrimSpace(s.Ref) == "" {
		return fmt.Errorf("empty source ref: %w", ErrInvalidInput)
	}
	return nil
}

// ParseSourceID is the inverse of Source.ID.
func ParseSourceID(id string) (Source, error) {
	kind, ref, ok := strings.Cut(id, ":")
	if !ok {
		return Source{}, fmt.Errorf("source id %q: %w", id, ErrInvalidInput)
	}
	s := Source{Kind: SourceKind(kind), Ref: ref}
	return s, s.Validate()
}

type CartState string

const (
	StateOrdering         CartState = "ordering"
	StateSentToKitchen    CartState = "sent_to_kitchen"
	StateReadyForCheckout CartState = "ready_for_checkout"
	StateBilled           CartState = "billed"
)
