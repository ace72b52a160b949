package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/core/billing"
)

type Bills interface {
	Insert(ctx context.Context, b billing.Bill) error
	List(ctx context.Context, since time.Time, limit int) ([]billing.Bill, error)
	CountOn(ctx context.Context, day time.Time) (int, error)
}

type BillsPG struct{ db DBTX }

func NewBillsPG(db DBTX) *BillsPG { return &BillsPG{db: db} }

// Insert writes the bill and its lines in one transaction. Bills are never
// updated afterwards.
func (r *BillsPG) Insert(ctx context.Context, b billing.Bill) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO bills
			(bill_id, source_id, source_label, created_at, tax_rate, subtotal, tax, grand_total)
		VALUES
			($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric)`,
		b.BillID, b.SourceID, b.SourceLabel, b.CreatedAt,
		b.TaxRate.String(), b.Subtotal.String(), b.Tax.String(), b.GrandTotal.String())
	if err != nil {
		return fmt.Errorf("failed to insert bill %s: %w", b.BillID, err)
	}

	for i, l := range b.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO bill_items (bill_id, line_no, item_id, name, unit_price, quantity, amount)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric)`,
			b.BillID, i, l.ItemID, l.Name, l.UnitPrice.String(), l.Quantity, l.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to insert bill line %s: %w", l.Name, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns bills created at or after since, oldest first. limit <= 0
// means no limit.
func (r *BillsPG) List(ctx context.Context, since time.Time, limit int) ([]billing.Bill, error) {
	if limit <= 0 {
		limit = 1 << 30
	}
	rows, err := r.db.Query(ctx, `
		SELECT bill_id, source_id, source_label, created_at,
		       tax_rate::text, subtotal::text, tax::text, grand_total::text
		FROM bills
		WHERE created_at >= $1
		ORDER BY created_at ASC, bill_id ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var (
		bills []billing.Bill
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			b                      billing.Bill
			rate, sub, tax, grand string
		)
		if err := rows.Scan(&b.BillID, &b.SourceID, &b.SourceLabel, &b.CreatedAt, &rate, &sub, &tax, &grand); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		if err := parseAll(map[*decimal.Decimal]string{
			&b.TaxRate: rate, &b.Subtotal: sub, &b.Tax: tax, &b.GrandTotal: grand,
		}); err != nil {
			return nil, fmt.Errorf("bill %s: %w", b.BillID, err)
		}
		b.CreatedAt = b.CreatedAt.UTC()
		index[b.BillID] = len(bills)
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return bills, nil
	}

	ids := make([]string, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.BillID)
	}
	lrows, err := r.db.Query(ctx, `
		SELECT bill_id, item_id, name, unit_price::text, quantity, amount::text
		FROM bill_items
		WHERE bill_id = ANY($1)
		ORDER BY bill_id, line_no`, ids)
	if err != nil {
		return nil, fmt.Errorf("query bill items: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var (
			id            string
			l             billing.Line
			price, amount string
		)
		if err := lrows.Scan(&id, &l.ItemID, &l.Name, &price, &l.Quantity, &amount); err != nil {
			return nil, fmt.Errorf("scan bill item: %w", err)
		}
		if err := parseAll(map[*decimal.Decimal]string{&l.UnitPrice: price, &l.Amount: amount}); err != nil {
			return nil, fmt.Errorf("bill %s item %s: %w", id, l.Name, err)
		}
		if i, ok := index[id]; ok {
			bills[i].Lines = append(bills[i].Lines, l)
		}
	}
	return bills, lrows.Err()
}

// CountOn returns how many bills were created on the UTC day of day.
func (r *BillsPG) CountOn(ctx context.Context, day time.Time) (int, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bills WHERE created_at >= $1 AND created_at < $2`,
		start, start.AddDate(0, 0, 1)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bills: %w", err)
	}
	return n, nil
}

func parseAll(fields map[*decimal.Decimal]string) error {
	for dst, s := range fields {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("numeric %q: %w", s, err)
		}
		*dst = d
	}
	return nil
}
