package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

type Menu interface {
	List(ctx context.Context) ([]domain.MenuItem, error)
	Upsert(ctx context.Context, items []domain.MenuItem) error
	SetAvailability(ctx context.Context, id int, available bool) error
	Create(ctx context.Context, it domain.MenuItem) (domain.MenuItem, error)
	Update(ctx context.Context, it domain.MenuItem) error
	Delete(ctx context.Context, id int) error
}

type MenuPG struct{ db DBTX }

func NewMenuPG(db DBTX) *MenuPG { return &MenuPG{db: db} }

// List returns the menu in the order items were first added.
func (m *MenuPG) List(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := m.db.Query(ctx, `
		SELECT id, name, category, price::text, is_available
		FROM menu_items
		ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	var out []domain.MenuItem
	for rows.Next() {
		var (
			it    domain.MenuItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &price, &it.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("menu item %d price %q: %w", it.ID, price, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Upsert inserts new items at the end of the menu and updates existing ones
// in place, all in one transaction.
func (m *MenuPG) Upsert(ctx context.Context, items []domain.MenuItem) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO menu_items (id, name, category, price, is_available)
			VALUES ($1, $2, $3, $4::numeric, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				price = EXCLUDED.price,
				is_available = EXCLUDED.is_available`,
			it.ID, it.Name, it.Category, it.UnitPrice.String(), it.IsAvailable)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert menu: %w", err)
	}
	return tx.Commit(ctx)
}

func (m *MenuPG) SetAvailability(ctx context.Context, id int, available bool) error {
	tag, err := m.db.Exec(ctx, `UPDATE menu_items SET is_available=$2 WHERE id=$1`, id, available)
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("menu id %d: %w", id, domain.ErrItemNotFound)
	}
	return nil
}

// Create appends an item to the menu under the next free id. The table lock
// keeps concurrent creates from picking the same id.
func (m *MenuPG) Create(ctx context.Context, it domain.MenuItem) (domain.MenuItem, error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `LOCK TABLE menu_items IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return domain.MenuItem{}, fmt.Errorf("lock menu: %w", err)
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO menu_items (id, name, category, price, is_available)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3::numeric, $4 FROM menu_items
		RETURNING id`,
		it.Name, it.Category, it.UnitPrice.String(), it.IsAvailable).Scan(&it.ID)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("insert menu item: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.MenuItem{}, fmt.Errorf("commit: %w", err)
	}
	return it, nil
}

// Update changes name, category and price. Availability has its own call.
func (m *MenuPG) Update(ctx context.Context, it domain.MenuItem) error {
	tag, err := m.db.Exec(ctx, `
		UPDATE menu_items SET name=$2, category=$3, price=$4::numeric
		WHERE id=$1`,
		it.ID, it.Name, it.Category, it.UnitPrice.String())
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("menu id %d: %w", it.ID, domain.ErrItemNotFound)
	}
	return nil
}

func (m *MenuPG) Delete(ctx context.Context, id int) error {
	tag, err := m.db.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("menu id %d: %w", id, domain.ErrItemNotFound)
	}
	return nil
}
