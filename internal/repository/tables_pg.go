package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-pos/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Tables is the dining-room layout: the table names the floor shows.
type Tables interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) error
	Rename(ctx context.Context, from, to string) error
	Delete(ctx context.Context, name string) error
	Seed(ctx context.Context, names []string) (int, error)
}

type TablesPG struct{ db DBTX }

func NewTablesPG(db DBTX) *TablesPG { return &TablesPG{db: db} }

// List returns table names in the order they were added.
func (t *TablesPG) List(ctx context.Context) ([]string, error) {
	rows, err := t.db.Query(ctx, `SELECT name FROM pos_tables ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (t *TablesPG) Add(ctx context.Context, name string) error {
	tag, err := t.db.Exec(ctx, `INSERT INTO pos_tables (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table %s exists: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

// Rename keeps the table's position.
func (t *TablesPG) Rename(ctx context.Context, from, to string) error {
	tag, err := t.db.Exec(ctx, `UPDATE pos_tables SET name=$2 WHERE name=$1`, from, to)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("table %s exists: %w", to, domain.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("rename table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table %s: %w", from, domain.ErrItemNotFound)
	}
	return nil
}

func (t *TablesPG) Delete(ctx context.Context, name string) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM pos_tables WHERE name=$1`, name)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table %s: %w", name, domain.ErrItemNotFound)
	}
	return nil
}

// Seed fills an empty layout with names, in order, and reports how many were
// added. A layout that already has tables is left alone.
func (t *TablesPG) Seed(ctx context.Context, names []string) (int, error) {
	tag, err := t.db.Exec(ctx, `
		INSERT INTO pos_tables (name)
		SELECT n FROM unnest($1::text[]) WITH ORDINALITY AS seed(n, i)
		WHERE NOT EXISTS (SELECT 1 FROM pos_tables)
		ORDER BY i
		ON CONFLICT (name) DO NOTHING`, names)
	if err != nil {
		return 0, fmt.Errorf("seed tables: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
