package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/domain"
	pg "restaurant-pos/internal/repository"
)

var ErrWorkerOnline = errors.New("worker already online")

// Order is one round as the kitchen stores it. ReadyRows holds the indexes of
// the ticket rows already plated.
type Order struct {
	ID          int64
	SourceID    string
	SourceLabel string
	Round       int
	Items       []domain.KitchenOrderItem
	ReadyRows   []int32
	CreatedAt   time.Time
}

type KitchenRepositoryInterface interface {
	RegisterOrFail(ctx context.Context, name, kinds string) error
	SetOffline(ctx context.Context, name string) error
	Heartbeat(ctx context.Context, name string) error

	// Insert stores a round once per broker message id. A redelivered message
	// reports inserted=false.
	Insert(ctx context.Context, messageID string, msg domain.KitchenOrderMessage, worker string) (id int64, inserted bool, err error)
	Pending(ctx context.Context) ([]Order, error)
	SetRowReady(ctx context.Context, id int64, row int, ready bool) error
	// Complete closes a pending order. then runs inside the transaction, so
	// the order stays pending when it fails.
	Complete(ctx context.Context, id int64, worker string, then func(Order) error) error
}

type KitchenRepository struct {
	db pg.DBTX
}

func NewKitchenRepository(db pg.DBTX) KitchenRepositoryInterface {
	return &KitchenRepository{db: db}
}

func (r *KitchenRepository) Heartbeat(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `UPDATE kitchen_workers SET last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *KitchenRepository) RegisterOrFail(ctx context.Context, name, kinds string) error {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM kitchen_workers WHERE name=$1`, name).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = r.db.Exec(ctx, `
			INSERT INTO kitchen_workers(name, kinds, status, last_seen) VALUES ($1, $2, 'online', now())
		`, name, kinds)
		return err
	case err != nil:
		return err
	case status == "online":
		return fmt.Errorf("%s: %w", name, ErrWorkerOnline)
	default:
		_, err = r.db.Exec(ctx, `
			UPDATE kitchen_workers SET kinds=$2, status='online', last_seen=now() WHERE name=$1
		`, name, kinds)
		return err
	}
}

func (r *KitchenRepository) SetOffline(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `UPDATE kitchen_workers SET status='offline', last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *KitchenRepository) Insert(ctx context.Context, messageID string, msg domain.KitchenOrderMessage, worker string) (int64, bool, error) {
	items, err := json.Marshal(msg.Items)
	if err != nil {
		return 0, false, err
	}
	var mid *string
	if messageID != "" {
		mid = &messageID
	}
	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO kitchen_orders (message_id, source_id, source_label, round, items, processed_by, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id`,
		mid, msg.SourceID, msg.SourceLabel, msg.Round, string(items), worker, created,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert kitchen order for %s: %w", msg.SourceID, err)
	}
	return id, true, nil
}

// Pending returns open orders oldest first.
func (r *KitchenRepository) Pending(ctx context.Context) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, source_id, source_label, round, items, ready_rows, created_at
		FROM kitchen_orders
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			o     Order
			items []byte
		)
		if err := rows.Scan(&o.ID, &o.SourceID, &o.SourceLabel, &o.Round, &items, &o.ReadyRows, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("kitchen order %d items: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *KitchenRepository) SetRowReady(ctx context.Context, id int64, row int, ready bool) error {
	q := `UPDATE kitchen_orders SET ready_rows = array_append(array_remove(ready_rows, $2), $2)
		WHERE id = $1 AND status = 'pending'`
	if !ready {
		q = `UPDATE kitchen_orders SET ready_rows = array_remove(ready_rows, $2)
		WHERE id = $1 AND status = 'pending'`
	}
	tag, err := r.db.Exec(ctx, q, id, int32(row))
	if err != nil {
		return fmt.Errorf("update row %d of order %d: %w", row, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending kitchen order %d: %w", id, domain.ErrItemNotFound)
	}
	return nil
}

func (r *KitchenRepository) Complete(ctx context.Context, id int64, worker string, then func(Order) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var o Order
	err = tx.QueryRow(ctx, `
		UPDATE kitchen_orders SET status='completed', completed_at=now(), processed_by=$2
		WHERE id=$1 AND status='pending'
		RETURNING id, source_id, source_label, round, created_at`, id, worker,
	).Scan(&o.ID, &o.SourceID, &o.SourceLabel, &o.Round, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("pending kitchen order %d: %w", id, domain.ErrItemNotFound)
		return err
	}
	if err != nil {
		return fmt.Errorf("complete kitchen order %d: %w", id, err)
	}
	if _, err = tx.Exec(ctx, `
		UPDATE kitchen_workers SET orders_processed = orders_processed + 1, last_seen=now()
		WHERE name=$1`, worker); err != nil {
		return err
	}
	if then != nil {
		if err = then(o); err != nil {
			return err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
