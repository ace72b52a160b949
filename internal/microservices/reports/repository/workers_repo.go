package repository

import (
	"context"
	"fmt"

	"restaurant-pos/internal/microservices/reports/models"
	pg "restaurant-pos/internal/repository"
)

type WorkersRepoInterface interface {
	ListWorkers(ctx context.Context) ([]models.WorkerStatus, error)
}

type WorkersRepo struct {
	db pg.DBTX
}

func NewWorkersRepo(db pg.DBTX) *WorkersRepo { return &WorkersRepo{db: db} }

func (r *WorkersRepo) ListWorkers(ctx context.Context) ([]models.WorkerStatus, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, kinds, status, orders_processed, last_seen
		FROM kitchen_workers
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	var out []models.WorkerStatus
	for rows.Next() {
		var w models.WorkerStatus
		if err := rows.Scan(&w.WorkerName, &w.Kinds, &w.Status, &w.OrdersProcessed, &w.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type Repository struct {
	BillRepo   pg.Bills
	WorkerRepo WorkersRepoInterface
}

func New(db pg.DBTX) *Repository {
	return &Repository{BillRepo: pg.NewBillsPG(db), WorkerRepo: NewWorkersRepo(db)}
}
