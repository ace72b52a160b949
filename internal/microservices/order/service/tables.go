package service

import (
	"context"
	"fmt"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/repository"
)

type TableServiceInterface interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) (string, error)
	Rename(ctx context.Context, from, to string) (string, error)
	Delete(ctx context.Context, name string) error
}

// TableService edits the dining-room layout. Names are stored trimmed and
// upper-cased; a table with an open cart can be neither renamed nor removed.
type TableService struct {
	repo  repository.Tables
	carts *Registry
	log   *logger.Logger
}

func NewTableService(repo repository.Tables, carts *Registry, lg *logger.Logger) *TableService {
	return &TableService{repo: repo, carts: carts, log: lg}
}

func (t *TableService) List(ctx context.Context) ([]string, error) { return t.repo.List(ctx) }

func (t *TableService) Add(ctx context.Context, name string) (string, error) {
	n, err := domain.NormalizeTableName(name)
	if err != nil {
		return "", err
	}
	if err := t.repo.Add(ctx, n); err != nil {
		return "", err
	}
	t.log.Info("table_added", map[string]any{"table": n})
	return n, nil
}

func (t *TableService) Rename(ctx context.Context, from, to string) (string, error) {
	old, err := domain.NormalizeTableName(from)
	if err != nil {
		return "", err
	}
	n, err := domain.NormalizeTableName(to)
	if err != nil {
		return "", err
	}
	if n == old {
		return n, nil
	}
	target, err := t.carts.Get(ctx, domain.TableSource(n))
	if err != nil {
		return "", err
	}
	if !target.IsEmpty() {
		return "", fmt.Errorf("%s has an open cart: %w", target.Source().Label(), domain.ErrInvalidState)
	}
	err = t.carts.Release(ctx, domain.TableSource(old), func(ctx context.Context) error {
		return t.repo.Rename(ctx, old, n)
	})
	if err != nil {
		return "", err
	}
	t.log.Info("table_renamed", map[string]any{"from": old, "to": n})
	return n, nil
}

func (t *TableService) Delete(ctx context.Context, name string) error {
	n, err := domain.NormalizeTableName(name)
	if err != nil {
		return err
	}
	err = t.carts.Release(ctx, domain.TableSource(n), func(ctx context.Context) error {
		return t.repo.Delete(ctx, n)
	})
	if err != nil {
		return err
	}
	t.log.Info("table_removed", map[string]any{"table": n})
	return nil
}
