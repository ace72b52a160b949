package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/core/catalog"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/repository"
)

// CatalogHolder serves the current menu snapshot. Readers never block; a
// refresh swaps the pointer once the new snapshot is built.
type CatalogHolder struct {
	repo    repository.Menu
	metrics *metrics.Registry
	cur     atomic.Pointer[catalog.Catalog]
	group   singleflight.Group
}

func NewCatalogHolder(repo repository.Menu, m *metrics.Registry) *CatalogHolder {
	h := &CatalogHolder{repo: repo, metrics: m}
	empty, _ := catalog.New(nil)
	h.cur.Store(empty)
	return h
}

func (h *CatalogHolder) Current() *catalog.Catalog { return h.cur.Load() }

// Lookup makes the holder usable wherever a cart.Menu is expected.
func (h *CatalogHolder) Lookup(id int) (domain.MenuItem, error) { return h.Current().Lookup(id) }

// Refresh reloads the menu from Postgres. Concurrent callers share one query.
func (h *CatalogHolder) Refresh(ctx context.Context) (*catalog.Catalog, error) {
	v, err, _ := h.group.Do("menu", func() (any, error) {
		items, err := h.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load menu: %w", err)
		}
		c, err := catalog.New(items)
		if err != nil {
			return nil, err
		}
		h.cur.Store(c)
		return c, nil
	})
	if err != nil {
		h.metrics.CatalogRefresh.WithLabelValues("error").Inc()
		return nil, err
	}
	h.metrics.CatalogRefresh.WithLabelValues("ok").Inc()
	return v.(*catalog.Catalog), nil
}

// SetAvailability persists the flag and patches the live snapshot without a
// full reload.
func (h *CatalogHolder) SetAvailability(ctx context.Context, id int, available bool) (domain.MenuItem, error) {
	if _, err := h.Current().Lookup(id); err != nil {
		return domain.MenuItem{}, err
	}
	if err := h.repo.SetAvailability(ctx, id, available); err != nil {
		return domain.MenuItem{}, err
	}
	for {
		old := h.cur.Load()
		next, err := old.WithAvailability(id, available)
		if err != nil {
			return domain.MenuItem{}, err
		}
		if h.cur.CompareAndSwap(old, next) {
			return next.Lookup(id)
		}
	}
}

// Import upserts items and reloads the snapshot.
func (h *CatalogHolder) Import(ctx context.Context, items []domain.MenuItem) (*catalog.Catalog, error) {
	if _, err := catalog.New(items); err != nil {
		return nil, err
	}
	if err := h.repo.Upsert(ctx, items); err != nil {
		return nil, fmt.Errorf("save menu: %w", err)
	}
	return h.reload(ctx)
}

// reload refreshes after a write. A refresh already in flight may have read
// the menu before the write, so it is not joined.
func (h *CatalogHolder) reload(ctx context.Context) (*catalog.Catalog, error) {
	h.group.Forget("menu")
	return h.Refresh(ctx)
}

// Create stores a new item under an id picked by the store.
func (h *CatalogHolder) Create(ctx context.Context, it domain.MenuItem) (domain.MenuItem, error) {
	created, err := h.repo.Create(ctx, it)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if _, err := h.reload(ctx); err != nil {
		return domain.MenuItem{}, err
	}
	return created, nil
}

// Update replaces name, category and price of an existing item.
func (h *CatalogHolder) Update(ctx context.Context, it domain.MenuItem) (domain.MenuItem, error) {
	cur, err := h.Current().Lookup(it.ID)
	if err != nil {
		return domain.MenuItem{}, err
	}
	it.IsAvailable = cur.IsAvailable
	if err := h.repo.Update(ctx, it); err != nil {
		return domain.MenuItem{}, err
	}
	c, err := h.reload(ctx)
	if err != nil {
		return domain.MenuItem{}, err
	}
	return c.Lookup(it.ID)
}

func (h *CatalogHolder) Delete(ctx context.Context, id int) error {
	if _, err := h.Current().Lookup(id); err != nil {
		return err
	}
	if err := h.repo.Delete(ctx, id); err != nil {
		return err
	}
	_, err := h.reload(ctx)
	return err
}
