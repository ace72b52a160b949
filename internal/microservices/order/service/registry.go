package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"restaurant-pos/internal/core/cart"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

// errCartNotCleared reports that a checkout committed but the billed cart
// could not be deleted afterwards. The cart stays in the billed state.
var errCartNotCleared = errors.New("billed cart not cleared")

// Registry serializes every mutation of one source's cart. Carts themselves
// live in the store; the registry only owns the per-source locks.
type Registry struct {
	store repository.CartStoreInterface

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry(store repository.CartStoreInterface) *Registry {
	return &Registry{store: store, locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) lock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// load returns the stored cart, or a fresh one and false when the source has
// none.
func (r *Registry) load(ctx context.Context, src domain.Source) (*cart.Cart, bool, error) {
	snap, ok, err := r.store.Load(ctx, src.ID())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return cart.New(src), false, nil
	}
	c, err := cart.Restore(snap)
	return c, true, err
}

// Get returns the stored cart, or a fresh one when the source has none.
func (r *Registry) Get(ctx context.Context, src domain.Source) (*cart.Cart, error) {
	l := r.lock(src.ID())
	l.Lock()
	defer l.Unlock()
	c, _, err := r.load(ctx, src)
	return c, err
}

// Create stores an empty cart for src unless it already has one.
func (r *Registry) Create(ctx context.Context, src domain.Source) (*cart.Cart, error) {
	l := r.lock(src.ID())
	l.Lock()
	defer l.Unlock()

	c, stored, err := r.load(ctx, src)
	if err != nil || stored {
		return c, err
	}
	if err := r.store.Save(ctx, c.Snapshot()); err != nil {
		return nil, err
	}
	return c, nil
}

// With runs fn on the source's cart while holding its lock and saves the
// result. When fn fails nothing is saved, and a source without a cart keeps
// having none as long as fn leaves the fresh cart untouched.
func (r *Registry) With(ctx context.Context, src domain.Source, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	l := r.lock(src.ID())
	l.Lock()
	defer l.Unlock()

	c, stored, err := r.load(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if !stored && c.IsEmpty() && c.State() == domain.StateOrdering {
		return c, nil
	}
	if err := r.store.Save(ctx, c.Snapshot()); err != nil {
		return nil, err
	}
	return c, nil
}

// Checkout runs finalize on the stored cart and saves the finalized state
// before commit runs, so a repeated checkout finds the cart already billed.
// A failed commit puts the previous state back. After a successful commit the
// cart is deleted; when only that delete fails the error wraps
// errCartNotCleared.
func (r *Registry) Checkout(ctx context.Context, src domain.Source, finalize func(c *cart.Cart) error, commit func(ctx context.Context) error) error {
	l := r.lock(src.ID())
	l.Lock()
	defer l.Unlock()

	c, _, err := r.load(ctx, src)
	if err != nil {
		return err
	}
	before := c.Snapshot()
	if err := finalize(c); err != nil {
		return err
	}
	if err := r.store.Save(ctx, c.Snapshot()); err != nil {
		return err
	}
	if err := commit(ctx); err != nil {
		if rerr := r.store.Save(context.WithoutCancel(ctx), before); rerr != nil {
			return errors.Join(err, fmt.Errorf("restore %s: %w", src.ID(), rerr))
		}
		return err
	}
	if err := r.store.Delete(ctx, src.ID()); err != nil {
		return fmt.Errorf("%w: %s: %v", errCartNotCleared, src.ID(), err)
	}
	return nil
}

// Release runs fn while src holds no cart with anything on it, e.g. before a
// table leaves the layout. A stored cart without items is dropped first.
func (r *Registry) Release(ctx context.Context, src domain.Source, fn func(ctx context.Context) error) error {
	l := r.lock(src.ID())
	l.Lock()
	defer l.Unlock()

	c, stored, err := r.load(ctx, src)
	if err != nil {
		return err
	}
	if stored && (!c.IsEmpty() || c.State() != domain.StateOrdering) {
		return fmt.Errorf("%s has an open cart in %s: %w", src.Label(), c.State(), domain.ErrInvalidState)
	}
	if stored {
		if err := r.store.Delete(ctx, src.ID()); err != nil {
			return err
		}
	}
	return fn(ctx)
}

// Drop deletes the source's cart. fn, when given, runs first under the same
// lock and can veto the drop by failing.
func (r *Registry) Drop(ctx context.Context, src domain.Source, fn func(c *cart.Cart) error) error {
	l := r.lock(src.ID())
	l.Lock()
	defer l.Unlock()

	if fn != nil {
		c, _, err := r.load(ctx, src)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return r.store.Delete(ctx, src.ID())
}

func (r *Registry) List(ctx context.Context) ([]*cart.Cart, error) {
	snaps, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*cart.Cart, 0, len(snaps))
	for _, s := range snaps {
		c, err := cart.Restore(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
