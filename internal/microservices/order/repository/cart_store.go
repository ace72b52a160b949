package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"restaurant-pos/internal/core/cart"
)

const (
	cartKeyPrefix = "pos:cart:"
	cartIndexKey  = "pos:carts"
	parcelSeqKey  = "pos:parcel:seq"
)

type CartStoreInterface interface {
	Load(ctx context.Context, sourceID string) (cart.Snapshot, bool, error)
	Save(ctx context.Context, s cart.Snapshot) error
	Delete(ctx context.Context, sourceID string) error
	List(ctx context.Context) ([]cart.Snapshot, error)
	NextParcelToken(ctx context.Context) (string, error)
}

// CartStore keeps one JSON snapshot per source under pos:cart:<sourceID> and
// the set of known sources under pos:carts.
type CartStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewCartStore(rdb redis.Cmdable, ttl time.Duration) *CartStore {
	return &CartStore{rdb: rdb, ttl: ttl}
}

func CartKey(sourceID string) string { return cartKeyPrefix + sourceID }

func (s *CartStore) Load(ctx context.Context, sourceID string) (cart.Snapshot, bool, error) {
	b, err := s.rdb.Get(ctx, CartKey(sourceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("load cart %s: %w", sourceID, err)
	}
	var snap cart.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("decode cart %s: %w", sourceID, err)
	}
	return snap, true, nil
}

func (s *CartStore) Save(ctx context.Context, snap cart.Snapshot) error {
	id := snap.Source.ID()
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", id, err)
	}
	if err := s.rdb.Set(ctx, CartKey(id), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", id, err)
	}
	if err := s.rdb.SAdd(ctx, cartIndexKey, id).Err(); err != nil {
		return fmt.Errorf("index cart %s: %w", id, err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, sourceID string) error {
	if err := s.rdb.Del(ctx, CartKey(sourceID)).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", sourceID, err)
	}
	if err := s.rdb.SRem(ctx, cartIndexKey, sourceID).Err(); err != nil {
		return fmt.Errorf("unindex cart %s: %w", sourceID, err)
	}
	return nil
}

// List returns every stored cart. Index entries whose snapshot expired are
// skipped.
func (s *CartStore) List(ctx context.Context) ([]cart.Snapshot, error) {
	ids, err := s.rdb.SMembers(ctx, cartIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = CartKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	out := make([]cart.Snapshot, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var snap cart.Snapshot
		if err := json.Unmarshal([]byte(str), &snap); err != nil {
			return nil, fmt.Errorf("decode cart %s: %w", ids[i], err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// NextParcelToken hands out increasing parcel numbers shared by every
// order-service instance.
func (s *CartStore) NextParcelToken(ctx context.Context) (string, error) {
	n, err := s.rdb.Incr(ctx, parcelSeqKey).Result()
	if err != nil {
		return "", fmt.Errorf("next parcel token: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}
