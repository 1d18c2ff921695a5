// internal/domain/cart/guest_store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxGuestRetries = 16

// guestStore keeps anonymous carts as JSON documents in Redis. Every
// mutation is a WATCH/MULTI/EXEC read-modify-write on the cart key.
type guestStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func guestCartKey(token string) string {
	return fmt.Sprintf("cart:session:%s", token)
}

func (g *guestStore) read(ctx context.Context, src getter, token string) (*SessionCart, error) {
	data, err := src.Get(ctx, guestCartKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		now := g.now()
		return &SessionCart{SessionID: token, Items: []Line{}, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	var sc SessionCart
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	if sc.Items == nil {
		sc.Items = []Line{}
	}
	return &sc, nil
}

// update applies fn to the current cart and writes it back atomically,
// retrying when another writer touched the key in between.
func (g *guestStore) update(ctx context.Context, token string, fn func(*SessionCart) error) error {
	key := guestCartKey(token)

	txf := func(tx *redis.Tx) error {
		sc, err := g.read(ctx, tx, token)
		if err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			return err
		}
		sc.UpdatedAt = g.now()

		data, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("failed to encode guest cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(sc.Items) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, g.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxGuestRetries; i++ {
		err := g.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConcurrentUpdate
}

func (g *guestStore) lines(ctx context.Context, token string) ([]Line, error) {
	sc, err := g.read(ctx, g.rdb, token)
	if err != nil {
		return nil, err
	}
	return sc.Items, nil
}

func (g *guestStore) add(ctx context.Context, token string, line Line) error {
	return g.update(ctx, token, func(sc *SessionCart) error {
		if i := sc.find(line.ProductID); i >= 0 {
			sc.Items[i].Quantity += line.Quantity
			sc.Items[i].UnitPrice = line.UnitPrice
			sc.Items[i].Name = line.Name
			return nil
		}
		line.AddedAt = g.now()
		sc.Items = append(sc.Items, line)
		return nil
	})
}

func (g *guestStore) set(ctx context.Context, token string, productID uint, quantity int) error {
	return g.update(ctx, token, func(sc *SessionCart) error {
		i := sc.find(productID)
		if i < 0 {
			return ErrLineNotFound
		}
		sc.Items[i].Quantity = quantity
		return nil
	})
}

func (g *guestStore) adjust(ctx context.Context, token string, productID uint, delta int) error {
	return g.update(ctx, token, func(sc *SessionCart) error {
		i := sc.find(productID)
		if i < 0 {
			return ErrLineNotFound
		}
		sc.Items[i].Quantity += delta
		if sc.Items[i].Quantity <= 0 {
			sc.remove(i)
		}
		return nil
	})
}

func (g *guestStore) removeLine(ctx context.Context, token string, productID uint) error {
	return g.update(ctx, token, func(sc *SessionCart) error {
		if i := sc.find(productID); i >= 0 {
			sc.remove(i)
		}
		return nil
	})
}

func (g *guestStore) clear(ctx context.Context, token string) error {
	if err := g.rdb.Del(ctx, guestCartKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}
