// internal/infrastructure/database/redis/idempotency.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventGuard records processed provider event ids so repeated deliveries
// can be short-circuited. Ids are marked only after the event was applied.
type EventGuard struct {
	client *Client
	ttl    time.Duration
	scope  string
}

// NewEventGuard creates a guard whose marks expire after ttl
func NewEventGuard(client *Client, ttl time.Duration, scope string) (*EventGuard, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &EventGuard{client: client, ttl: ttl, scope: scope}, nil
}

// Seen reports whether eventID was marked as processed
func (g *EventGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	seen, err := g.client.Exists(ctx, g.key(eventID))
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return seen, nil
}

// Mark records eventID as processed for the guard's ttl
func (g *EventGuard) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	if _, err := g.client.SetNX(ctx, g.key(eventID), "1", g.ttl); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

func (g *EventGuard) key(eventID string) string {
	return g.client.Key("idempotency", g.scope, eventID)
}
