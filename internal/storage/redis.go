package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to a redis:// or rediss:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, ErrRedisURLRequired
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// DefaultLedgerTTL keeps processed webhook ids longer than Stripe's retry window.
const DefaultLedgerTTL = 72 * time.Hour

const ledgerKeyPrefix = "remindr:webhook:"

// RedisEventLedger records processed webhook event ids for idempotency.
type RedisEventLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisEventLedger creates a ledger. A zero ttl uses DefaultLedgerTTL.
func NewRedisEventLedger(client redis.UniversalClient, ttl time.Duration) *RedisEventLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &RedisEventLedger{client: client, ttl: ttl}
}

func ledgerKey(eventID string) string {
	return ledgerKeyPrefix + eventID
}

// MarkProcessed claims eventID. It returns true the first time an id is seen
// and false for duplicates within the TTL.
func (l *RedisEventLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}

	ok, err := l.client.SetNX(ctx, ledgerKey(eventID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, wrapRedisError("mark processed", err)
	}
	return ok, nil
}

// Release forgets eventID so a redelivery is processed again.
func (l *RedisEventLedger) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return ErrEmptyEventID
	}
	if err := l.client.Del(ctx, ledgerKey(eventID)).Err(); err != nil {
		return wrapRedisError("release", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (l *RedisEventLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
