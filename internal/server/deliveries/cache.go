// Package deliveries remembers webhook deliveries that were already
// reconciled so repeats can be acknowledged without a database round trip.
// The database stays authoritative; a miss here only costs a lookup.
package deliveries

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Seen(ctx context.Context, kind models.JobKind, requestID string) (bool, error)
	Remember(ctx context.Context, kind models.JobKind, requestID string) error
}

func key(kind models.JobKind, requestID string) string {
	return fmt.Sprintf("webhook:%s:%s", kind, requestID)
}

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Redis{
		rdb: rdb,
		ttl: cfg.TTL,
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Seen(ctx context.Context, kind models.JobKind, requestID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key(kind, requestID)).Result()
	if err != nil {
		return false, fmt.Errorf("check delivery in redis: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Remember(ctx context.Context, kind models.JobKind, requestID string) error {
	if err := r.rdb.Set(ctx, key(kind, requestID), 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("store delivery in redis: %w", err)
	}
	return nil
}

// Nop is used when no Redis is configured.
type Nop struct{}

func (Nop) Seen(context.Context, models.JobKind, string) (bool, error) { return false, nil }
func (Nop) Remember(context.Context, models.JobKind, string) error     { return nil }
