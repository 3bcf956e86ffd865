package redislease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/jhoicas/logistica-api/internal/application/reconciliation"
	"github.com/jhoicas/logistica-api/pkg/config"
	"github.com/redis/go-redis/v9"
)

var _ reconciliation.Locker = (*Locker)(nil)

// Locker lease del worker sobre Redis (redislock, SET NX con TTL).
type Locker struct {
	client *redislock.Client
}

// New conecta a Redis y verifica con PING.
func New(ctx context.Context, cfg config.RedisConfig) (*Locker, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewWithClient(rdb), rdb, nil
}

// NewWithClient usa un cliente ya construido.
func NewWithClient(rdb redislock.RedisClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Obtain intenta una sola vez; si otra réplica tiene el lease devuelve ErrLeaseNotObtained.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (reconciliation.Lease, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, reconciliation.ErrLeaseNotObtained
		}
		return nil, fmt.Errorf("obtener lease %s: %w", key, err)
	}
	return lock, nil
}
