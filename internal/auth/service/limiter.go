package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts login attempts per client in Redis. Each counter expires
// with its window, so idle clients leave no state behind.
type Limiter struct {
	redis  *redis.Client
	log    *zap.Logger
	max    int
	window time.Duration
}

func NewLimiter(client *redis.Client, log *zap.Logger, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{redis: client, log: log, max: max, window: window}
}

func limiterKey(clientID string) string {
	return fmt.Sprintf("auth:login:attempts:%s", clientID)
}

// Hit records an attempt and reports whether it is still within the limit.
func (l *Limiter) Hit(ctx context.Context, clientID string) bool {
	key := limiterKey(clientID)

	// NX keeps the first attempt's window and gives any counter left without
	// a TTL one again.
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		l.log.Error("failed to record login attempt", zap.Error(err))
		// Fail open, the password check still applies.
		return true
	}
	return incr.Val() <= int64(l.max)
}

func (l *Limiter) Reset(ctx context.Context, clientID string) {
	if err := l.redis.Del(ctx, limiterKey(clientID)).Err(); err != nil {
		l.log.Warn("failed to reset login attempts", zap.Error(err))
	}
}
