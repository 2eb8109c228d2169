package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LoginThrottle counts failed login attempts per client IP in redis.
// A nil throttle disables throttling. Redis outages fail open: the
// throttle protects against brute force, it must not take logins down
// with it.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	log         zerolog.Logger
}

func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration, log zerolog.Logger) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		log:         log,
	}
}

func (t *LoginThrottle) key(ip string) string {
	return fmt.Sprintf("login_attempts:%s", ip)
}

func (t *LoginThrottle) Blocked(ctx context.Context, ip string) bool {
	if t == nil || t.client == nil || ip == "" {
		return false
	}

	count, err := t.client.Get(ctx, t.key(ip)).Int()
	if err != nil {
		if err != redis.Nil {
			t.log.Warn().Err(err).Msg("login throttle read failed")
		}
		return false
	}
	return count >= t.maxAttempts
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, ip string) {
	if t == nil || t.client == nil || ip == "" {
		return
	}

	pipe := t.client.Pipeline()
	pipe.Incr(ctx, t.key(ip))
	pipe.Expire(ctx, t.key(ip), t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		t.log.Warn().Err(err).Msg("login throttle write failed")
	}
}

func (t *LoginThrottle) Reset(ctx context.Context, ip string) {
	if t == nil || t.client == nil || ip == "" {
		return
	}
	if err := t.client.Del(ctx, t.key(ip)).Err(); err != nil {
		t.log.Warn().Err(err).Msg("login throttle reset failed")
	}
}
