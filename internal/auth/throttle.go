package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed login attempts per username in Redis. When the
// client is nil the throttle is disabled and every attempt is allowed.
type LoginThrottle struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewLoginThrottle builds a throttle.
func NewLoginThrottle(client *redis.Client, max int, window time.Duration) *LoginThrottle {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, max: max, window: window}
}

func (t *LoginThrottle) key(username string) string {
	return fmt.Sprintf("auth:login_attempts:%s", username)
}

// Allow reports whether another login attempt is permitted for the username.
func (t *LoginThrottle) Allow(ctx context.Context, username string) (bool, error) {
	if t == nil || t.client == nil {
		return true, nil
	}
	count, err := t.client.Get(ctx, t.key(username)).Int()
	if err != nil && err != redis.Nil {
		return false, err
	}
	return count < t.max, nil
}

// RecordFailure increments the failure counter, starting the window on first miss.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if t == nil || t.client == nil {
		return nil
	}
	key := t.key(username)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return t.client.Expire(ctx, key, t.window).Err()
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Del(ctx, t.key(username)).Err()
}
