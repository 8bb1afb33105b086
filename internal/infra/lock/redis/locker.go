package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"rentspace/internal/app/middleware"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another request is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker grants keyed locks shared by every API instance using the same Redis.
type Locker struct {
	Client *goredis.Client
	Prefix string
	// Wait bounds how long Acquire retries a busy key before giving up.
	Wait  time.Duration
	Retry time.Duration
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func Ping(ctx context.Context, client *goredis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l.Client == nil {
		return nil, errors.New("redis: locker client missing")
	}
	full := l.prefix() + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)
	for {
		ok, err := l.Client.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.Client, []string{full}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, middleware.ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry()):
		}
	}
}

func (l *Locker) prefix() string {
	if l.Prefix == "" {
		return "rentspace:lock:"
	}
	return l.Prefix
}

func (l *Locker) retry() time.Duration {
	if l.Retry <= 0 {
		return 25 * time.Millisecond
	}
	return l.Retry
}

var _ middleware.Locker = (*Locker)(nil)
