package memory

import (
	"context"
	"sync"
	"time"

	"rentspace/internal/app/middleware"
)

// KeyedLocker is an in-process mutex per key for single-instance deployments.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch      chan struct{}
	waiters int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyLock)}
}

// Acquire blocks until key is free or ctx is done. ttl is ignored: the lock
// lives until release.
func (l *KeyedLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.leave(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-kl.ch
			l.leave(key, kl)
		})
		return nil
	}, nil
}

func (l *KeyedLocker) leave(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

var _ middleware.Locker = (*KeyedLocker)(nil)
