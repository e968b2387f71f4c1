package usecase

import (
	"context"
	"slices"
	"sync"
	"time"

	"hospital-booking/pkg/apperror"

	"golang.org/x/sync/semaphore"
)

// keyedLocks hands out one single-writer lock per key. Entries are removed
// once nobody holds or waits for them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyLock)}
}

// acquire blocks until the lock for key is held, ctx is done, or timeout
// elapses. The returned func releases the lock.
func (k *keyedLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{sem: semaphore.NewWeighted(1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		k.unref(key, l)
		if ctx.Err() != nil {
			e := apperror.NewConflictError("stopped waiting for %s", key)
			e.Err = ctx.Err()
			return nil, e
		}
		return nil, apperror.NewConflictError("timed out after %s waiting for %s", timeout, key)
	}

	return func() {
		l.sem.Release(1)
		k.unref(key, l)
	}, nil
}

// acquireAll takes the locks for keys in sorted order so that callers
// locking overlapping sets cannot deadlock. On failure nothing stays held.
func (k *keyedLocks) acquireAll(ctx context.Context, keys []string, timeout time.Duration) (func(), error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	unlocks := make([]func(), 0, len(sorted))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, key := range sorted {
		unlock, err := k.acquire(ctx, key, timeout)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func (k *keyedLocks) unref(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
