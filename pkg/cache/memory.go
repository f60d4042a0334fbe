package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker and MemoryDeduper serve single-instance runs without Redis.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time), clock: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	l.held[key] = now.Add(ttl)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type MemoryDeduper struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time), clock: time.Now}
}

func (d *MemoryDeduper) Mark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	if until, ok := d.seen[key]; ok && now.Before(until) {
		return false, nil
	}
	d.seen[key] = now.Add(ttl)
	return true, nil
}
