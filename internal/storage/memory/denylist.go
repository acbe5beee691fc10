package memory

import (
	"context"
	"sync"
	"time"
)

// DenylistStorage is a process-local TTL set. Suitable only for a single
// instance; use the redis implementation when horizontally scaled.
type DenylistStorage struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewDenylistStorage() *DenylistStorage {
	return &DenylistStorage{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (d *DenylistStorage) Add(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[jti] = d.now().Add(ttl)
	return nil
}

func (d *DenylistStorage) Contains(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(d.now()) {
		delete(d.entries, jti)
		return false, nil
	}
	return true, nil
}

// Len reports live plus not yet collected entries.
func (d *DenylistStorage) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
