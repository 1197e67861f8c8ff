// Package cache is a small key/value layer shared by lookups and history.
package cache

import (
	"context"
	"sync"
	"time"
)

type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type options struct {
	ttl time.Duration
	now func() time.Time
}

type Option func(*options)

// WithTTL expires entries ttl after they were set. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type entry[S any] struct {
	val     S
	expires time.Time
}

// MemoryCache is a process-local Cache. Expired entries are dropped lazily
// on read.
type MemoryCache[S any] struct {
	mu  sync.RWMutex
	m   map[string]entry[S]
	ttl time.Duration
	now func() time.Time
}

func NewMemoryCache[S any](opts ...Option) *MemoryCache[S] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryCache[S]{m: map[string]entry[S]{}, ttl: o.ttl, now: o.now}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	e := entry[S]{val: val}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.m[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.RLock()
	e, ok := m.m[key]
	m.mu.RUnlock()
	if !ok {
		var zero S
		return zero, false, nil
	}
	if m.expired(e) {
		m.mu.Lock()
		if cur, ok := m.m[key]; ok && m.expired(cur) {
			delete(m.m, key)
		}
		m.mu.Unlock()
		var zero S
		return zero, false, nil
	}
	return e.val, true, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *MemoryCache[S]) expired(e entry[S]) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

var _ Cache[int] = (*MemoryCache[int])(nil)
