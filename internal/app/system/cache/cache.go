// internal/app/system/cache/cache.go

// Package cache implements the process-wide read cache for denormalized
// views. It is a namespaced in-memory key/value store with a per-namespace
// TTL policy and lazy eviction on read.
//
// A Cache is an explicit instance constructed once at startup and passed
// to every component that needs it, so tests can build a fresh instance
// instead of resetting shared process state. Entries are never persisted
// and never shared across processes; each process instance holds an
// independent cache, and the namespace TTLs bound the resulting
// staleness window.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Usage errors: a malformed argument to the cache API is a programming
// error and is never retried.
var (
	ErrEmptyNamespace = errors.New("cache: namespace must be a non-empty string")
	ErrEmptyKey       = errors.New("cache: key must be a non-empty string")
	ErrNilData        = errors.New("cache: data must not be nil")
)

// ErrUnknownNamespace is returned when an operation names a namespace
// that was not registered at construction time.
var ErrUnknownNamespace = errors.New("cache: unknown namespace")

// Kind tags the shape of a key so TTL selection is an exhaustive switch
// rather than a substring heuristic. List and stats entries share the
// shorter list TTL because both are derived from many documents and go
// stale on any write.
type Kind int

const (
	KindDetail Kind = iota
	KindList
	KindStats
)

// Policy holds the TTLs for one namespace.
type Policy struct {
	ListTTL   time.Duration
	DetailTTL time.Duration
}

// ttlFor maps a key kind to its TTL under this policy.
func (p Policy) ttlFor(kind Kind) (time.Duration, error) {
	switch kind {
	case KindDetail:
		return p.DetailTTL, nil
	case KindList, KindStats:
		return p.ListTTL, nil
	default:
		return 0, fmt.Errorf("cache: unknown key kind %d", kind)
	}
}

type entry struct {
	data      any
	writtenAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.After(e.writtenAt.Add(e.ttl))
}

type namespace struct {
	policy  Policy
	entries map[string]entry
}

// Cache is a namespaced TTL key/value store. Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the wall clock. Tests use this to exercise expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a cache with one partition per named policy. Namespaces
// are fixed for the lifetime of the instance.
func New(policies map[string]Policy, opts ...Option) *Cache {
	c := &Cache{
		namespaces: make(map[string]*namespace, len(policies)),
		now:        time.Now,
	}
	for name, p := range policies {
		c.namespaces[name] = &namespace{policy: p, entries: make(map[string]entry)}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached data for (ns, key), or ok=false when absent.
// An expired entry is evicted as a side effect and reported absent.
func (c *Cache) Get(ns, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.namespaces[ns]
	if !ok {
		return nil, false
	}
	e, ok := n.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(n.entries, key)
		return nil, false
	}
	return e.data, true
}

// Set stores data under (ns, key) with the TTL the namespace policy
// assigns to the key's kind. An existing entry is overwritten.
func (c *Cache) Set(ns, key string, kind Kind, data any) error {
	if ns == "" {
		return ErrEmptyNamespace
	}
	if key == "" {
		return ErrEmptyKey
	}
	if data == nil {
		return ErrNilData
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.namespaces[ns]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	ttl, err := n.policy.ttlFor(kind)
	if err != nil {
		return err
	}
	n.entries[key] = entry{data: data, writtenAt: c.now(), ttl: ttl}
	return nil
}

// Invalidate removes every entry in ns matched by scope and returns the
// number removed. Invalidating an unknown namespace is an error so that
// a typo cannot silently leave stale data behind.
func (c *Cache) Invalidate(ns string, scope Scope) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.namespaces[ns]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	if scope.kind == scopeWholeNamespace {
		removed := len(n.entries)
		n.entries = make(map[string]entry)
		return removed, nil
	}

	removed := 0
	for key := range n.entries {
		if scope.matches(key) {
			delete(n.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Clear removes every entry in ns. Identical to invalidating the whole
// namespace.
func (c *Cache) Clear(ns string) (int, error) {
	return c.Invalidate(ns, WholeNamespace())
}

// SweepExpired evicts every expired entry across all namespaces and
// returns the number evicted. Periodic housekeeping only; Get already
// refuses expired entries.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, n := range c.namespaces {
		for key, e := range n.entries {
			if e.expired(now) {
				delete(n.entries, key)
				removed++
			}
		}
	}
	return removed
}

// Stats reports the live entry count per namespace. Expired entries not
// yet evicted are included; call SweepExpired first for exact numbers.
func (c *Cache) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int, len(c.namespaces))
	for name, n := range c.namespaces {
		out[name] = len(n.entries)
	}
	return out
}
