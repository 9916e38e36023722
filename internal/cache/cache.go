// Package cache provides the shared TTL cache used by the source fetcher and
// the generation pipeline. It is injected rather than global so tests can
// drive it with a deterministic clock.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock abstracts time for TTL checks.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-memory TTL cache with per-key in-flight coalescing.
// Expiry is checked at read time; there is no background sweep.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	clock   Clock
}

func New(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Store{
		entries: make(map[string]entry),
		clock:   clock,
	}
}

// Get returns the cached value for key if present and not expired.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.clock.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, replacing any existing entry (last writer wins).
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: s.clock.Now().Add(ttl)}
	s.mu.Unlock()
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Do returns the cached value for key or computes it with fn, caching a
// successful result for ttl. Concurrent callers for the same key collapse to
// a single execution of fn; every waiter observes the same value or error.
// force bypasses a fresh entry and replaces it on success.
//
// fn runs on a context detached from the calling request, so one caller
// abandoning the request never cancels work other callers are waiting on.
func (s *Store) Do(ctx context.Context, key string, ttl time.Duration, force bool, fn func(context.Context) (any, error)) (any, bool, error) {
	if !force {
		if v, ok := s.Get(key); ok {
			return v, true, nil
		}
	}

	detached := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// A waiter queued behind a just-finished flight may find the
		// entry already written; avoid recomputing.
		if !force {
			if v, ok := s.Get(key); ok {
				return v, nil
			}
		}
		v, err := fn(detached)
		if err != nil {
			return nil, err
		}
		s.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}
