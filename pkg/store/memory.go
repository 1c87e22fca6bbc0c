// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"
	"time"

	"github.com/authcore/oidcauth/pkg/logger"
)

// DefaultCleanupInterval is how often MemoryStore sweeps for expired
// entries between lookups.
const DefaultCleanupInterval = time.Minute

type entry struct {
	value     []byte
	expiresAt time.Time // zero means "no expiry"
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process KVStore suitable for single-instance
// deployments and for tests. It linearizes all operations through a single
// mutex, which trivially satisfies the per-key linearizability spec §6
// requires.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]entry
	clock  func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMemoryStore creates a MemoryStore with the default cleanup interval.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCleanupInterval(DefaultCleanupInterval)
}

// NewMemoryStoreWithCleanupInterval creates a MemoryStore whose background
// janitor runs at the given interval. An interval <= 0 disables the
// janitor; expired entries are still hidden from Get/GetAndRemove, just
// never proactively evicted.
func NewMemoryStoreWithCleanupInterval(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data:  make(map[string]entry),
		clock: time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if interval > 0 {
		go s.janitor(interval)
	} else {
		close(s.doneCh)
	}
	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.data {
		if e.expired(now) {
			delete(s.data, k)
		}
	}
}

// Get implements KVStore.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || e.expired(s.clock()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Set implements KVStore.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Remove implements KVStore.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// GetAndRemove implements KVStore, atomically under the single mutex.
func (s *MemoryStore) GetAndRemove(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || e.expired(s.clock()) {
		return nil, ErrNotFound
	}
	delete(s.data, key)
	return e.value, nil
}

// Close stops the background janitor.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopCh:
		// already closed
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	logger.Debug("memory store closed")
	return nil
}

// Len returns the number of entries currently stored, including not-yet-
// swept expired ones. Exposed for tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
