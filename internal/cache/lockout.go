// Package cache holds short-lived login state: failed attempt counters and lockouts.
package cache

import (
	"context"
	"sync"
	"time"
)

// LockoutState is the failed-login record of one account key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// Locked reports whether the lockout is still in force at now.
func (s LockoutState) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// LockoutStore tracks failed logins per key.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	// RecordFailure counts one failure and locks the key for window once the count
	// reaches threshold.
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// MemoryLockoutStore is a process-local LockoutStore.
type MemoryLockoutStore struct {
	mu    sync.Mutex
	state map[string]LockoutState
}

func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{state: make(map[string]LockoutState)}
}

func (s *MemoryLockoutStore) Get(_ context.Context, key string) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key], nil
}

func (s *MemoryLockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state[key]
	if st.LockedUntil != nil && !now.Before(*st.LockedUntil) {
		st = LockoutState{}
	}
	st.FailedCount++
	if st.FailedCount >= threshold {
		until := now.Add(window).UTC()
		st.LockedUntil = &until
	}
	s.state[key] = st
	return st, nil
}

func (s *MemoryLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
	return nil
}
