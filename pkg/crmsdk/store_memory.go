package crmsdk

import (
	"context"
	"sync"
)

// MemoryStore is an in-process SessionStore for tests and for applications
// that manage their own persistence.
type MemoryStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements SessionStore.
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = cloneSnapshot(snap)
	return nil
}

// Load implements SessionStore.
func (s *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.snap), nil
}

// SetAccessToken implements SessionStore.
func (s *MemoryStore) SetAccessToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.AccessToken = token
	return nil
}

// AccessToken implements SessionStore.
func (s *MemoryStore) AccessToken(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.AccessToken, nil
}

// Clear implements SessionStore. Idempotent.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
	return nil
}

// cloneSnapshot copies the snapshot so callers cannot mutate stored state
// through shared slices.
func cloneSnapshot(snap Snapshot) Snapshot {
	out := snap
	if snap.Profile != nil {
		profile := *snap.Profile
		profile.Roles = append([]Role(nil), snap.Profile.Roles...)
		out.Profile = &profile
	}
	if snap.AbilityRules != nil {
		out.AbilityRules = append([]AbilityRule(nil), snap.AbilityRules...)
	}
	if snap.FeatureRoles != nil {
		out.FeatureRoles = append([]string(nil), snap.FeatureRoles...)
	}
	return out
}
