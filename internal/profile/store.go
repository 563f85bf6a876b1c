// Package profile provides the in-memory user profile store.
package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
)

// MemoryStore keeps profiles in a map keyed by user ID for the process lifetime.
type MemoryStore struct {
	profiles map[string]model.UserProfile
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]model.UserProfile),
		now:      time.Now,
	}
}

// Get returns the profile for userID or common.ErrProfileNotFound.
func (s *MemoryStore) Get(_ context.Context, userID string) (model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return model.UserProfile{}, fmt.Errorf("%w: %s", common.ErrProfileNotFound, userID)
	}
	return p, nil
}

// Save validates and stores the profile, replacing any previous version.
func (s *MemoryStore) Save(_ context.Context, p model.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	s.profiles[p.ID] = p
	return nil
}

// UpdateWealth overwrites the user's current savings.
func (s *MemoryStore) UpdateWealth(_ context.Context, userID string, wealth float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrProfileNotFound, userID)
	}
	p.Wealth = wealth
	p.UpdatedAt = s.now()
	s.profiles[userID] = p
	return nil
}

// List returns every profile ordered by user ID.
func (s *MemoryStore) List(_ context.Context) ([]model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes the profile. Deleting a missing profile is not an error.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}
