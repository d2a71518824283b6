package store

import (
	"context"
	"sync"

	"veil/internal/accountability/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// InMemory keeps accountability profiles behind a mutex. The email-key
// uniqueness check and the insert happen under one lock acquisition, so two
// concurrent registrations for the same email cannot both pass.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.AccountabilityID]*models.Profile
	byKey    map[string]id.AccountabilityID
}

func NewInMemory() *InMemory {
	return &InMemory{
		profiles: make(map[id.AccountabilityID]*models.Profile),
		byKey:    make(map[string]id.AccountabilityID),
	}
}

// CreateIfEmailKeyAvailable inserts the profile unless the email lookup key
// is already taken. Returns sentinel.ErrAlreadyUsed on a duplicate key.
func (s *InMemory) CreateIfEmailKeyAvailable(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byKey[p.EmailKey]; taken {
		return sentinel.ErrAlreadyUsed
	}
	cp := *p
	s.profiles[p.ID] = &cp
	s.byKey[p.EmailKey] = p.ID
	return nil
}

// Remove deletes a profile and frees its email key. Removing an absent
// profile is a no-op, so compensation paths can call it unconditionally.
func (s *InMemory) Remove(_ context.Context, profileID id.AccountabilityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil
	}
	delete(s.byKey, p.EmailKey)
	delete(s.profiles, profileID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, profileID id.AccountabilityID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// FindByEmailKey resolves a profile by its one-way lookup key. This is the
// only email-shaped lookup the store offers; the encrypted form is write-only.
func (s *InMemory) FindByEmailKey(_ context.Context, emailKey string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profileID, ok := s.byKey[emailKey]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.profiles[profileID]
	return &cp, nil
}

// Execute runs validate then mutate on the profile while holding the store
// lock, so concurrent updates serialize per store. Returns the mutated copy.
func (s *InMemory) Execute(_ context.Context, profileID id.AccountabilityID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	cp := *p
	return &cp, nil
}
