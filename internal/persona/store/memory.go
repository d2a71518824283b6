package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"veil/internal/persona/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// nameClaim records the last accountability profile to use a display name.
// The recency window check is content-addressed by the folded name, not by
// persona identity; that is what stops impersonation after rotation.
type nameClaim struct {
	owner    id.AccountabilityID
	lastUsed time.Time
}

// InMemory keeps personas behind a mutex. CreateIfAllowed runs the active
// count, the display-name recency check, and the insert under a single lock
// acquisition, closing the read-then-write races the quota and uniqueness
// checks would otherwise have.
type InMemory struct {
	mu       sync.RWMutex
	personas map[id.PersonaID]*models.Persona
	byOwner  map[id.AccountabilityID][]id.PersonaID
	names    map[string]nameClaim
}

func NewInMemory() *InMemory {
	return &InMemory{
		personas: make(map[id.PersonaID]*models.Persona),
		byOwner:  make(map[id.AccountabilityID][]id.PersonaID),
		names:    make(map[string]nameClaim),
	}
}

// foldName normalizes display names for the recency index.
func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateIfAllowed atomically inserts the persona when both conditions hold:
//   - the owner has fewer than maxActive active personas (else ErrLimitReached)
//   - the folded display name was not used by a different accountability
//     profile within reuseWindow (else ErrAlreadyUsed)
//
// On success the display name claim is refreshed to the persona's owner.
func (s *InMemory) CreateIfAllowed(_ context.Context, p *models.Persona, maxActive int, reuseWindow time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, pid := range s.byOwner[p.AccountabilityID] {
		if s.personas[pid].IsActive() {
			active++
		}
	}
	if active >= maxActive {
		return sentinel.ErrLimitReached
	}

	folded := foldName(p.DisplayName)
	if claim, ok := s.names[folded]; ok {
		if claim.owner != p.AccountabilityID && p.CreatedAt.Sub(claim.lastUsed) < reuseWindow {
			return sentinel.ErrAlreadyUsed
		}
	}

	cp := *p
	s.personas[p.ID] = &cp
	s.byOwner[p.AccountabilityID] = append(s.byOwner[p.AccountabilityID], p.ID)
	s.names[folded] = nameClaim{owner: p.AccountabilityID, lastUsed: p.CreatedAt}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, personaID id.PersonaID) (*models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.personas[personaID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListActiveByOwner returns the owner's active personas, creation order.
func (s *InMemory) ListActiveByOwner(_ context.Context, owner id.AccountabilityID) ([]*models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Persona
	for _, pid := range s.byOwner[owner] {
		if p := s.personas[pid]; p.IsActive() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByOwner returns all of the owner's personas regardless of lifecycle
// state. Used for account-wide post counting, where deactivated personas
// still count against the shared ceiling.
func (s *InMemory) ListByOwner(_ context.Context, owner id.AccountabilityID) ([]*models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Persona
	for _, pid := range s.byOwner[owner] {
		cp := *s.personas[pid]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) CountActiveByOwner(_ context.Context, owner id.AccountabilityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, pid := range s.byOwner[owner] {
		if s.personas[pid].IsActive() {
			count++
		}
	}
	return count, nil
}

// Execute runs validate then mutate on the persona while holding the store
// lock. Returns the mutated copy.
func (s *InMemory) Execute(_ context.Context, personaID id.PersonaID, validate func(*models.Persona) error, mutate func(*models.Persona)) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.personas[personaID]
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
