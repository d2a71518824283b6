package store

import (
	"context"
	"sync"

	"veil/internal/trust/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// InMemory is the append-only trust ledger. Entries are never updated or
// removed; the current level is whichever grant carries the latest GrantedAt.
type InMemory struct {
	mu     sync.RWMutex
	grants map[id.PersonaID][]models.Grant
}

func NewInMemory() *InMemory {
	return &InMemory{grants: make(map[id.PersonaID][]models.Grant)}
}

// Append records a grant. Pure append, no upsert path exists.
func (s *InMemory) Append(_ context.Context, grant *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.PersonaID] = append(s.grants[grant.PersonaID], *grant)
	return nil
}

// CurrentLevel returns the level of the grant with the latest GrantedAt.
// Returns sentinel.ErrNotFound when the persona has no ledger entries;
// callers treat that as implicit NEW (a crash between persona creation and
// the first grant must not take reads down with it).
func (s *InMemory) CurrentLevel(_ context.Context, personaID id.PersonaID) (models.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grants := s.grants[personaID]
	if len(grants) == 0 {
		return "", sentinel.ErrNotFound
	}
	latest := grants[0]
	for _, g := range grants[1:] {
		if g.GrantedAt.After(latest.GrantedAt) {
			latest = g
		}
	}
	return latest.Level, nil
}

// HistoryByPersona returns all grants for a persona in append order.
func (s *InMemory) HistoryByPersona(_ context.Context, personaID id.PersonaID) ([]models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Grant{}, s.grants[personaID]...), nil
}
