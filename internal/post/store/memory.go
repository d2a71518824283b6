package store

import (
	"context"
	"sync"
	"time"

	"veil/internal/post/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// InMemory keeps posts behind a mutex. Rate-limit counts are rolling
// recounts over timestamps rather than bucketed counters; at this volume the
// recompute is cheap and the semantics are exact.
type InMemory struct {
	mu        sync.RWMutex
	posts     map[id.PostID]*models.Post
	byPersona map[id.PersonaID][]id.PostID
}

func NewInMemory() *InMemory {
	return &InMemory{
		posts:     make(map[id.PostID]*models.Post),
		byPersona: make(map[id.PersonaID][]id.PostID),
	}
}

func (s *InMemory) Create(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.posts[p.ID] = &cp
	s.byPersona[p.PersonaID] = append(s.byPersona[p.PersonaID], p.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, postID id.PostID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// CountByPersonaSince counts one persona's posts created at or after since.
func (s *InMemory) CountByPersonaSince(_ context.Context, personaID id.PersonaID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(personaID, since), nil
}

// CountByPersonasSince counts posts across several personas, e.g. every
// persona an accountability profile has ever owned. Deactivated personas
// still count toward the account-wide ceiling.
func (s *InMemory) CountByPersonasSince(_ context.Context, personaIDs []id.PersonaID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, pid := range personaIDs {
		total += s.countLocked(pid, since)
	}
	return total, nil
}

func (s *InMemory) countLocked(personaID id.PersonaID, since time.Time) int {
	count := 0
	for _, postID := range s.byPersona[personaID] {
		if !s.posts[postID].CreatedAt.Before(since) {
			count++
		}
	}
	return count
}

// Execute runs validate then mutate on the post while holding the store lock.
func (s *InMemory) Execute(_ context.Context, postID id.PostID, validate func(*models.Post) error, mutate func(*models.Post)) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
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
