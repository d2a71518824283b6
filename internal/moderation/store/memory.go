package store

import (
	"context"
	"sync"

	"veil/internal/moderation/models"
)

// InMemory is the append-only moderation audit log. Entries are copied on
// the way in and out; nothing ever mutates a stored record.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.LogEntry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append records an entry. There is no update or delete path.
func (s *InMemory) Append(_ context.Context, entry *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// FindByTarget returns entries for a target, newest first, capped at limit.
func (s *InMemory) FindByTarget(_ context.Context, target models.Target, limit int) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.LogEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindRecent returns the newest entries across all targets, capped at limit.
func (s *InMemory) FindRecent(_ context.Context, limit int) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.LogEntry, 0, len(s.entries)-start)
	for i := len(s.entries) - 1; i >= start; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
