package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veil/internal/post/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

type PostStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *PostStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPostStoreSuite(t *testing.T) {
	suite.Run(t, new(PostStoreSuite))
}

func (s *PostStoreSuite) newPost(personaID id.PersonaID, at time.Time) *models.Post {
	p, err := models.NewPost(id.NewPostID(), personaID, "hello there", at)
	s.Require().NoError(err)
	return p
}

func (s *PostStoreSuite) TestCreateAndFind() {
	personaID := id.NewPersonaID()
	p := s.newPost(personaID, s.now)
	s.Require().NoError(s.store.Create(s.ctx, p))

	found, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.Body, found.Body)
	s.Equal(models.ModerationVisible, found.ModerationStatus)

	_, err = s.store.FindByID(s.ctx, id.NewPostID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostStoreSuite) TestWindowCounts() {
	personaA := id.NewPersonaID()
	personaB := id.NewPersonaID()

	// Two inside the window, one exactly at the boundary, one before it.
	s.Require().NoError(s.store.Create(s.ctx, s.newPost(personaA, s.now.Add(-10*time.Minute))))
	s.Require().NoError(s.store.Create(s.ctx, s.newPost(personaA, s.now.Add(-30*time.Minute))))
	s.Require().NoError(s.store.Create(s.ctx, s.newPost(personaA, s.now.Add(-time.Hour))))
	s.Require().NoError(s.store.Create(s.ctx, s.newPost(personaA, s.now.Add(-2*time.Hour))))
	s.Require().NoError(s.store.Create(s.ctx, s.newPost(personaB, s.now.Add(-5*time.Minute))))

	since := s.now.Add(-time.Hour)

	s.Run("per persona, boundary inclusive", func() {
		count, err := s.store.CountByPersonaSince(s.ctx, personaA, since)
		s.Require().NoError(err)
		s.Equal(3, count)
	})

	s.Run("across personas", func() {
		count, err := s.store.CountByPersonasSince(s.ctx, []id.PersonaID{personaA, personaB}, since)
		s.Require().NoError(err)
		s.Equal(4, count)
	})

	s.Run("empty persona set counts zero", func() {
		count, err := s.store.CountByPersonasSince(s.ctx, nil, since)
		s.Require().NoError(err)
		s.Zero(count)
	})
}

func (s *PostStoreSuite) TestModerationTransitions() {
	p := s.newPost(id.NewPersonaID(), s.now)
	s.Require().NoError(s.store.Create(s.ctx, p))

	s.Run("removal flips moderation status", func() {
		updated, err := s.store.Execute(s.ctx, p.ID,
			func(q *models.Post) error { return q.CanRemove() },
			func(q *models.Post) { q.ApplyRemoval(s.now.Add(time.Minute)) },
		)
		s.Require().NoError(err)
		s.Equal(models.ModerationRemoved, updated.ModerationStatus)
	})

	s.Run("double removal fails validation", func() {
		_, err := s.store.Execute(s.ctx, p.ID,
			func(q *models.Post) error { return q.CanRemove() },
			func(q *models.Post) { q.ApplyRemoval(s.now) },
		)
		s.Require().Error(err)
	})

	s.Run("restore brings the post back", func() {
		updated, err := s.store.Execute(s.ctx, p.ID,
			func(q *models.Post) error { return q.CanRestore() },
			func(q *models.Post) { q.ApplyRestore(s.now.Add(2 * time.Minute)) },
		)
		s.Require().NoError(err)
		s.Equal(models.ModerationVisible, updated.ModerationStatus)
	})
}
