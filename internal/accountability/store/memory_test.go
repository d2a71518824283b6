package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veil/internal/accountability/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

type AccountabilityStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *AccountabilityStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestAccountabilityStoreSuite(t *testing.T) {
	suite.Run(t, new(AccountabilityStoreSuite))
}

func (s *AccountabilityStoreSuite) newProfile(emailKey string) *models.Profile {
	p, err := models.NewProfile(id.NewAccountabilityID(), emailKey, "cipher", "hash", s.now)
	s.Require().NoError(err)
	return p
}

func (s *AccountabilityStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by ID and email key", func() {
		p := s.newProfile("key-1")
		s.Require().NoError(s.store.CreateIfEmailKeyAvailable(s.ctx, p))

		byID, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.EmailKey, byID.EmailKey)

		byKey, err := s.store.FindByEmailKey(s.ctx, "key-1")
		s.Require().NoError(err)
		s.Equal(p.ID, byKey.ID)
	})

	s.Run("rejects duplicate email key", func() {
		dup := s.newProfile("key-1")
		err := s.store.CreateIfEmailKeyAvailable(s.ctx, dup)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("returns ErrNotFound for unknown lookups", func() {
		_, err := s.store.FindByID(s.ctx, id.NewAccountabilityID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByEmailKey(s.ctx, "no-such-key")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AccountabilityStoreSuite) TestExecute() {
	p := s.newProfile("key-exec")
	s.Require().NoError(s.store.CreateIfEmailKeyAvailable(s.ctx, p))

	s.Run("applies validated mutations", func() {
		updated, err := s.store.Execute(s.ctx, p.ID,
			func(q *models.Profile) error { return q.CanApplyAbuseScore(0.8) },
			func(q *models.Profile) { q.ApplyAbuseScore(0.8, s.now.Add(time.Minute)) },
		)
		s.Require().NoError(err)
		s.Equal(0.8, updated.AbuseScore)
		s.Equal(models.RiskHigh, updated.RiskLevel)

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(0.8, found.AbuseScore)
	})

	s.Run("validate failure leaves state untouched", func() {
		_, err := s.store.Execute(s.ctx, p.ID,
			func(q *models.Profile) error { return q.CanApplyAbuseScore(1.5) },
			func(q *models.Profile) { q.ApplyAbuseScore(1.5, s.now) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(0.8, found.AbuseScore)
	})

	s.Run("unknown profile returns ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, id.NewAccountabilityID(),
			func(*models.Profile) error { return nil },
			func(*models.Profile) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("copies are detached from the store", func() {
		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		found.AbuseScore = 0.0

		again, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(0.8, again.AbuseScore)
	})
}
