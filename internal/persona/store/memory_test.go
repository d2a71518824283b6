package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veil/internal/persona/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

const testReuseWindow = 30 * 24 * time.Hour

type PersonaStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *PersonaStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPersonaStoreSuite(t *testing.T) {
	suite.Run(t, new(PersonaStoreSuite))
}

func (s *PersonaStoreSuite) newPersona(owner id.AccountabilityID, name string) *models.Persona {
	p, err := models.NewPersona(id.NewPersonaID(), owner, name, "", s.now)
	s.Require().NoError(err)
	return p
}

func (s *PersonaStoreSuite) TestCreationAndLookups() {
	owner := id.NewAccountabilityID()

	s.Run("creates and finds persona by ID", func() {
		p := s.newPersona(owner, "Quiet Fox")
		s.Require().NoError(s.store.CreateIfAllowed(s.ctx, p, 3, testReuseWindow))

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.DisplayName, found.DisplayName)
		s.Equal(owner, found.AccountabilityID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewPersonaID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PersonaStoreSuite) TestActiveCountLimit() {
	owner := id.NewAccountabilityID()

	for _, name := range []string{"One", "Two", "Three"} {
		s.Require().NoError(s.store.CreateIfAllowed(s.ctx, s.newPersona(owner, name), 3, testReuseWindow))
	}

	s.Run("rejects creation at the limit", func() {
		err := s.store.CreateIfAllowed(s.ctx, s.newPersona(owner, "Four"), 3, testReuseWindow)
		s.Require().ErrorIs(err, sentinel.ErrLimitReached)
	})

	s.Run("deactivated personas free a slot", func() {
		active, err := s.store.ListActiveByOwner(s.ctx, owner)
		s.Require().NoError(err)
		_, err = s.store.Execute(s.ctx, active[0].ID,
			func(p *models.Persona) error { return p.CanDeactivate() },
			func(p *models.Persona) { p.ApplyDeactivation(s.now) },
		)
		s.Require().NoError(err)

		s.Require().NoError(s.store.CreateIfAllowed(s.ctx, s.newPersona(owner, "Four"), 3, testReuseWindow))

		count, err := s.store.CountActiveByOwner(s.ctx, owner)
		s.Require().NoError(err)
		s.Equal(3, count)
	})

	s.Run("limit is per owner", func() {
		other := id.NewAccountabilityID()
		s.Require().NoError(s.store.CreateIfAllowed(s.ctx, s.newPersona(other, "Elsewhere"), 3, testReuseWindow))
	})
}

func (s *PersonaStoreSuite) TestDisplayNameRecency() {
	ownerA := id.NewAccountabilityID()
	ownerB := id.NewAccountabilityID()

	first := s.newPersona(ownerA, "Night Owl")
	s.Require().NoError(s.store.CreateIfAllowed(s.ctx, first, 3, testReuseWindow))

	s.Run("different owner cannot reuse inside the window", func() {
		clash := s.newPersona(ownerB, "Night Owl")
		clash.CreatedAt = s.now.Add(10 * 24 * time.Hour)
		err := s.store.CreateIfAllowed(s.ctx, clash, 3, testReuseWindow)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("recency folds case and whitespace", func() {
		clash := s.newPersona(ownerB, "  night owl ")
		clash.CreatedAt = s.now.Add(10 * 24 * time.Hour)
		err := s.store.CreateIfAllowed(s.ctx, clash, 3, testReuseWindow)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("same owner may reuse immediately", func() {
		again := s.newPersona(ownerA, "Night Owl")
		again.CreatedAt = s.now.Add(time.Hour)
		s.Require().NoError(s.store.CreateIfAllowed(s.ctx, again, 3, testReuseWindow))
	})

	s.Run("different owner may reuse after the window", func() {
		late := s.newPersona(ownerB, "Night Owl")
		late.CreatedAt = s.now.Add(testReuseWindow + time.Hour)
		s.Require().NoError(s.store.CreateIfAllowed(s.ctx, late, 3, testReuseWindow))
	})
}

func (s *PersonaStoreSuite) TestListings() {
	owner := id.NewAccountabilityID()
	a := s.newPersona(owner, "Alpha")
	b := s.newPersona(owner, "Beta")
	s.Require().NoError(s.store.CreateIfAllowed(s.ctx, a, 3, testReuseWindow))
	s.Require().NoError(s.store.CreateIfAllowed(s.ctx, b, 3, testReuseWindow))

	_, err := s.store.Execute(s.ctx, b.ID,
		func(p *models.Persona) error { return p.CanDeactivate() },
		func(p *models.Persona) { p.ApplyDeactivation(s.now) },
	)
	s.Require().NoError(err)

	active, err := s.store.ListActiveByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Len(active, 1)
	s.Equal(a.ID, active[0].ID)

	all, err := s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PersonaStoreSuite) TestExecute() {
	owner := id.NewAccountabilityID()
	p := s.newPersona(owner, "Mutable")
	s.Require().NoError(s.store.CreateIfAllowed(s.ctx, p, 3, testReuseWindow))

	s.Run("validate failure leaves state untouched", func() {
		_, err := s.store.Execute(s.ctx, p.ID,
			func(*models.Persona) error { return sentinel.ErrInvalidState },
			func(q *models.Persona) { q.ApplyDeactivation(s.now) },
		)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.True(found.IsActive())
	})

	s.Run("unknown persona returns ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, id.NewPersonaID(),
			func(*models.Persona) error { return nil },
			func(*models.Persona) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned copy is detached from the store", func() {
		got, err := s.store.Execute(s.ctx, p.ID,
			func(*models.Persona) error { return nil },
			func(*models.Persona) {},
		)
		s.Require().NoError(err)
		got.DisplayName = "Tampered"

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("Mutable", found.DisplayName)
	})
}
