package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accmodels "veil/internal/accountability/models"
	accountabilitystore "veil/internal/accountability/store"
	personastore "veil/internal/persona/store"
	"veil/internal/policy"
	trustmodels "veil/internal/trust/models"
	truststore "veil/internal/trust/store"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/requestcontext"
)

type PersonaServiceSuite struct {
	suite.Suite
	personas *personastore.InMemory
	trust    *truststore.InMemory
	profiles *accountabilitystore.InMemory
	service  *Service
	ctx      context.Context
	now      time.Time
	owner    id.AccountabilityID
}

func TestPersonaServiceSuite(t *testing.T) {
	suite.Run(t, new(PersonaServiceSuite))
}

func (s *PersonaServiceSuite) SetupTest() {
	s.personas = personastore.NewInMemory()
	s.trust = truststore.NewInMemory()
	s.profiles = accountabilitystore.NewInMemory()
	s.service = New(s.personas, s.trust, s.profiles, policy.NewEngine(policy.DefaultTable()))

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	profile, err := accmodels.NewProfile(id.NewAccountabilityID(), "key", "cipher", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.profiles.CreateIfEmailKeyAvailable(s.ctx, profile))
	s.owner = profile.ID
}

func (s *PersonaServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *PersonaServiceSuite) TestCreatePersona() {
	s.Run("creates an active persona at NEW trust", func() {
		view, err := s.service.CreatePersona(s.ctx, s.owner, "Quiet Fox", "")
		s.Require().NoError(err)
		s.Equal("Quiet Fox", view.DisplayName)
		s.Equal(trustmodels.LevelNew, view.TrustLevel)

		level, err := s.trust.CurrentLevel(s.ctx, view.ID)
		s.Require().NoError(err)
		s.Equal(trustmodels.LevelNew, level)
	})

	s.Run("rejects invalid display names", func() {
		_, err := s.service.CreatePersona(s.ctx, s.owner, "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *PersonaServiceSuite) TestPersonaLimit() {
	// NEW trust allows three active personas.
	for i := 0; i < 3; i++ {
		_, err := s.service.CreatePersona(s.ctx, s.owner, fmt.Sprintf("Persona %d", i), "")
		s.Require().NoError(err)
	}

	s.Run("fourth persona is rejected at NEW", func() {
		_, err := s.service.CreatePersona(s.ctx, s.owner, "One Too Many", "")
		s.Require().Error(err)
		s.True(dErrors.HasReason(err, "MAX_PERSONAS_REACHED"))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("higher trust raises the limit", func() {
		active, err := s.personas.ListActiveByOwner(s.ctx, s.owner)
		s.Require().NoError(err)
		grant, err := trustmodels.NewGrant(active[0].ID, trustmodels.LevelTrusted, s.now.Add(time.Minute))
		s.Require().NoError(err)
		s.Require().NoError(s.trust.Append(s.ctx, grant))

		_, err = s.service.CreatePersona(s.ctx, s.owner, "Now Allowed", "")
		s.Require().NoError(err)
	})
}

func (s *PersonaServiceSuite) TestDisplayNameReuse() {
	_, err := s.service.CreatePersona(s.ctx, s.owner, "Night Owl", "")
	s.Require().NoError(err)

	other, err := accmodels.NewProfile(id.NewAccountabilityID(), "key-2", "cipher", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.profiles.CreateIfEmailKeyAvailable(s.ctx, other))

	s.Run("another account cannot take the name inside the window", func() {
		ctx := s.at(s.now.Add(10 * 24 * time.Hour))
		_, err := s.service.CreatePersona(ctx, other.ID, "Night Owl", "")
		s.Require().Error(err)
		s.True(dErrors.HasReason(err, "DISPLAY_NAME_RECENTLY_USED"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("the window expires after thirty days", func() {
		ctx := s.at(s.now.Add(31 * 24 * time.Hour))
		_, err := s.service.CreatePersona(ctx, other.ID, "Night Owl", "")
		s.Require().NoError(err)
	})
}

func (s *PersonaServiceSuite) TestRotatePersona() {
	view, err := s.service.CreatePersona(s.ctx, s.owner, "Original", "https://cdn.example/a.png")
	s.Require().NoError(err)

	s.Run("rotation deactivates the old persona and creates a fresh one", func() {
		rotated, err := s.service.RotatePersona(s.ctx, view.ID, "Fresh Start", s.owner)
		s.Require().NoError(err)
		s.NotEqual(view.ID, rotated.ID)
		s.Equal("Fresh Start", rotated.DisplayName)
		s.Equal(trustmodels.LevelNew, rotated.TrustLevel)
		// Avatar carries over.
		s.Equal("https://cdn.example/a.png", rotated.AvatarURL)

		old, err := s.personas.FindByID(s.ctx, view.ID)
		s.Require().NoError(err)
		s.False(old.IsActive())

		profile, err := s.profiles.FindByID(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Require().NotNil(profile.LastRotatedAt)
		s.Equal(s.now, *profile.LastRotatedAt)
	})

	s.Run("second rotation inside the cooldown is rejected", func() {
		active, err := s.personas.ListActiveByOwner(s.ctx, s.owner)
		s.Require().NoError(err)

		ctx := s.at(s.now.Add(10 * 24 * time.Hour))
		_, err = s.service.RotatePersona(ctx, active[0].ID, "Too Soon", s.owner)
		s.Require().Error(err)
		s.True(dErrors.HasReason(err, "ROTATION_COOLDOWN"))
	})

	s.Run("rotation is allowed once the cooldown elapses", func() {
		active, err := s.personas.ListActiveByOwner(s.ctx, s.owner)
		s.Require().NoError(err)

		ctx := s.at(s.now.Add(31 * 24 * time.Hour))
		_, err = s.service.RotatePersona(ctx, active[0].ID, "Patience", s.owner)
		s.Require().NoError(err)
	})
}

func (s *PersonaServiceSuite) TestRotationOwnership() {
	view, err := s.service.CreatePersona(s.ctx, s.owner, "Mine", "")
	s.Require().NoError(err)

	stranger, err := accmodels.NewProfile(id.NewAccountabilityID(), "key-3", "cipher", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.profiles.CreateIfEmailKeyAvailable(s.ctx, stranger))

	s.Run("another account cannot rotate the persona", func() {
		_, err := s.service.RotatePersona(s.ctx, view.ID, "Stolen", stranger.ID)
		s.Require().Error(err)
		s.True(dErrors.HasReason(err, "PERSONA_NOT_OWNED"))
	})

	s.Run("unknown persona looks identical to not-owned", func() {
		_, err := s.service.RotatePersona(s.ctx, id.NewPersonaID(), "Ghost", s.owner)
		s.Require().Error(err)
		s.True(dErrors.HasReason(err, "PERSONA_NOT_OWNED"))
	})
}

func (s *PersonaServiceSuite) TestListActivePersonas() {
	a, err := s.service.CreatePersona(s.ctx, s.owner, "Alpha", "")
	s.Require().NoError(err)
	_, err = s.service.CreatePersona(s.ctx, s.owner, "Beta", "")
	s.Require().NoError(err)

	grant, err := trustmodels.NewGrant(a.ID, trustmodels.LevelRegular, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().NoError(s.trust.Append(s.ctx, grant))

	views, err := s.service.ListActivePersonas(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(views, 2)
	s.Equal(trustmodels.LevelRegular, views[0].TrustLevel)
	s.Equal(trustmodels.LevelNew, views[1].TrustLevel)
}
