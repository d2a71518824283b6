package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	accmodels "veil/internal/accountability/models"
	"veil/internal/persona/models"
	"veil/internal/platform/metrics"
	"veil/internal/policy"
	trustmodels "veil/internal/trust/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
	"veil/pkg/requestcontext"
)

// PersonaStore persists personas plus the display-name recency index.
type PersonaStore interface {
	CreateIfAllowed(ctx context.Context, p *models.Persona, maxActive int, reuseWindow time.Duration) error
	FindByID(ctx context.Context, personaID id.PersonaID) (*models.Persona, error)
	ListActiveByOwner(ctx context.Context, owner id.AccountabilityID) ([]*models.Persona, error)
	CountActiveByOwner(ctx context.Context, owner id.AccountabilityID) (int, error)
	Execute(ctx context.Context, personaID id.PersonaID, validate func(*models.Persona) error, mutate func(*models.Persona)) (*models.Persona, error)
}

// TrustLedger appends grants and resolves current levels.
type TrustLedger interface {
	Append(ctx context.Context, grant *trustmodels.Grant) error
	CurrentLevel(ctx context.Context, personaID id.PersonaID) (trustmodels.Level, error)
}

// ProfileStore reads and stamps accountability profiles for rotation tracking.
type ProfileStore interface {
	FindByID(ctx context.Context, profileID id.AccountabilityID) (*accmodels.Profile, error)
	Execute(ctx context.Context, profileID id.AccountabilityID, validate func(*accmodels.Profile) error, mutate func(*accmodels.Profile)) (*accmodels.Profile, error)
}

// Service manages the persona lifecycle: creation, rotation, listing.
// Rotation is how a user gets a fresh public presentation while every abuse
// signal on the accountability profile persists underneath.
type Service struct {
	personas PersonaStore
	trust    TrustLedger
	profiles ProfileStore
	engine   *policy.Engine
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(personas PersonaStore, trust TrustLedger, profiles ProfileStore, engine *policy.Engine, opts ...Option) *Service {
	s := &Service{
		personas: personas,
		trust:    trust,
		profiles: profiles,
		engine:   engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePersona creates an active persona with a NEW trust grant, gated by
// the persona-count policy and the display-name recency window. The count
// check and the insert are one atomic store operation; the policy evaluation
// up front exists to fail fast with the caller's current numbers.
func (s *Service) CreatePersona(ctx context.Context, owner id.AccountabilityID, displayName, avatarURL string) (models.View, error) {
	count, err := s.personas.CountActiveByOwner(ctx, owner)
	if err != nil {
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count personas")
	}
	level, err := s.ownerTrustLevel(ctx, owner)
	if err != nil {
		return models.View{}, err
	}

	pctx := policy.Context{TrustLevel: level, CurrentCount: count}
	if !s.engine.Evaluate(policy.PersonaCreationAllowed, pctx) {
		return models.View{}, dErrors.NewReason(dErrors.CodeForbidden, "MAX_PERSONAS_REACHED", "persona limit reached for trust level")
	}

	now := requestcontext.Now(ctx)
	persona, err := models.NewPersona(id.NewPersonaID(), owner, displayName, avatarURL, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return models.View{}, dErrors.New(dErrors.CodeValidation, "invalid display name")
		}
		return models.View{}, err
	}

	maxActive := s.engine.NumericValue(policy.PersonaCreationAllowed, pctx)
	windowDays := s.engine.NumericValue(policy.DisplayNameReuseWindow, policy.Context{})
	reuseWindow := time.Duration(windowDays) * 24 * time.Hour

	if err := s.personas.CreateIfAllowed(ctx, persona, maxActive, reuseWindow); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrLimitReached):
			return models.View{}, dErrors.NewReason(dErrors.CodeForbidden, "MAX_PERSONAS_REACHED", "persona limit reached for trust level")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return models.View{}, dErrors.NewReason(dErrors.CodeConflict, "DISPLAY_NAME_RECENTLY_USED", "display name was recently used")
		default:
			return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create persona")
		}
	}

	// Every persona starts at NEW regardless of the owner's other personas.
	grant, err := trustmodels.NewGrant(persona.ID, trustmodels.LevelNew, now)
	if err != nil {
		return models.View{}, err
	}
	if err := s.trust.Append(ctx, grant); err != nil {
		// The persona exists without a ledger entry; readers treat that as
		// implicit NEW, so surface the failure without undoing the create.
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record trust grant")
	}

	s.logAudit(ctx, "persona_created", "persona_id", persona.ID.String())
	s.incrementCreated()

	return models.NewView(persona, trustmodels.LevelNew), nil
}

// RotatePersona deactivates the old persona and creates a fresh one under
// the same accountability profile. All creation policy checks apply.
func (s *Service) RotatePersona(ctx context.Context, oldPersonaID id.PersonaID, newDisplayName string, owner id.AccountabilityID) (models.View, error) {
	old, err := s.personas.FindByID(ctx, oldPersonaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Indistinguishable from not-owned so callers cannot probe for
			// persona existence.
			return models.View{}, dErrors.NewReason(dErrors.CodeForbidden, "PERSONA_NOT_OWNED", "persona is not owned by caller")
		}
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load persona")
	}
	if old.AccountabilityID != owner {
		return models.View{}, dErrors.NewReason(dErrors.CodeForbidden, "PERSONA_NOT_OWNED", "persona is not owned by caller")
	}

	profile, err := s.profiles.FindByID(ctx, owner)
	if err != nil {
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load accountability profile")
	}

	now := requestcontext.Now(ctx)
	if !s.engine.Evaluate(policy.PersonaRotationAllowed, policy.Context{LastRotatedAt: profile.LastRotatedAt, Now: now}) {
		return models.View{}, dErrors.NewReason(dErrors.CodeForbidden, "ROTATION_COOLDOWN", "rotation cooldown has not elapsed")
	}

	if _, err := s.personas.Execute(ctx, oldPersonaID,
		func(p *models.Persona) error { return p.CanDeactivate() },
		func(p *models.Persona) { p.ApplyDeactivation(now) },
	); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return models.View{}, dErrors.NewReason(dErrors.CodeForbidden, "PERSONA_INACTIVE", "persona is not active")
		}
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate persona")
	}

	view, err := s.CreatePersona(ctx, owner, newDisplayName, old.AvatarURL)
	if err != nil {
		return models.View{}, err
	}

	if _, err := s.profiles.Execute(ctx, owner,
		func(*accmodels.Profile) error { return nil },
		func(p *accmodels.Profile) { p.ApplyRotation(now) },
	); err != nil {
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rotation")
	}

	s.logAudit(ctx, "persona_rotated",
		"old_persona_id", oldPersonaID.String(),
		"new_persona_id", view.ID.String(),
	)
	s.incrementRotated()

	return view, nil
}

// ListActivePersonas returns public views of the owner's active personas.
func (s *Service) ListActivePersonas(ctx context.Context, owner id.AccountabilityID) ([]models.View, error) {
	personas, err := s.personas.ListActiveByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list personas")
	}
	views := make([]models.View, 0, len(personas))
	for _, p := range personas {
		level, err := s.personaTrustLevel(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, models.NewView(p, level))
	}
	return views, nil
}

// ownerTrustLevel determines the trust level that gates creation: the level
// of the owner's first active persona, NEW when the owner has none yet.
func (s *Service) ownerTrustLevel(ctx context.Context, owner id.AccountabilityID) (trustmodels.Level, error) {
	active, err := s.personas.ListActiveByOwner(ctx, owner)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list personas")
	}
	if len(active) == 0 {
		return trustmodels.LevelNew, nil
	}
	return s.personaTrustLevel(ctx, active[0].ID)
}

func (s *Service) personaTrustLevel(ctx context.Context, personaID id.PersonaID) (trustmodels.Level, error) {
	level, err := s.trust.CurrentLevel(ctx, personaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return trustmodels.LevelNew, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trust level")
	}
	return level, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.PersonasCreated.Inc()
	}
}

func (s *Service) incrementRotated() {
	if s.metrics != nil {
		s.metrics.PersonasRotated.Inc()
	}
}
