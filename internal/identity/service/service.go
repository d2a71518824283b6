package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"

	accmodels "veil/internal/accountability/models"
	"veil/internal/platform/metrics"
	personamodels "veil/internal/persona/models"
	trustmodels "veil/internal/trust/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
	"veil/pkg/requestcontext"
	"veil/pkg/secrets"
)

// ProfileStore persists accountability profiles. Remove exists for the
// registration compensation path only.
type ProfileStore interface {
	CreateIfEmailKeyAvailable(ctx context.Context, p *accmodels.Profile) error
	Remove(ctx context.Context, profileID id.AccountabilityID) error
	FindByID(ctx context.Context, profileID id.AccountabilityID) (*accmodels.Profile, error)
	FindByEmailKey(ctx context.Context, emailKey string) (*accmodels.Profile, error)
}

// PersonaReader resolves personas for login and context lookups.
type PersonaReader interface {
	FindByID(ctx context.Context, personaID id.PersonaID) (*personamodels.Persona, error)
	ListActiveByOwner(ctx context.Context, owner id.AccountabilityID) ([]*personamodels.Persona, error)
}

// PersonaCreator provisions the initial persona during registration. The
// lifecycle service implements it; registration reuses all of its policy
// checks.
type PersonaCreator interface {
	CreatePersona(ctx context.Context, owner id.AccountabilityID, displayName, avatarURL string) (personamodels.View, error)
}

// TrustReader resolves the current trust level of a persona.
type TrustReader interface {
	CurrentLevel(ctx context.Context, personaID id.PersonaID) (trustmodels.Level, error)
}

// EmailCipher is the external encryption collaborator. The ciphertext is
// stored for recovery flows only; lookups always go through DeriveEmailKey.
type EmailCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Service orchestrates registration and login. It is the only writer of
// accountability profiles outside moderation.
type Service struct {
	profiles ProfileStore
	personas PersonaReader
	creator  PersonaCreator
	trust    TrustReader
	cipher   EmailCipher
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

func New(profiles ProfileStore, personas PersonaReader, creator PersonaCreator, trust TrustReader, cipher EmailCipher, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		personas: personas,
		creator:  creator,
		trust:    trust,
		cipher:   cipher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session carries the internal identifiers destined for session storage.
// These go into the session token, never into a response body.
type Session struct {
	AccountabilityID id.AccountabilityID
	PersonaID        id.PersonaID
}

// RegisterResult is what registration hands back: the public persona view
// plus the internal session fields.
type RegisterResult struct {
	Persona personamodels.View
	Session Session
}

// Register creates the Account→AccountabilityProfile→Persona→TrustLevel chain.
func (s *Service) Register(ctx context.Context, email, password, initialDisplayName string) (*RegisterResult, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email is not valid")
	}
	if len(password) < 6 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}

	emailKey := DeriveEmailKey(email)
	emailCipher, err := s.cipher.Encrypt(email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt email")
	}
	passwordHash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	profile, err := accmodels.NewProfile(id.NewAccountabilityID(), emailKey, emailCipher, passwordHash, now)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.CreateIfEmailKeyAvailable(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.NewReason(dErrors.CodeConflict, "EMAIL_ALREADY_REGISTERED", "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create accountability profile")
	}

	view, err := s.creator.CreatePersona(ctx, profile.ID, initialDisplayName, "")
	if err != nil {
		// The profile must not outlive a failed initial persona, or the email
		// would be registered forever with nothing to log in to.
		if rmErr := s.profiles.Remove(ctx, profile.ID); rmErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to roll back profile after persona creation failure",
				"error", rmErr, "log_type", "audit")
		}
		return nil, err
	}

	s.logAudit(ctx, "user_registered", "persona_id", view.ID.String())
	s.incrementRegistrations()

	return &RegisterResult{
		Persona: view,
		Session: Session{AccountabilityID: profile.ID, PersonaID: view.ID},
	}, nil
}

// LoginResult mirrors RegisterResult for the login path.
type LoginResult struct {
	Persona personamodels.View
	Session Session
}

// Login authenticates by hashed email key only and selects the first active
// persona. The userAgent is parsed for the operator log and then dropped.
func (s *Service) Login(ctx context.Context, email, password, userAgent string) (*LoginResult, error) {
	profile, err := s.profiles.FindByEmailKey(ctx, DeriveEmailKey(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewReason(dErrors.CodeUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up profile")
	}
	if profile.PasswordHash == "" {
		return nil, dErrors.NewReason(dErrors.CodeUnauthorized, "INVALID_AUTH_METHOD", "no password credential for this account")
	}
	if err := secrets.Verify(password, profile.PasswordHash); err != nil {
		return nil, dErrors.NewReason(dErrors.CodeUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	}

	active, err := s.personas.ListActiveByOwner(ctx, profile.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list personas")
	}
	if len(active) == 0 {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, "NO_ACTIVE_PERSONA", "account has no active persona")
	}
	persona := active[0]

	level, err := s.trust.CurrentLevel(ctx, persona.ID)
	if err != nil {
		// A missing ledger entry means implicit NEW, not a failed login.
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trust level")
		}
		level = trustmodels.LevelNew
	}

	s.logAudit(ctx, "user_logged_in",
		"persona_id", persona.ID.String(),
		"device", DeviceSummary(userAgent),
	)
	s.incrementLogins()

	return &LoginResult{
		Persona: personamodels.NewView(persona, level),
		Session: Session{AccountabilityID: profile.ID, PersonaID: persona.ID},
	}, nil
}

// AccountabilityContext is the privileged view behind a persona. It never
// leaves moderation/admin surfaces.
type AccountabilityContext struct {
	ProfileID  id.AccountabilityID `json:"profileId"`
	AbuseScore float64             `json:"abuseScore"`
	RiskLevel  accmodels.RiskLevel `json:"riskLevel"`
	Verified   bool                `json:"verified"`
}

// GetAccountabilityContext resolves persona → accountability profile. A
// persona whose profile link dangles signals referential corruption; that is
// surfaced as an internal error, logged for operators, and never detailed to
// callers.
func (s *Service) GetAccountabilityContext(ctx context.Context, personaID id.PersonaID) (*AccountabilityContext, error) {
	persona, err := s.personas.FindByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "persona not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load persona")
	}

	profile, err := s.profiles.FindByID(ctx, persona.AccountabilityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "persona references missing accountability profile",
					"persona_id", personaID.String(), "log_type", "audit")
			}
			return nil, dErrors.NewReason(dErrors.CodeInternal, "CONTEXT_CORRUPT", "internal error")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	return &AccountabilityContext{
		ProfileID:  profile.ID,
		AbuseScore: profile.AbuseScore,
		RiskLevel:  profile.RiskLevel,
		Verified:   profile.Verified,
	}, nil
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

func (s *Service) incrementRegistrations() {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
}

func (s *Service) incrementLogins() {
	if s.metrics != nil {
		s.metrics.LoginsTotal.Inc()
	}
}
