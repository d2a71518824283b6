package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	accmodels "veil/internal/accountability/models"
	"veil/internal/moderation/models"
	personamodels "veil/internal/persona/models"
	"veil/internal/platform/metrics"
	postmodels "veil/internal/post/models"
	trustmodels "veil/internal/trust/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
	"veil/pkg/requestcontext"
)

var tracer = otel.Tracer("moderation-service")

// LogStore is the append-only moderation audit log.
type LogStore interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	FindByTarget(ctx context.Context, target models.Target, limit int) ([]models.LogEntry, error)
	FindRecent(ctx context.Context, limit int) ([]models.LogEntry, error)
}

// TrustLedger appends grants and resolves current levels.
type TrustLedger interface {
	Append(ctx context.Context, grant *trustmodels.Grant) error
	CurrentLevel(ctx context.Context, personaID id.PersonaID) (trustmodels.Level, error)
	HistoryByPersona(ctx context.Context, personaID id.PersonaID) ([]trustmodels.Grant, error)
}

// ProfileStore reads and mutates accountability profiles.
type ProfileStore interface {
	FindByID(ctx context.Context, profileID id.AccountabilityID) (*accmodels.Profile, error)
	Execute(ctx context.Context, profileID id.AccountabilityID, validate func(*accmodels.Profile) error, mutate func(*accmodels.Profile)) (*accmodels.Profile, error)
}

// PersonaReader resolves personas for author traversal.
type PersonaReader interface {
	FindByID(ctx context.Context, personaID id.PersonaID) (*personamodels.Persona, error)
}

// PostStore reads and mutates posts for content moderation.
type PostStore interface {
	FindByID(ctx context.Context, postID id.PostID) (*postmodels.Post, error)
	Execute(ctx context.Context, postID id.PostID, validate func(*postmodels.Post) error, mutate func(*postmodels.Post)) (*postmodels.Post, error)
}

// Publisher streams audit entries to an external sink. Nil disables the feed.
type Publisher interface {
	Publish(entry models.LogEntry)
}

// Service implements privileged moderation: trust grants, abuse scoring,
// content removal, and the author traversal that pierces pseudonymity.
// Every mutating operation writes exactly one audit entry; dry runs write
// the entry with the DryRun flag set and change nothing else.
type Service struct {
	log       LogStore
	trust     TrustLedger
	profiles  ProfileStore
	personas  PersonaReader
	posts     PostStore
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher enables streaming audit entries to an external topic.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(log LogStore, trust TrustLedger, profiles ProfileStore, personas PersonaReader, posts PostStore, opts ...Option) *Service {
	s := &Service{
		log:      log,
		trust:    trust,
		profiles: profiles,
		personas: personas,
		posts:    posts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorContext is what a moderator sees when piercing a post's pseudonymity.
type AuthorContext struct {
	Post      *postmodels.Post       `json:"post"`
	Persona   *personamodels.Persona `json:"persona"`
	ProfileID id.AccountabilityID    `json:"profile_id"`
	RiskLevel accmodels.RiskLevel    `json:"risk_level"`
	Verified  bool                   `json:"verified"`
}

// UpdateTrustLevel appends a new grant for the persona and records the change.
// With dryRun set, only the audit entry is written.
func (s *Service) UpdateTrustLevel(ctx context.Context, actor id.ModeratorID, personaID id.PersonaID, level trustmodels.Level, reason string, dryRun bool) (*models.LogEntry, error) {
	ctx, span := tracer.Start(ctx, "Moderation.Service.UpdateTrustLevel")
	defer span.End()

	if err := requireReason(reason); err != nil {
		return nil, err
	}
	if !level.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid trust level")
	}

	persona, err := s.personas.FindByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewReason(dErrors.CodeNotFound, "PERSONA_NOT_FOUND", "persona not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load persona")
	}

	current, err := s.trust.CurrentLevel(ctx, persona.ID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trust level")
		}
		current = trustmodels.LevelNew
	}

	now := requestcontext.Now(ctx)
	if !dryRun {
		grant, err := trustmodels.NewGrant(persona.ID, level, now)
		if err != nil {
			return nil, err
		}
		if err := s.trust.Append(ctx, grant); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record trust grant")
		}
	}

	explanation := "Level: " + current.String() + " → " + level.String()
	return s.record(ctx, models.PersonaTarget(persona.ID), actor, models.ActionTrustLevelChanged, reason, explanation, dryRun, now)
}

// UpdateAbuseScore sets the profile's abuse score and re-derives its risk
// level. The audit explanation captures both before and after values.
func (s *Service) UpdateAbuseScore(ctx context.Context, actor id.ModeratorID, profileID id.AccountabilityID, score float64, reason string, dryRun bool) (*models.LogEntry, error) {
	ctx, span := tracer.Start(ctx, "Moderation.Service.UpdateAbuseScore")
	defer span.End()

	if err := requireReason(reason); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	var oldScore float64
	var oldRisk accmodels.RiskLevel
	if dryRun {
		profile, err := s.profiles.FindByID(ctx, profileID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.NewReason(dErrors.CodeNotFound, "PROFILE_NOT_FOUND", "accountability profile not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load accountability profile")
		}
		if err := profile.CanApplyAbuseScore(score); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "abuse score must be between 0 and 1")
		}
		oldScore, oldRisk = profile.AbuseScore, profile.RiskLevel
	} else {
		_, err := s.profiles.Execute(ctx, profileID,
			func(p *accmodels.Profile) error {
				oldScore, oldRisk = p.AbuseScore, p.RiskLevel
				return p.CanApplyAbuseScore(score)
			},
			func(p *accmodels.Profile) { p.ApplyAbuseScore(score, now) },
		)
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return nil, dErrors.NewReason(dErrors.CodeNotFound, "PROFILE_NOT_FOUND", "accountability profile not found")
			case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
				return nil, dErrors.New(dErrors.CodeValidation, "abuse score must be between 0 and 1")
			default:
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update abuse score")
			}
		}
	}

	newRisk := accmodels.RiskFromScore(score)
	explanation := "Score: " + formatScore(oldScore) + " → " + formatScore(score) +
		", Risk: " + string(oldRisk) + " → " + string(newRisk)
	return s.record(ctx, models.AccountabilityTarget(profileID), actor, models.ActionAbuseScoreChanged, reason, explanation, dryRun, now)
}

// RemovePost hides a post from readers. Idempotence is rejected loudly so a
// moderator knows a second removal did nothing.
func (s *Service) RemovePost(ctx context.Context, actor id.ModeratorID, postID id.PostID, reason string, dryRun bool) (*models.LogEntry, error) {
	ctx, span := tracer.Start(ctx, "Moderation.Service.RemovePost")
	defer span.End()

	if err := requireReason(reason); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := s.transitionPost(ctx, postID, dryRun,
		func(p *postmodels.Post) error { return p.CanRemove() },
		func(p *postmodels.Post) { p.ApplyRemoval(now) },
	); err != nil {
		return nil, err
	}
	return s.record(ctx, models.PostTarget(postID), actor, models.ActionPostRemoved, reason, "", dryRun, now)
}

// RestorePost makes a removed post visible again.
func (s *Service) RestorePost(ctx context.Context, actor id.ModeratorID, postID id.PostID, reason string, dryRun bool) (*models.LogEntry, error) {
	ctx, span := tracer.Start(ctx, "Moderation.Service.RestorePost")
	defer span.End()

	if err := requireReason(reason); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := s.transitionPost(ctx, postID, dryRun,
		func(p *postmodels.Post) error { return p.CanRestore() },
		func(p *postmodels.Post) { p.ApplyRestore(now) },
	); err != nil {
		return nil, err
	}
	return s.record(ctx, models.PostTarget(postID), actor, models.ActionPostRestored, reason, "", dryRun, now)
}

// LookupAuthor traverses post to persona to accountability profile. The
// traversal itself is a privileged disclosure, so it always writes an audit
// entry, even though nothing is mutated.
func (s *Service) LookupAuthor(ctx context.Context, actor id.ModeratorID, postID id.PostID, reason string) (*AuthorContext, error) {
	ctx, span := tracer.Start(ctx, "Moderation.Service.LookupAuthor")
	defer span.End()

	if err := requireReason(reason); err != nil {
		return nil, err
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewReason(dErrors.CodeNotFound, "POST_NOT_FOUND", "post not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load post")
	}
	persona, err := s.personas.FindByID(ctx, post.PersonaID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load persona for post")
	}
	profile, err := s.profiles.FindByID(ctx, persona.AccountabilityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load accountability profile for persona")
	}

	if _, err := s.record(ctx, models.PostTarget(postID), actor, models.ActionContextAccessed, reason, "", false, requestcontext.Now(ctx)); err != nil {
		// Disclosure without an audit trail is worse than a failed lookup.
		return nil, err
	}

	return &AuthorContext{
		Post:      post,
		Persona:   persona,
		ProfileID: profile.ID,
		RiskLevel: profile.RiskLevel,
		Verified:  profile.Verified,
	}, nil
}

// TrustHistory returns the persona's full grant history, newest last.
func (s *Service) TrustHistory(ctx context.Context, personaID id.PersonaID) ([]trustmodels.Grant, error) {
	grants, err := s.trust.HistoryByPersona(ctx, personaID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trust history")
	}
	return grants, nil
}

// AuditByTarget returns audit entries for one target, newest first.
func (s *Service) AuditByTarget(ctx context.Context, target models.Target, limit int) ([]models.LogEntry, error) {
	entries, err := s.log.FindByTarget(ctx, target, normalizeLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit entries")
	}
	return entries, nil
}

// AuditRecent returns the most recent audit entries across all targets.
func (s *Service) AuditRecent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	entries, err := s.log.FindRecent(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit entries")
	}
	return entries, nil
}

func (s *Service) transitionPost(ctx context.Context, postID id.PostID, dryRun bool, validate func(*postmodels.Post) error, mutate func(*postmodels.Post)) error {
	if dryRun {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.NewReason(dErrors.CodeNotFound, "POST_NOT_FOUND", "post not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load post")
		}
		if err := validate(post); err != nil {
			return dErrors.NewReason(dErrors.CodeConflict, "POST_STATE_CONFLICT", "post is not in a state allowing this action")
		}
		return nil
	}
	if _, err := s.posts.Execute(ctx, postID, validate, mutate); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.NewReason(dErrors.CodeNotFound, "POST_NOT_FOUND", "post not found")
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
			return dErrors.NewReason(dErrors.CodeConflict, "POST_STATE_CONFLICT", "post is not in a state allowing this action")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update post")
		}
	}
	return nil
}

// record writes the single audit entry for an operation and fans it out to
// the log, the structured audit log line, and the streaming publisher.
func (s *Service) record(ctx context.Context, target models.Target, actor id.ModeratorID, action models.Action, reason, explanation string, dryRun bool, now time.Time) (*models.LogEntry, error) {
	entry, err := models.NewLogEntry(target, actor, action, reason, explanation, dryRun, now)
	if err != nil {
		return nil, err
	}
	if err := s.log.Append(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}

	if s.logger != nil {
		args := []any{
			"audit_id", entry.ID.String(),
			"target_type", string(target.Type),
			"target_id", target.ID.String(),
			"actor_id", actor.String(),
			"action", string(action),
			"dry_run", dryRun,
		}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			args = append(args, "request_id", requestID)
		}
		args = append(args, "event", string(action), "log_type", "audit")
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.metrics != nil {
		s.metrics.AuditEntries.Inc()
	}
	if s.publisher != nil {
		s.publisher.Publish(*entry)
	}
	return entry, nil
}

// requireReason rejects a privileged operation before it touches anything.
func requireReason(reason string) error {
	if reason == "" {
		return dErrors.NewReason(dErrors.CodeValidation, "REASON_REQUIRED", "a reason is required for moderation actions")
	}
	return nil
}

// formatScore renders an abuse score the way moderators read it: always with
// a decimal point, never with trailing zeros beyond it.
func formatScore(score float64) string {
	out := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
