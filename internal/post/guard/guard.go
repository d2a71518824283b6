package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	personamodels "veil/internal/persona/models"
	"veil/internal/platform/metrics"
	"veil/internal/policy"
	trustmodels "veil/internal/trust/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
	"veil/pkg/requestcontext"
)

// PersonaReader resolves personas and the caller's full persona set.
// Account-wide counts include deactivated personas so rotation cannot reset
// the shared ceiling.
type PersonaReader interface {
	FindByID(ctx context.Context, personaID id.PersonaID) (*personamodels.Persona, error)
	ListByOwner(ctx context.Context, owner id.AccountabilityID) ([]*personamodels.Persona, error)
}

// TrustReader resolves a persona's current trust level.
type TrustReader interface {
	CurrentLevel(ctx context.Context, personaID id.PersonaID) (trustmodels.Level, error)
}

// PostCounter counts posts in a trailing window. Backed by the post store,
// or by the redis sliding window when one is configured.
type PostCounter interface {
	CountByPersonaSince(ctx context.Context, personaID id.PersonaID, since time.Time) (int, error)
	CountByPersonasSince(ctx context.Context, personaIDs []id.PersonaID, since time.Time) (int, error)
}

// Guard authorizes post creation: ownership, persona state, and the per-level
// plus account-wide hourly rate limits. Rate counting is soft; two requests
// racing past the same count may both land, which is acceptable for a limit
// that exists to slow abuse rather than meter billing.
type Guard struct {
	personas PersonaReader
	trust    TrustReader
	counter  PostCounter
	engine   *policy.Engine
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

func New(personas PersonaReader, trust TrustReader, counter PostCounter, engine *policy.Engine, opts ...Option) *Guard {
	g := &Guard{
		personas: personas,
		trust:    trust,
		counter:  counter,
		engine:   engine,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize checks whether the caller may publish a post as the persona.
// Not-found and not-owned collapse into the same error so callers cannot
// probe which persona IDs exist.
func (g *Guard) Authorize(ctx context.Context, personaID id.PersonaID, owner id.AccountabilityID) (*personamodels.Persona, error) {
	persona, err := g.personas.FindByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewReason(dErrors.CodeForbidden, "PERSONA_NOT_OWNED", "persona is not owned by caller")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load persona")
	}
	if persona.AccountabilityID != owner {
		return nil, dErrors.NewReason(dErrors.CodeForbidden, "PERSONA_NOT_OWNED", "persona is not owned by caller")
	}
	if !persona.IsActive() {
		return nil, dErrors.NewReason(dErrors.CodeForbidden, "PERSONA_INACTIVE", "persona is not active")
	}

	level, err := g.trust.CurrentLevel(ctx, personaID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trust level")
		}
		level = trustmodels.LevelNew
	}

	now := requestcontext.Now(ctx)
	since := now.Add(-time.Hour)

	recent, err := g.counter.CountByPersonaSince(ctx, personaID, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count recent posts")
	}

	accountRecent, err := g.accountRecentCount(ctx, owner, since)
	if err != nil {
		return nil, err
	}

	pctx := policy.Context{
		TrustLevel:             level,
		RecentPostCount:        recent,
		AccountRecentPostCount: accountRecent,
		Now:                    now,
	}
	if !g.engine.Evaluate(policy.PostRateLimit, pctx) {
		g.logRejection(ctx, personaID, level, recent, accountRecent)
		return nil, dErrors.NewReason(dErrors.CodeRateLimited, "RATE_LIMIT_EXCEEDED", "posting rate limit exceeded")
	}

	return persona, nil
}

func (g *Guard) accountRecentCount(ctx context.Context, owner id.AccountabilityID, since time.Time) (*int, error) {
	owned, err := g.personas.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list personas")
	}
	ids := make([]id.PersonaID, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID)
	}
	count, err := g.counter.CountByPersonasSince(ctx, ids, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count recent posts")
	}
	return &count, nil
}

func (g *Guard) logRejection(ctx context.Context, personaID id.PersonaID, level trustmodels.Level, recent int, accountRecent *int) {
	if g.metrics != nil {
		g.metrics.PostsRejected.Inc()
	}
	if g.logger == nil {
		return
	}
	args := []any{
		"persona_id", personaID.String(),
		"trust_level", level.String(),
		"recent_posts", recent,
	}
	if accountRecent != nil {
		args = append(args, "account_recent_posts", *accountRecent)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	args = append(args, "event", "post_rate_limited", "log_type", "audit")
	g.logger.InfoContext(ctx, "post_rate_limited", args...)
}
