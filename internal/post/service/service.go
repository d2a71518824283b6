package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	personamodels "veil/internal/persona/models"
	"veil/internal/platform/metrics"
	"veil/internal/post/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
	"veil/pkg/requestcontext"
)

// Authorizer decides whether a persona may publish right now.
type Authorizer interface {
	Authorize(ctx context.Context, personaID id.PersonaID, owner id.AccountabilityID) (*personamodels.Persona, error)
}

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, postID id.PostID) (*models.Post, error)
}

// WindowRecorder feeds the sliding-window counter after a successful publish.
type WindowRecorder interface {
	Record(ctx context.Context, personaID id.PersonaID, at time.Time) error
}

// Service publishes posts under a persona. The accountability link never
// appears in anything this service returns; readers only ever see the
// persona attribution.
type Service struct {
	guard   Authorizer
	posts   PostStore
	window  WindowRecorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithWindowRecorder enables the redis sliding-window feed.
func WithWindowRecorder(w WindowRecorder) Option {
	return func(s *Service) { s.window = w }
}

func New(guard Authorizer, posts PostStore, opts ...Option) *Service {
	s := &Service{
		guard: guard,
		posts: posts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePost authorizes and publishes a post attributed to the persona.
func (s *Service) CreatePost(ctx context.Context, personaID id.PersonaID, owner id.AccountabilityID, body string) (*models.Post, error) {
	if _, err := s.guard.Authorize(ctx, personaID, owner); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	post, err := models.NewPost(id.NewPostID(), personaID, body, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid post body")
		}
		return nil, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create post")
	}

	if s.window != nil {
		// Counter feed is best effort; the durable store remains the source
		// of truth for counts when the window is unavailable.
		if err := s.window.Record(ctx, personaID, now); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record post in rate window", "error", err)
		}
	}

	s.logAudit(ctx, "post_created", "post_id", post.ID.String(), "persona_id", personaID.String())
	if s.metrics != nil {
		s.metrics.PostsCreated.Inc()
	}

	return post, nil
}

// GetPost returns a post by ID. Removed posts are withheld from readers.
func (s *Service) GetPost(ctx context.Context, postID id.PostID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewReason(dErrors.CodeNotFound, "POST_NOT_FOUND", "post not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load post")
	}
	if post.ModerationStatus == models.ModerationRemoved {
		return nil, dErrors.NewReason(dErrors.CodeNotFound, "POST_NOT_FOUND", "post not found")
	}
	return post, nil
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
