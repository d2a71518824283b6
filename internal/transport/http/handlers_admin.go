package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	moderationmodels "veil/internal/moderation/models"
	moderationservice "veil/internal/moderation/service"
	trustmodels "veil/internal/trust/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/httputil"
	"veil/pkg/requestcontext"
)

// ModerationService is the slice of the moderation service the admin
// surface needs.
type ModerationService interface {
	UpdateTrustLevel(ctx context.Context, actor id.ModeratorID, personaID id.PersonaID, level trustmodels.Level, reason string, dryRun bool) (*moderationmodels.LogEntry, error)
	UpdateAbuseScore(ctx context.Context, actor id.ModeratorID, profileID id.AccountabilityID, score float64, reason string, dryRun bool) (*moderationmodels.LogEntry, error)
	RemovePost(ctx context.Context, actor id.ModeratorID, postID id.PostID, reason string, dryRun bool) (*moderationmodels.LogEntry, error)
	RestorePost(ctx context.Context, actor id.ModeratorID, postID id.PostID, reason string, dryRun bool) (*moderationmodels.LogEntry, error)
	LookupAuthor(ctx context.Context, actor id.ModeratorID, postID id.PostID, reason string) (*moderationservice.AuthorContext, error)
	TrustHistory(ctx context.Context, personaID id.PersonaID) ([]trustmodels.Grant, error)
	AuditByTarget(ctx context.Context, target moderationmodels.Target, limit int) ([]moderationmodels.LogEntry, error)
	AuditRecent(ctx context.Context, limit int) ([]moderationmodels.LogEntry, error)
}

// AdminHandler is the privileged moderation surface. It sits behind the
// moderator role gate and is the only transport allowed to show
// accountability data.
type AdminHandler struct {
	moderation ModerationService
	logger     *slog.Logger
}

func NewAdminHandler(moderation ModerationService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{moderation: moderation, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/admin/trust", h.HandleTrust)
	r.Post("/admin/abuse-score", h.HandleAbuseScore)
	r.Post("/admin/posts/{postID}/remove", h.HandleRemovePost)
	r.Post("/admin/posts/{postID}/restore", h.HandleRestorePost)
	r.Get("/admin/posts/{postID}/author", h.HandleLookupAuthor)
	r.Get("/admin/personas/{personaID}/trust-history", h.HandleTrustHistory)
	r.Get("/admin/audit", h.HandleAuditRecent)
	r.Get("/admin/audit/{targetType}/{targetID}", h.HandleAuditByTarget)
}

type trustRequest struct {
	PersonaID string `json:"persona_id"`
	Level     string `json:"level"`
	Reason    string `json:"reason"`
	DryRun    bool   `json:"dry_run"`
}

// HandleTrust handles POST /admin/trust.
func (h *AdminHandler) HandleTrust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[trustRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	personaID, err := id.ParsePersonaID(req.PersonaID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid persona id"))
		return
	}
	level, err := trustmodels.ParseLevel(req.Level)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entry, err := h.moderation.UpdateTrustLevel(ctx, requestcontext.ModeratorID(ctx), personaID, level, req.Reason, req.DryRun)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

type abuseScoreRequest struct {
	ProfileID string  `json:"profile_id"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
	DryRun    bool    `json:"dry_run"`
}

// HandleAbuseScore handles POST /admin/abuse-score.
func (h *AdminHandler) HandleAbuseScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[abuseScoreRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	profileID, err := id.ParseAccountabilityID(req.ProfileID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid profile id"))
		return
	}

	entry, err := h.moderation.UpdateAbuseScore(ctx, requestcontext.ModeratorID(ctx), profileID, req.Score, req.Reason, req.DryRun)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

type postActionRequest struct {
	Reason string `json:"reason"`
	DryRun bool   `json:"dry_run"`
}

// HandleRemovePost handles POST /admin/posts/{postID}/remove.
func (h *AdminHandler) HandleRemovePost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.moderation.RemovePost)
}

// HandleRestorePost handles POST /admin/posts/{postID}/restore.
func (h *AdminHandler) HandleRestorePost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.moderation.RestorePost)
}

func (h *AdminHandler) handlePostAction(w http.ResponseWriter, r *http.Request, action func(context.Context, id.ModeratorID, id.PostID, string, bool) (*moderationmodels.LogEntry, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	postID, err := id.ParsePostID(chi.URLParam(r, "postID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid post id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[postActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := action(ctx, requestcontext.ModeratorID(ctx), postID, req.Reason, req.DryRun)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// HandleLookupAuthor handles GET /admin/posts/{postID}/author. The reason is
// required as a query parameter because the traversal itself is audited.
func (h *AdminHandler) HandleLookupAuthor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	postID, err := id.ParsePostID(chi.URLParam(r, "postID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid post id"))
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		httputil.WriteError(w, dErrors.NewReason(dErrors.CodeValidation, "REASON_REQUIRED", "a reason is required for author lookup"))
		return
	}

	author, err := h.moderation.LookupAuthor(ctx, requestcontext.ModeratorID(ctx), postID, reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, author)
}

// HandleTrustHistory handles GET /admin/personas/{personaID}/trust-history.
func (h *AdminHandler) HandleTrustHistory(w http.ResponseWriter, r *http.Request) {
	personaID, err := id.ParsePersonaID(chi.URLParam(r, "personaID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid persona id"))
		return
	}
	grants, err := h.moderation.TrustHistory(r.Context(), personaID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

// HandleAuditRecent handles GET /admin/audit.
func (h *AdminHandler) HandleAuditRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.moderation.AuditRecent(r.Context(), queryLimit(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandleAuditByTarget handles GET /admin/audit/{targetType}/{targetID}.
func (h *AdminHandler) HandleAuditByTarget(w http.ResponseWriter, r *http.Request) {
	targetType, err := moderationmodels.ParseTargetType(chi.URLParam(r, "targetType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "targetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid target id"))
		return
	}

	target := moderationmodels.Target{Type: targetType, ID: targetID}
	entries, err := h.moderation.AuditByTarget(r.Context(), target, queryLimit(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
