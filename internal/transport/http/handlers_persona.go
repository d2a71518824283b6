package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	personamodels "veil/internal/persona/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/httputil"
	"veil/pkg/requestcontext"
)

// PersonaService is the slice of the lifecycle service the handler needs.
type PersonaService interface {
	CreatePersona(ctx context.Context, owner id.AccountabilityID, displayName, avatarURL string) (personamodels.View, error)
	RotatePersona(ctx context.Context, oldPersonaID id.PersonaID, newDisplayName string, owner id.AccountabilityID) (personamodels.View, error)
	ListActivePersonas(ctx context.Context, owner id.AccountabilityID) ([]personamodels.View, error)
}

// PersonaHandler serves the caller's persona collection. Everything it
// returns is the public view; ownership is established from the session.
type PersonaHandler struct {
	personas PersonaService
	logger   *slog.Logger
}

func NewPersonaHandler(personas PersonaService, logger *slog.Logger) *PersonaHandler {
	return &PersonaHandler{personas: personas, logger: logger}
}

func (h *PersonaHandler) Register(r chi.Router) {
	r.Get("/personas", h.HandleList)
	r.Post("/personas", h.HandleCreate)
	r.Post("/personas/{personaID}/rotate", h.HandleRotate)
}

type createPersonaRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// HandleList handles GET /personas.
func (h *PersonaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.personas.ListActivePersonas(ctx, requestcontext.AccountabilityID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"personas": views})
}

// HandleCreate handles POST /personas.
func (h *PersonaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createPersonaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.personas.CreatePersona(ctx, requestcontext.AccountabilityID(ctx), req.DisplayName, req.AvatarURL)
	if err != nil {
		h.logger.WarnContext(ctx, "persona creation rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

type rotatePersonaRequest struct {
	DisplayName string `json:"display_name"`
}

// HandleRotate handles POST /personas/{personaID}/rotate.
func (h *PersonaHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	personaID, err := id.ParsePersonaID(chi.URLParam(r, "personaID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid persona id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[rotatePersonaRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.personas.RotatePersona(ctx, personaID, req.DisplayName, requestcontext.AccountabilityID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "persona rotation rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}
