package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	postmodels "veil/internal/post/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/httputil"
	"veil/pkg/requestcontext"
)

// PostService is the slice of the post service the handler needs.
type PostService interface {
	CreatePost(ctx context.Context, personaID id.PersonaID, owner id.AccountabilityID, body string) (*postmodels.Post, error)
	GetPost(ctx context.Context, postID id.PostID) (*postmodels.Post, error)
}

// PostHandler serves post publishing and reading. Posts are attributed to
// personas only.
type PostHandler struct {
	posts  PostService
	logger *slog.Logger
}

func NewPostHandler(posts PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

func (h *PostHandler) Register(r chi.Router) {
	r.Post("/posts", h.HandleCreate)
	r.Get("/posts/{postID}", h.HandleGet)
}

type createPostRequest struct {
	PersonaID string `json:"persona_id"`
	Body      string `json:"body"`
}

// HandleCreate handles POST /posts. The persona comes from the request body
// so a caller with several personas picks which one speaks; ownership is
// still checked against the session.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createPostRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	personaID, err := id.ParsePersonaID(req.PersonaID)
	if err != nil {
		// Fall back to the session persona when none is named.
		personaID = requestcontext.PersonaID(ctx)
		if personaID.IsNil() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "persona_id is required"))
			return
		}
	}

	post, err := h.posts.CreatePost(ctx, personaID, requestcontext.AccountabilityID(ctx), req.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "post rejected",
			"request_id", requestID,
			"persona_id", personaID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

// HandleGet handles GET /posts/{postID}.
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	postID, err := id.ParsePostID(chi.URLParam(r, "postID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid post id"))
		return
	}
	post, err := h.posts.GetPost(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}
