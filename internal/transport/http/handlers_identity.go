package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	identityservice "veil/internal/identity/service"
	jwttoken "veil/internal/jwt_token"
	personamodels "veil/internal/persona/models"
	"veil/internal/platform/middleware"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/httputil"
	"veil/pkg/requestcontext"
)

// IdentityService is the slice of the identity service the handler needs.
type IdentityService interface {
	Register(ctx context.Context, email, password, initialDisplayName string) (*identityservice.RegisterResult, error)
	Login(ctx context.Context, email, password, userAgent string) (*identityservice.LoginResult, error)
	GetAccountabilityContext(ctx context.Context, personaID id.PersonaID) (*identityservice.AccountabilityContext, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	GenerateSessionToken(accountabilityID uuid.UUID, personaID uuid.UUID, role string, expiresIn time.Duration) (string, error)
}

// IdentityHandler serves registration and login. The accountability ID
// travels only inside the session cookie; response bodies carry persona
// views alone. The context lookup mounts on the moderator surface.
type IdentityHandler struct {
	identity   IdentityService
	tokens     TokenIssuer
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewIdentityHandler(identity IdentityService, tokens TokenIssuer, sessionTTL time.Duration, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		identity:   identity,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// RegisterPublic mounts the unauthenticated identity endpoints.
func (h *IdentityHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
}

// RegisterModerator mounts the accountability context lookup. This endpoint
// reveals the persona to profile link, so it lives behind the moderator role
// with the rest of the admin surface.
func (h *IdentityHandler) RegisterModerator(r chi.Router) {
	r.Get("/admin/personas/{personaID}/context", h.HandlePersonaContext)
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type sessionResponse struct {
	Persona personamodels.View `json:"persona"`
}

// HandleRegister handles POST /auth/register.
func (h *IdentityHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.identity.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if !h.setSessionCookie(w, r, result.Session) {
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{Persona: result.Persona})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login.
func (h *IdentityHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.identity.Login(ctx, req.Email, req.Password, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if !h.setSessionCookie(w, r, result.Session) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Persona: result.Persona})
}

// HandleLogout clears the session cookie.
func (h *IdentityHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandlePersonaContext handles GET /admin/personas/{personaID}/context: the
// hidden accountability view behind a persona, for moderators only.
func (h *IdentityHandler) HandlePersonaContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personaID, err := id.ParsePersonaID(chi.URLParam(r, "personaID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid persona id"))
		return
	}

	acct, err := h.identity.GetAccountabilityContext(ctx, personaID)
	if err != nil {
		h.logger.ErrorContext(ctx, "accountability context lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}

func (h *IdentityHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, session identityservice.Session) bool {
	token, err := h.tokens.GenerateSessionToken(
		uuid.UUID(session.AccountabilityID),
		uuid.UUID(session.PersonaID),
		jwttoken.RoleUser,
		h.sessionTTL,
	)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue session token",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue session"))
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
