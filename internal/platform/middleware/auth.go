package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "veil/internal/jwt_token"
	id "veil/pkg/domain"
	"veil/pkg/requestcontext"
)

// SessionCookieName is where the signed session token lives. HttpOnly so
// scripts never see the accountability ID embedded in it.
const SessionCookieName = "veil_session"

// TokenValidator validates a session token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// SessionAuth authenticates requests from the session cookie (or a Bearer
// header for non-browser clients) and loads the caller's identity into the
// request context.
func SessionAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				unauthorized(w, r, logger, "missing session")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, logger, "invalid session")
				return
			}

			acctID, err := id.ParseAccountabilityID(claims.AccountabilityID)
			if err != nil {
				unauthorized(w, r, logger, "invalid session subject")
				return
			}

			ctx := requestcontext.WithAccountabilityID(r.Context(), acctID)
			if claims.PersonaID != "" {
				if personaID, err := id.ParsePersonaID(claims.PersonaID); err == nil {
					ctx = requestcontext.WithPersonaID(ctx, personaID)
				}
			}
			if claims.Role == jwttoken.RoleModerator {
				// Moderator tokens reuse the accountability claim as actor ID.
				if modID, err := id.ParseModeratorID(claims.AccountabilityID); err == nil {
					ctx = requestcontext.WithModeratorID(ctx, modID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireModerator gates admin routes on the moderator identity having been
// established by SessionAuth.
func RequireModerator(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestcontext.ModeratorID(r.Context()).IsNil() {
				logger.WarnContext(r.Context(), "forbidden - moderator role required",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"FORBIDDEN","message":"moderator role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const bearerPrefix = "Bearer "
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return after
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, detail string) {
	ctx := r.Context()
	logger.WarnContext(ctx, "unauthorized access - "+detail,
		"request_id", requestcontext.RequestID(ctx),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, err := w.Write([]byte(`{"error":"UNAUTHORIZED","message":"missing or invalid session"}`))
	if err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
