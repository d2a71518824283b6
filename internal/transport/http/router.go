package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veil/internal/platform/middleware"
)

// Registrar mounts a handler's routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the pieces the router wires together. Handlers stay
// thin; everything of substance lives behind the service interfaces.
type RouterConfig struct {
	Identity  *IdentityHandler
	Persona   *PersonaHandler
	Post      *PostHandler
	Admin     *AdminHandler
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	Health    func(r chi.Router)
}

// NewRouter wires all endpoints. Public routes (register, login, healthz,
// metrics) sit outside the session middleware; everything else requires an
// authenticated session, and /admin additionally requires the moderator role.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Health != nil {
		cfg.Health(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	cfg.Identity.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.Validator, cfg.Logger))

		cfg.Persona.Register(r)
		cfg.Post.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireModerator(cfg.Logger))
			cfg.Admin.Register(r)
			cfg.Identity.RegisterModerator(r)
		})
	})

	return r
}
