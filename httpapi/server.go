package httpapi

import (
	"net/http"

	"github.com/MrEthical07/tenantauth"
	"github.com/MrEthical07/tenantauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options configures the router.
type Options struct {
	// Logger is the base request logger. Defaults to zerolog.Nop.
	Logger *zerolog.Logger
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	// TrustProxyHeaders takes the client IP from X-Forwarded-For and friends.
	TrustProxyHeaders bool
	// Edge enables the signature-only edge guard in front of every route.
	Edge *middleware.EdgeConfig
	// StaticDir is served under /app/ when set.
	StaticDir string
}

// Handler serves the tenantauth HTTP API.
type Handler struct {
	engine *tenantauth.Engine
	opts   Options
	logger zerolog.Logger
}

// NewHandler returns a Handler for engine.
func NewHandler(engine *tenantauth.Engine, opts Options) *Handler {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Handler{engine: engine, opts: opts, logger: logger}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	if h.opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(requestLogger(h.logger))
	r.Use(recoverer)
	r.Use(clientIP)
	r.Use(bodySizeLimit)
	if h.opts.Edge != nil {
		edge := *h.opts.Edge
		if edge.CookieName == "" {
			edge.CookieName = h.engine.CookieName()
		}
		r.Use(middleware.EdgeGuard(h.engine.Signer(), edge))
	}

	r.Get("/healthz", h.handleHealth)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}
	if h.opts.StaticDir != "" {
		r.Handle("/app/*", http.StripPrefix("/app/", http.FileServer(http.Dir(h.opts.StaticDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.handleLogin)
			r.Method(http.MethodGet, "/session", middleware.WithAuth(h.engine, h.handleSession))
			r.Post("/logout", h.handleLogout)
			r.Post("/register", h.handleRegister)
		})

		r.Method(http.MethodPost, "/account/password", middleware.WithAuth(h.engine, h.handleChangePassword))

		r.Route("/users", func(r chi.Router) {
			r.Method(http.MethodGet, "/", middleware.WithAuth(h.engine, h.handleListUsers,
				tenantauth.RoleAdmin, tenantauth.RoleManager))
			r.Method(http.MethodPost, "/", middleware.WithAuth(h.engine, h.handleCreateUser,
				tenantauth.RoleAdmin))

			r.Route("/{id}", func(r chi.Router) {
				r.Method(http.MethodGet, "/", middleware.WithAuth(h.engine, h.handleGetUser,
					tenantauth.RoleAdmin, tenantauth.RoleManager))
				r.Method(http.MethodDelete, "/", middleware.WithAuth(h.engine, h.handleDeleteUser,
					tenantauth.RoleAdmin))
				r.Method(http.MethodPatch, "/role", middleware.WithAuth(h.engine, h.handleUpdateRole,
					tenantauth.RoleAdmin))
			})
		})
	})

	return r
}
