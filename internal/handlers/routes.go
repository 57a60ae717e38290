package handlers

import (
	"net/http"

	"event-template-platform/internal/middleware"
	"event-template-platform/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig collects what NewRouter mounts. Limiter and Metrics are
// optional.
type RouterConfig struct {
	Documents   *DocumentHandler
	Methods     *MethodHandler
	Dialogs     *DialogHandler
	Health      *HealthHandler
	Auth        *middleware.AuthMiddleware
	Limiter     *middleware.RateLimiter
	Metrics     http.Handler
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.SecureHeaders)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	}
	r.Use(cfg.Auth.LoadUser)
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", cfg.Health.Check)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/resource/{doctype}/{name}", cfg.Documents.GetResource)
		r.Get("/count/{doctype}", cfg.Documents.Count)

		// creating events and templates is for organizers
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleOrganizer))
			r.Use(rateLimit(cfg.Limiter))
			r.Post("/method/create_from_template", cfg.Methods.CreateFromTemplate)
			r.Post("/method/create_template_from_event", cfg.Methods.CreateTemplateFromEvent)
		})

		r.Route("/dialogs", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleOrganizer))
			r.Post("/create-from-template", cfg.Dialogs.OpenCreate)
			r.Post("/save-as-template", cfg.Dialogs.OpenSave)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Dialogs.Get)
				r.Delete("/", cfg.Dialogs.Close)
				r.Put("/template", cfg.Dialogs.ChooseTemplate)
				r.Put("/options/{option}", cfg.Dialogs.SetOption)
				r.Post("/select-all", cfg.Dialogs.SelectAll)
				r.Post("/unselect-all", cfg.Dialogs.UnselectAll)
				r.Put("/overrides/{field}", cfg.Dialogs.SetOverride)
				r.Put("/template-name", cfg.Dialogs.SetTemplateName)
				r.With(rateLimit(cfg.Limiter)).Post("/submit", cfg.Dialogs.Submit)
			})
		})
	})

	return r
}

func rateLimit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(rl)
}
