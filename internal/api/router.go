package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "github.com/hudsonargollo/isotec-screening/internal/middleware"
	"github.com/hudsonargollo/isotec-screening/internal/services"
)

// Router wires the HTTP surface to the domain services. Handlers only
// decode input, resolve tenant scope and encode output; all semantics
// live in the services package.
type Router struct {
	store      Store
	logger     *zap.Logger
	auth       *services.AuthService
	rules      *services.RuleService
	templates  *services.TemplateService
	responses  *services.ResponseService
	screenings *services.ScreeningService
}

func NewRouter(store Store, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		store:      store,
		logger:     logger,
		auth:       services.NewAuthService(store, mw.SignToken),
		rules:      services.NewRuleService(store),
		templates:  services.NewTemplateService(store),
		responses:  services.NewResponseService(store),
		screenings: services.NewScreeningService(store),
	}
}

// NewMemoryRouter backs the API with the in-memory store. Used by tests
// and local development without a database file.
func NewMemoryRouter(logger *zap.Logger) *Router {
	return NewRouter(newMemoryStore(), logger)
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(mw.RequestLogger(rt.logger))
	r.Use(mw.CORS)
	r.Use(mw.SecureHeaders)
	r.Use(mw.NoStore)
	r.Use(mw.WithAuth)

	r.Get("/health", rt.handleHealth)
	r.Get("/version", rt.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", rt.handleRegister)
		r.Post("/auth/login", rt.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)

			r.Route("/rules", func(r chi.Router) {
				r.Post("/", rt.handleCreateRule)
				r.Get("/", rt.handleListRules)
				r.Get("/{id}", rt.handleGetRule)
				r.Put("/{id}", rt.handleUpdateRule)
				r.Delete("/{id}", rt.handleDeleteRule)
			})

			r.Route("/templates", func(r chi.Router) {
				r.Post("/", rt.handleCreateTemplate)
				r.Get("/", rt.handleListTemplates)
				r.Get("/{id}", rt.handleGetTemplate)
				r.Put("/{id}", rt.handleUpdateTemplate)
				r.Post("/{id}/versions", rt.handleCreateVersion)
				r.Get("/{id}/versions", rt.handleListVersions)
				r.Get("/{id}/versions/compare", rt.handleCompareVersions)
				r.Post("/{id}/revert", rt.handleRevert)
				r.Get("/{id}/consistency", rt.handleConsistency)
			})

			r.Route("/responses", func(r chi.Router) {
				r.Post("/", rt.handleRecordResponse)
				r.Get("/", rt.handleListResponses)
				r.Get("/{id}", rt.handleGetResponse)
			})

			r.Route("/screenings", func(r chi.Router) {
				r.Post("/evaluate", rt.handleEvaluate)
				r.Get("/", rt.handleListScreenings)
				r.Get("/export", rt.handleExportScreenings)
				r.Get("/{id}", rt.handleGetScreening)
			})
		})
	})

	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"engine_version": services.EngineVersion})
}
