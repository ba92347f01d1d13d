package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/Tally/internal/middleware"
	"github.com/soaringjerry/Tally/internal/services"
	"github.com/soaringjerry/Tally/internal/ws"
)

// Options configures the HTTP surface.
type Options struct {
	// EmailDomain is the suffix respondent emails must carry on non-anonymous surveys.
	EmailDomain string
	// AdminKeyHash is the bcrypt hash of the author key. Empty leaves author routes open.
	AdminKeyHash string
	// PublicURL is the base of share links, e.g. https://surveys.institution.example.
	PublicURL  string
	CORSOrigin string
	PDFFont    string
}

type Router struct {
	store     Store
	opts      Options
	surveys   *services.SurveyService
	responses *services.ResponseService
	sessions  *services.SessionManager
	analytics *services.AnalyticsService
	exports   *services.ExportService
	auth      *services.AdminAuthService
	live      *ws.LiveFeed
	hub       *ws.Hub
}

func NewRouter(store Store, opts Options) *Router {
	opts.PublicURL = strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/")
	hub := ws.NewHub()
	live := ws.NewLiveFeed(hub, store)
	responses := services.NewResponseService(store, opts.EmailDomain).WithListener(live)
	return &Router{
		store:     store,
		opts:      opts,
		surveys:   services.NewSurveyService(store),
		responses: responses,
		sessions:  services.NewSessionManager(responses, store),
		analytics: services.NewAnalyticsService(store),
		exports:   services.NewExportService(store).WithPDFFont(opts.PDFFont),
		auth:      services.NewAdminAuthService(opts.AdminKeyHash, middleware.SignAdminToken),
		live:      live,
		hub:       hub,
	}
}

// Handler builds the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(rt.opts.CORSOrigin))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Locale)
	r.Use(middleware.WithAuth)

	r.Get("/health", rt.handleHealth)

	admin := middleware.RequireAdmin
	if !rt.auth.Enabled() {
		log.Printf("api: no admin key configured, author routes are open")
		admin = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Post("/auth/login", rt.handleLogin)

		r.Route("/surveys", func(r chi.Router) {
			r.With(admin).Post("/", rt.handleCreateSurvey)
			r.With(admin).Get("/", rt.handleListSurveys)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.handleGetSurvey)
				r.With(admin).Put("/", rt.handleUpdateSurvey)
				r.With(admin).Delete("/", rt.handleDeleteSurvey)
				r.Get("/pages", rt.handlePages)
				r.Get("/link", rt.handleLink)
				r.Get("/qr", rt.handleQR)
				r.Post("/validate", rt.handleValidate)
				r.With(admin).Get("/stats", rt.handleStats)
				r.With(admin).Get("/export", rt.handleExport)
				r.With(admin).Get("/live", rt.handleLive)
			})
		})

		r.Post("/responses", rt.handleSubmit)
		r.With(admin).Get("/responses/survey/{id}", rt.handleListResponses)

		r.Post("/sessions", rt.handleStartSession)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleSession))
			r.Get("/sessions/current", rt.handleCurrentSession)
			r.Put("/sessions/draft", rt.handleSaveDraft)
			r.Post("/sessions/submit", rt.handleSessionSubmit)
		})
	})
	return r
}

// Close stops the session workers.
func (rt *Router) Close() {
	rt.sessions.Close()
}
