package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kiranshivaraju/jobstatus/internal/api/handler"
	mw "github.com/kiranshivaraju/jobstatus/internal/api/middleware"
	"github.com/kiranshivaraju/jobstatus/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit  *mw.RateLimit
	TrustProxy bool

	HealthHandler  http.HandlerFunc
	AnalyzeHandler http.HandlerFunc

	// Jobs serves the catalog routes. Nil leaves them unregistered.
	Jobs *handler.JobsHandler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Analysis, rate limited per client
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		analyze := orNotImplemented(deps.AnalyzeHandler)
		r.Post("/api/analyze", analyze)
		r.Post("/api/v1/analyze", analyze)
	})

	if deps.Jobs != nil {
		r.Get("/api/v1/jobs", deps.Jobs.List)
		r.Get("/api/v1/jobs/{slug}", deps.Jobs.Get)
		r.Get("/api/v1/jobs/{slug}/related", deps.Jobs.Related)
		r.Get("/api/v1/compare", deps.Jobs.Compare)
	}

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented")
	}
}
