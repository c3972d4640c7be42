// Package api serves a project's cost and progress reports over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"obra/internal/costing"
	"obra/internal/reports"
	"obra/internal/storage"
)

// RepositoryFunc opens the repository of one project.
type RepositoryFunc func(project string) *storage.Repository

type application struct {
	repos  RepositoryFunc
	ledger *costing.Ledger
	logger *slog.Logger
}

func NewRouter(repos RepositoryFunc, ledger *costing.Ledger, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	app := &application{repos: repos, ledger: ledger, logger: logger}
	return app.mount()
}

// NewServer wraps a handler with the server timeouts used in production.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", app.healthCheckHandler)
	r.Route("/projects/{project}", func(r chi.Router) {
		r.Get("/costs", app.handleGetCosts)
		r.Get("/progress", app.handleGetProgress)
		r.Get("/budget", app.handleGetBudget)
		r.Get("/rates", app.handleGetRates)
		r.Get("/prices", app.handleGetPrices)
		r.Get("/subcontractors", app.handleGetSubcontractors)
	})

	return r
}

func (app *application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		app.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// service resolves the {project} URL parameter. It writes the error response
// itself and returns nil when the project is missing.
func (app *application) service(w http.ResponseWriter, r *http.Request) *reports.Service {
	project := strings.TrimSpace(chi.URLParam(r, "project"))
	if project == "" {
		writeJSONError(w, http.StatusBadRequest, "missing project")
		return nil
	}
	return reports.NewService(app.repos(project), app.ledger)
}

func wantsXLSX(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "xlsx")
}
