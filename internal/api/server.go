package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/protoreview/internal/config"
	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/docstore"
	"github.com/dgallion1/protoreview/internal/layout"
	"github.com/dgallion1/protoreview/internal/metrics"
	"github.com/dgallion1/protoreview/internal/patch"
	"github.com/dgallion1/protoreview/internal/sourcedoc"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Store      docstore.Store
	Layout     *layout.Layout
	Sessions   *coverage.Store
	Dispatcher *patch.Dispatcher
	Stats      *patch.Stats
	Sources    *sourcedoc.Library
}

// Server is the HTTP API server for protoreview.
type Server struct {
	router   chi.Router
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Layout == nil {
		deps.Layout = layout.Default()
	}
	s := &Server{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		r.Use(SessionMiddleware)

		r.Route("/api/studies/{studyID}", func(r chi.Router) {
			r.Get("/tabs", s.handleListTabs)
			r.Get("/tabs/{tabID}", s.handleMountTab)
			r.Get("/unmapped", s.handleUnmapped)
			r.Get("/coverage", s.handleCoverage)
			r.Patch("/fields", s.handlePatchField)
			r.Get("/audit", s.handleAudit)
			r.Get("/citations/{page}", s.handleCitation)
		})

		r.Delete("/api/sessions/current", s.handleDisposeSession)
		r.Get("/api/notifications", s.handleListNotifications)
		r.Delete("/api/notifications/{editID}", s.handleDismissNotification)
		r.Get("/api/stats/patch", s.handlePatchStats)
	})

	s.router = r
}

// RunJanitor expires idle sessions until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.deps.Sessions.Cleanup(); n > 0 {
				s.log.Info("expired review sessions", "count", n)
			}
			metrics.ActiveSessions.Set(float64(s.deps.Sessions.Len()))
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
