// Package httpapi exposes the wizard, the directory and persisted drafts
// over a JSON HTTP API.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tallyup/tally-backend/internal/auth"
	"github.com/tallyup/tally-backend/internal/domain"
	"github.com/tallyup/tally-backend/internal/usecase/wizard"
)

// Options carries the server's collaborators and policy knobs
type Options struct {
	Directory domain.Directory
	Drafts    domain.DraftRepository
	JWT       *auth.JWTManager
	Logger    *slog.Logger

	Currency        string
	RequireCategory bool
	DevAuth         bool

	// Clock feeds new sessions' coordinators. Nil means the system clock;
	// tests inject a fake to step past the transition cooldown.
	Clock wizard.Clock
}

// Server is the HTTP adapter. It owns the live session registry; everything
// else is borrowed.
type Server struct {
	registry *sessionRegistry
	metrics  *Metrics

	directory domain.Directory
	drafts    domain.DraftRepository
	jwt       *auth.JWTManager
	logger    *slog.Logger

	currency        string
	requireCategory bool
	devAuth         bool
	clock           wizard.Clock

	httpServer *http.Server
}

// NewServer creates a Server with the given options
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		registry:        newSessionRegistry(),
		metrics:         NewMetrics(),
		directory:       opts.Directory,
		drafts:          opts.Drafts,
		jwt:             opts.JWT,
		logger:          opts.Logger,
		currency:        opts.Currency,
		requireCategory: opts.RequireCategory,
		devAuth:         opts.DevAuth,
		clock:           opts.Clock,
	}
}

// Routes builds the router. Split out from Start so tests can drive the
// handler tree directly with httptest.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	if s.devAuth {
		r.Post("/auth/token", s.mintToken)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate(s.jwt))

		r.Get("/people", s.listPeople)
		r.Get("/groups", s.listGroups)

		r.Get("/drafts", s.listDrafts)
		r.Get("/drafts/{id}", s.getDraft)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/{id}", s.getSession)
			r.Delete("/{id}", s.deleteSession)

			r.Put("/{id}/details", s.updateDetails)

			r.Post("/{id}/participants", s.addParticipant)
			r.Delete("/{id}/participants/{pid}", s.removeParticipant)
			r.Put("/{id}/payer", s.selectPayer)
			r.Post("/{id}/group", s.selectGroup)
			r.Put("/{id}/split-mode", s.setSplitMode)

			r.Put("/{id}/method", s.setMethod)
			r.Put("/{id}/splits/{pid}", s.updateSplit)

			r.Post("/{id}/advance", s.advance)
			r.Post("/{id}/retreat", s.retreat)
			r.Post("/{id}/finalize", s.finalize)
		})
	})

	return r
}

// Start begins serving on the given port and blocks until the listener fails
func (s *Server) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server listening", "port", port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
