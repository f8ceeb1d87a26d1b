package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/program"
	"github.com/claude/repcoach/internal/storage"
)

// Store is the persistence surface the HTTP layer needs. *storage.DB
// satisfies it; tests use an in-memory implementation.
type Store interface {
	GetProgram(ctx context.Context, userID int) (*program.Program, error)
	SaveProgram(ctx context.Context, userID int, p *program.Program) error
	InsertRevision(ctx context.Context, userID int, operations any, p *program.Program) error
	ListRevisions(ctx context.Context, userID int, limit int) ([]storage.Revision, error)
	GetRevision(ctx context.Context, userID int, id int64) (*storage.Revision, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  Store
	runner *engine.Runner
	log    *slog.Logger
	apiKey string
	router chi.Router

	// Serializes the read-apply-write window per user so one batch is
	// processed start-to-finish before the next begins.
	mu        sync.Mutex
	userLocks map[int]*sync.Mutex
}

// New creates a new Server with all routes configured.
func New(store Store, runner *engine.Runner, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:     store,
		runner:    runner,
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
		userLocks: make(map[int]*sync.Mutex),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	// Read endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/program", s.handleGetProgram)
	s.router.Get("/api/v1/program/revisions", s.handleListRevisions)
	s.router.Get("/api/v1/program/revisions/{id}", s.handleGetRevision)

	// Mutation endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/program/operations", s.handleApplyOperations)
		r.Put("/api/v1/program", s.handleReplaceProgram)
	})
}

// lockUser returns the mutex serializing batch application for one user.
func (s *Server) lockUser(userID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}
