package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/program"
	"github.com/claude/repcoach/internal/storage"
)

// DataSource abstracts the program data layer for MCP tools. Both
// LocalSource (direct Postgres) and HTTPClient (remote via REST API)
// satisfy this interface.
type DataSource interface {
	GetProgram(ctx context.Context, userID int) (*program.Program, error)
	ApplyOperations(ctx context.Context, userID int, ops []engine.ProposedOp) (*engine.BatchResult, error)
}

// Store is the persistence surface LocalSource needs. *storage.DB
// satisfies it.
type Store interface {
	GetProgram(ctx context.Context, userID int) (*program.Program, error)
	SaveProgram(ctx context.Context, userID int, p *program.Program) error
	InsertRevision(ctx context.Context, userID int, operations any, p *program.Program) error
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// LocalSource runs batches against the database directly. Used when the
// MCP binary has its own Postgres connection rather than talking to a
// remote server.
type LocalSource struct {
	store  Store
	runner *engine.Runner
	log    *slog.Logger

	mu        sync.Mutex
	userLocks map[int]*sync.Mutex
}

// Compile-time check: *LocalSource satisfies DataSource.
var _ DataSource = (*LocalSource)(nil)

// NewLocalSource creates a LocalSource on the given store.
func NewLocalSource(store Store, runner *engine.Runner, log *slog.Logger) *LocalSource {
	return &LocalSource{
		store:     store,
		runner:    runner,
		log:       log,
		userLocks: make(map[int]*sync.Mutex),
	}
}

func (s *LocalSource) GetProgram(ctx context.Context, userID int) (*program.Program, error) {
	return s.store.GetProgram(ctx, userID)
}

// ApplyOperations runs one batch through the engine and persists the
// result when every operation succeeded. A failed batch is not an error:
// the BatchResult carries the per-operation diagnostics.
func (s *LocalSource) ApplyOperations(ctx context.Context, userID int, ops []engine.ProposedOp) (*engine.BatchResult, error) {
	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.store.GetProgram(ctx, userID)
	if errors.Is(err, storage.ErrNoProgram) {
		// A create_program batch can bootstrap a first program.
		doc = &program.Program{Weeks: []*program.Week{}}
	} else if err != nil {
		return nil, err
	}

	res := s.runner.Apply(doc, ops)
	if !res.Success {
		return res, nil
	}

	if err := s.store.SaveProgram(ctx, userID, res.Program); err != nil {
		return nil, err
	}
	if err := s.store.InsertRevision(ctx, userID, ops, res.Program); err != nil {
		// History is best-effort; the saved program is the source of truth.
		s.log.Warn("record revision", "error", err)
	}
	return res, nil
}

func (s *LocalSource) lockUser(userID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}
