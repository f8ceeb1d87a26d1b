package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/program"
	"github.com/claude/repcoach/internal/storage"
)

// defaultUserID covers single-user deployments; tsnet handles access
// control at the network layer.
const defaultUserID = 1

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProgram(r.Context(), defaultUserID)
	if errors.Is(err, storage.ErrNoProgram) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no program yet"})
		return
	}
	if err != nil {
		s.log.Error("get program", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// operationsRequest is the body of POST /api/v1/program/operations: the
// batch of proposed edits as emitted by the coach planner.
type operationsRequest struct {
	Operations []engine.ProposedOp `json:"operations"`
}

func (s *Server) handleApplyOperations(w http.ResponseWriter, r *http.Request) {
	var req operationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Operations) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "operations list is empty"})
		return
	}

	res, status, err := s.applyBatch(r, defaultUserID, req.Operations)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, status, res)
}

// applyBatch loads the user's program, runs the batch through the engine,
// and persists the result if every operation succeeded. The user's lock is
// held for the whole read-apply-write window.
func (s *Server) applyBatch(r *http.Request, userID int, ops []engine.ProposedOp) (*engine.BatchResult, int, error) {
	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx := r.Context()
	doc, err := s.store.GetProgram(ctx, userID)
	if errors.Is(err, storage.ErrNoProgram) {
		// A create_program batch can bootstrap a first program.
		doc = &program.Program{Weeks: []*program.Week{}}
	} else if err != nil {
		s.log.Error("load program for batch", "error", err)
		return nil, http.StatusInternalServerError, err
	}

	res := s.runner.Apply(doc, ops)
	if !res.Success {
		// Unprocessable: the document is untouched and the per-op results
		// explain why.
		return res, http.StatusUnprocessableEntity, nil
	}

	if err := s.store.SaveProgram(ctx, userID, res.Program); err != nil {
		s.log.Error("save program", "error", err)
		return nil, http.StatusInternalServerError, err
	}
	if err := s.store.InsertRevision(ctx, userID, ops, res.Program); err != nil {
		// History is best-effort; the saved program is the source of truth.
		s.log.Warn("record revision", "error", err)
	}
	return res, http.StatusOK, nil
}

// replaceRequest is the body of PUT /api/v1/program: a full program
// definition, routed through the engine's whole-program replace so it gets
// the same validation and renumbering as any other edit.
type replaceRequest struct {
	Weeks json.RawMessage `json:"weeks"`
}

func (s *Server) handleReplaceProgram(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	args, err := json.Marshal(map[string]json.RawMessage{"weeks": req.Weeks})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, status, err := s.applyBatch(r, defaultUserID, []engine.ProposedOp{
		{Kind: engine.KindCreateProgram, Arguments: args},
	})
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, status, res)
}

func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid revision id"})
		return
	}

	rev, err := s.store.GetRevision(r.Context(), defaultUserID, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	revs, err := s.store.ListRevisions(r.Context(), defaultUserID, limit)
	if err != nil {
		s.log.Error("list revisions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if revs == nil {
		revs = []storage.Revision{}
	}
	writeJSON(w, http.StatusOK, revs)
}
