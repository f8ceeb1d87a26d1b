package engine

import (
	"errors"
	"log/slog"

	"github.com/claude/repcoach/internal/program"
)

// Result reports the outcome of one operation in a batch. Operations after
// the first failure are never attempted and get no entry.
type Result struct {
	OperationID string   `json:"operationId,omitempty"`
	Kind        string   `json:"kind"`
	Success     bool     `json:"success"`
	Errors      []string `json:"errors,omitempty"`
}

// BatchResult is the outcome of applying one batch. Success is true only if
// every operation succeeded, in which case Program is the fully-applied new
// document with handles stripped. On any failure Program is the caller's
// original document, unchanged.
type BatchResult struct {
	Success bool             `json:"success"`
	Program *program.Program `json:"program"`
	Results []Result         `json:"results"`
}

// Runner applies operation batches. It holds no state between batches;
// each Apply works on its own deep clone of the caller's document.
type Runner struct {
	log *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(log *slog.Logger) *Runner {
	return &Runner{log: log}
}

// Apply executes a batch of proposed operations against doc under
// all-or-nothing semantics:
//
//  1. The document is deep-cloned and every node stamped with a fresh
//     handle.
//  2. Every operation's position arguments are translated to handle
//     references against that snapshot, before anything executes.
//  3. Operations run sequentially: validate against the current (possibly
//     already-mutated) clone, execute, renumber. Each operation sees the
//     effects of the ones before it, but addresses nodes by handle, so an
//     earlier insert or remove never shifts a later operation's target.
//  4. The first failure (address resolution, validation, or execution)
//     records a failed Result and stops the batch; the original document is
//     returned untouched. Remaining operations are not attempted.
//
// Nothing here retries; re-prompting the planner with the error list is the
// caller's decision.
func (r *Runner) Apply(doc *program.Program, proposed []ProposedOp) *BatchResult {
	work, err := doc.Clone()
	if err != nil {
		r.log.Error("batch clone failed", "error", err)
		return &BatchResult{
			Success: false,
			Program: doc,
			Results: []Result{{Success: false, Errors: []string{"internal error: " + err.Error()}}},
		}
	}
	work.AssignHandles()

	// Translate every operation against the stamped snapshot up front.
	// A translation failure is not reported until execution reaches that
	// operation, so earlier operations still run and report normally.
	ops := make([]Op, len(proposed))
	resolveErrs := make([]error, len(proposed))
	for i, p := range proposed {
		op, err := ParseOp(p)
		if err != nil {
			resolveErrs[i] = err
			continue
		}
		if err := resolve(work, op); err != nil {
			resolveErrs[i] = err
			continue
		}
		ops[i] = op
	}

	results := make([]Result, 0, len(proposed))
	for i, p := range proposed {
		if err := resolveErrs[i]; err != nil {
			r.logOpFailure(p, err)
			results = append(results, Result{
				OperationID: p.ID,
				Kind:        p.Kind,
				Success:     false,
				Errors:      []string{err.Error()},
			})
			return &BatchResult{Success: false, Program: doc, Results: results}
		}

		op := ops[i]
		if ok, errs := validate(work, op); !ok {
			results = append(results, Result{
				OperationID: p.ID,
				Kind:        p.Kind,
				Success:     false,
				Errors:      errs,
			})
			return &BatchResult{Success: false, Program: doc, Results: results}
		}

		if err := execute(work, op); err != nil {
			r.logOpFailure(p, err)
			results = append(results, Result{
				OperationID: p.ID,
				Kind:        p.Kind,
				Success:     false,
				Errors:      []string{err.Error()},
			})
			return &BatchResult{Success: false, Program: doc, Results: results}
		}

		results = append(results, Result{OperationID: p.ID, Kind: p.Kind, Success: true})
	}

	work.StripHandles()
	return &BatchResult{Success: true, Program: work, Results: results}
}

func (r *Runner) logOpFailure(p ProposedOp, err error) {
	var inv *InvariantError
	switch {
	case errors.As(err, &inv):
		// Validator passed but the executor lost its target: a defect in
		// this engine, not planner input.
		r.log.Error("execution invariant violated", "kind", p.Kind, "error", err)
	case errors.Is(err, ErrUnknownOp):
		r.log.Error("unknown operation kind", "kind", p.Kind)
	default:
		r.log.Info("operation rejected", "kind", p.Kind, "error", err)
	}
}
