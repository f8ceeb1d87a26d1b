// Package apply runs operation batches against a program JSON file on
// disk, for editing a program offline or replaying exported batches. A
// sqlite journal keyed on batch content hashes makes re-runs skip work
// that already landed.
package apply

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/program"
)

// Stats tracks applier progress.
type Stats struct {
	BatchesTotal   int
	BatchesApplied int
	BatchesSkipped int
	OpsApplied     int
}

// Applier applies batch files to a program file.
type Applier struct {
	runner  *engine.Runner
	journal *Journal
	dryRun  bool
	log     *slog.Logger
	stats   Stats
}

// New creates a new Applier. journal may be nil, in which case every
// batch is applied unconditionally.
func New(runner *engine.Runner, journal *Journal, dryRun bool, log *slog.Logger) *Applier {
	return &Applier{
		runner:  runner,
		journal: journal,
		dryRun:  dryRun,
		log:     log,
	}
}

// LoadProgram reads the program file. A missing file yields an empty
// program so a create_program batch can bootstrap it.
func LoadProgram(path string) (*program.Program, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &program.Program{Weeks: []*program.Week{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading program %s: %w", path, err)
	}

	var p program.Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing program %s: %w", path, err)
	}
	return &p, nil
}

// SaveProgram writes the program file atomically via a rename.
func SaveProgram(path string, p *program.Program) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing program: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing program: %w", err)
	}
	return nil
}

// Run applies the batch file (or every *.json batch file in a directory,
// in name order) at opsPath to the program at programPath. A rejected
// batch stops the run: later batches address positions the earlier ones
// were supposed to produce.
func (a *Applier) Run(programPath, opsPath string) (*Stats, *engine.BatchResult, error) {
	files, err := batchFiles(opsPath)
	if err != nil {
		return &a.stats, nil, err
	}

	doc, err := LoadProgram(programPath)
	if err != nil {
		return &a.stats, nil, err
	}

	for _, f := range files {
		a.stats.BatchesTotal++

		data, err := os.ReadFile(f)
		if err != nil {
			return &a.stats, nil, fmt.Errorf("reading batch %s: %w", f, err)
		}
		hash := HashBatch(data)

		if a.journal != nil {
			applied, err := a.journal.IsApplied(hash)
			if err != nil {
				return &a.stats, nil, fmt.Errorf("journal check for %s: %w", f, err)
			}
			if applied {
				a.stats.BatchesSkipped++
				a.log.Info("batch already applied", "file", f)
				continue
			}
		}

		ops, err := decodeOps(data)
		if err != nil {
			return &a.stats, nil, fmt.Errorf("parsing batch %s: %w", f, err)
		}
		if len(ops) == 0 {
			return &a.stats, nil, fmt.Errorf("batch %s has no operations", f)
		}

		res := a.runner.Apply(doc, ops)
		if !res.Success {
			a.log.Warn("batch rejected", "file", f, "operations", len(ops))
			return &a.stats, res, nil
		}
		doc = res.Program

		if a.dryRun {
			a.log.Info("dry-run: would apply batch", "file", f, "operations", len(ops))
		} else {
			if err := SaveProgram(programPath, doc); err != nil {
				return &a.stats, nil, err
			}
			if a.journal != nil {
				if err := a.journal.MarkApplied(hash, f, len(ops)); err != nil {
					a.log.Warn("failed to journal batch", "file", f, "error", err)
				}
			}
		}

		a.stats.BatchesApplied++
		a.stats.OpsApplied += len(ops)
		a.log.Info("applied batch", "file", f, "operations", len(ops))
	}

	return &a.stats, nil, nil
}

// batchFiles expands opsPath into the ordered list of batch files.
func batchFiles(opsPath string) ([]string, error) {
	info, err := os.Stat(opsPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", opsPath, err)
	}
	if !info.IsDir() {
		return []string{opsPath}, nil
	}

	files, err := filepath.Glob(filepath.Join(opsPath, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *.json batch files in %s", opsPath)
	}
	sort.Strings(files)
	return files, nil
}

// decodeOps accepts either {"operations": [...]} or a bare operation
// array.
func decodeOps(data []byte) ([]engine.ProposedOp, error) {
	var wrapper struct {
		Operations []engine.ProposedOp `json:"operations"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Operations != nil {
		return wrapper.Operations, nil
	}

	var ops []engine.ProposedOp
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}
