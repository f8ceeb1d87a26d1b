package apply

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/program"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const bootstrapBatch = `{"operations":[
	{"kind":"create_program","arguments":{"weeks":[{"phase":"base","sessions":[{"name":"Day 1"}]}]}}
]}`

// TestJournalRoundTrip verifies marks survive reopening the journal.
func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenJournal(dir)
	if err != nil {
		t.Fatal(err)
	}

	hash := HashBatch([]byte("batch contents"))
	applied, err := j.IsApplied(hash)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("fresh journal reports batch applied")
	}

	if err := j.MarkApplied(hash, "batch.json", 3); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j2, err := OpenJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j2.Close()

	applied, err = j2.IsApplied(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Error("mark lost after reopen")
	}
}

// TestApplierBootstrapsProgram verifies a create_program batch against a
// missing program file writes a fresh one.
func TestApplierBootstrapsProgram(t *testing.T) {
	dir := t.TempDir()
	programPath := filepath.Join(dir, "program.json")
	batchPath := filepath.Join(dir, "batch.json")
	writeFile(t, batchPath, bootstrapBatch)

	a := New(engine.NewRunner(testLogger()), nil, false, testLogger())
	stats, rejected, err := a.Run(programPath, batchPath)
	if err != nil {
		t.Fatal(err)
	}
	if rejected != nil {
		t.Fatalf("batch rejected: %+v", rejected.Results)
	}
	if stats.BatchesApplied != 1 || stats.OpsApplied != 1 {
		t.Errorf("stats = %+v", stats)
	}

	p, err := LoadProgram(programPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Weeks) != 1 || p.Weeks[0].Sessions[0].ID != "week-1-session-1" {
		t.Errorf("unexpected program: %+v", p)
	}
}

// TestApplierSkipsJournaledBatches verifies re-running the same directory
// applies nothing the second time.
func TestApplierSkipsJournaledBatches(t *testing.T) {
	dir := t.TempDir()
	programPath := filepath.Join(dir, "program.json")
	batchDir := filepath.Join(dir, "batches")
	if err := os.Mkdir(batchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(batchDir, "01-bootstrap.json"), bootstrapBatch)

	j, err := OpenJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	a := New(engine.NewRunner(testLogger()), j, false, testLogger())
	if _, _, err := a.Run(programPath, batchDir); err != nil {
		t.Fatal(err)
	}

	a2 := New(engine.NewRunner(testLogger()), j, false, testLogger())
	stats, _, err := a2.Run(programPath, batchDir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.BatchesSkipped != 1 || stats.BatchesApplied != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestApplierRejectedBatchStops verifies a failing batch halts the run,
// keeps earlier batches applied, and surfaces the engine diagnostics.
func TestApplierRejectedBatchStops(t *testing.T) {
	dir := t.TempDir()
	programPath := filepath.Join(dir, "program.json")
	batchDir := filepath.Join(dir, "batches")
	if err := os.Mkdir(batchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(batchDir, "01-bootstrap.json"), bootstrapBatch)
	writeFile(t, filepath.Join(batchDir, "02-bad.json"),
		`{"operations":[{"kind":"remove_week","arguments":{"week":9}}]}`)

	a := New(engine.NewRunner(testLogger()), nil, false, testLogger())
	stats, rejected, err := a.Run(programPath, batchDir)
	if err != nil {
		t.Fatal(err)
	}
	if rejected == nil || rejected.Success {
		t.Fatal("second batch should be rejected")
	}
	if stats.BatchesApplied != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// The bootstrap batch is still on disk.
	p, err := LoadProgram(programPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Weeks) != 1 {
		t.Errorf("weeks = %d, want 1", len(p.Weeks))
	}
}

// TestApplierDryRun verifies dry-run touches neither the program file nor
// the journal.
func TestApplierDryRun(t *testing.T) {
	dir := t.TempDir()
	programPath := filepath.Join(dir, "program.json")
	batchPath := filepath.Join(dir, "batch.json")
	writeFile(t, batchPath, bootstrapBatch)

	j, err := OpenJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	a := New(engine.NewRunner(testLogger()), j, true, testLogger())
	stats, rejected, err := a.Run(programPath, batchPath)
	if err != nil {
		t.Fatal(err)
	}
	if rejected != nil {
		t.Fatalf("batch rejected: %+v", rejected.Results)
	}
	if stats.BatchesApplied != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := os.Stat(programPath); !os.IsNotExist(err) {
		t.Error("dry-run wrote the program file")
	}
	data, err := os.ReadFile(batchPath)
	if err != nil {
		t.Fatal(err)
	}
	applied, err := j.IsApplied(HashBatch(data))
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("dry-run journaled the batch")
	}
}

// TestDecodeOps verifies both the wrapped and bare-array batch forms.
func TestDecodeOps(t *testing.T) {
	wrapped := []byte(`{"operations":[{"kind":"remove_week","arguments":{"week":1}}]}`)
	ops, err := decodeOps(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Kind != "remove_week" {
		t.Errorf("wrapped ops = %+v", ops)
	}

	bare := []byte(`[{"kind":"add_week","arguments":{"position":"end","weeks":[{}]}}]`)
	ops, err = decodeOps(bare)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Kind != "add_week" {
		t.Errorf("bare ops = %+v", ops)
	}

	if _, err := decodeOps([]byte(`"nope"`)); err == nil {
		t.Error("expected error for non-batch JSON")
	}
}

// TestSaveProgramRoundTrip verifies SaveProgram writes valid JSON that
// LoadProgram reads back.
func TestSaveProgramRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.json")

	p := &program.Program{Weeks: []*program.Week{{Sessions: []*program.Session{{Name: "Upper"}}}}}
	p.Renumber()
	if err := SaveProgram(path, p); err != nil {
		t.Fatal(err)
	}

	got, err := LoadProgram(path)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(p)
	b, _ := json.Marshal(got)
	if string(a) != string(b) {
		t.Errorf("round trip mismatch:\n%s\n%s", a, b)
	}
}
