package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/program"
	"github.com/claude/repcoach/internal/storage"
)

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// fakeSource records the batches it receives and returns canned results.
type fakeSource struct {
	program *program.Program
	gotOps  []engine.ProposedOp
	result  *engine.BatchResult
}

func (f *fakeSource) GetProgram(_ context.Context, _ int) (*program.Program, error) {
	if f.program == nil {
		return nil, storage.ErrNoProgram
	}
	return f.program, nil
}

func (f *fakeSource) ApplyOperations(_ context.Context, _ int, ops []engine.ProposedOp) (*engine.BatchResult, error) {
	f.gotOps = ops
	if f.result != nil {
		return f.result, nil
	}
	return &engine.BatchResult{Success: true}, nil
}

func testHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestEditToolBuildsSingleOpBatch verifies an edit tool wraps its arguments
// into a one-operation batch of its kind.
func TestEditToolBuildsSingleOpBatch(t *testing.T) {
	ds := &fakeSource{}
	h := testHandlers(ds)

	handler := h.editTool(engine.KindRemoveExercise)
	res, err := handler(context.Background(), callRequest("remove_exercise", map[string]any{
		"week": 1, "session": 2, "exercise": 3,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	if len(ds.gotOps) != 1 {
		t.Fatalf("got %d ops, want 1", len(ds.gotOps))
	}
	op := ds.gotOps[0]
	if op.Kind != engine.KindRemoveExercise {
		t.Errorf("kind = %q", op.Kind)
	}
	var args struct{ Week, Session, Exercise int }
	if err := json.Unmarshal(op.Arguments, &args); err != nil {
		t.Fatal(err)
	}
	if args.Week != 1 || args.Session != 2 || args.Exercise != 3 {
		t.Errorf("arguments = %+v", args)
	}
}

// TestEditToolDefaultsPositionToEnd verifies insert tools fill in "end"
// when the caller omits position.
func TestEditToolDefaultsPositionToEnd(t *testing.T) {
	ds := &fakeSource{}
	h := testHandlers(ds)

	handler := h.editTool(engine.KindAddExercise)
	_, err := handler(context.Background(), callRequest("add_exercise", map[string]any{
		"week": 1, "session": 1,
		"exercise": map[string]any{"name": "Row", "reps": "10", "targetLoad": "2 RIR", "workingSets": 3},
	}))
	if err != nil {
		t.Fatal(err)
	}

	var args struct {
		Position engine.Position `json:"position"`
	}
	if err := json.Unmarshal(ds.gotOps[0].Arguments, &args); err != nil {
		t.Fatal(err)
	}
	if !args.Position.End {
		t.Errorf("position = %+v, want end", args.Position)
	}
}

// TestNormalizePositions verifies string positions from the tool schema are
// converted to the integer wire form, with "end" passed through.
func TestNormalizePositions(t *testing.T) {
	args := map[string]any{
		"position":    "3",
		"newPosition": "end",
	}
	normalizePositions(args)
	if args["position"] != 3 {
		t.Errorf("position = %v (%T), want 3", args["position"], args["position"])
	}
	if args["newPosition"] != "end" {
		t.Errorf("newPosition = %v, want end", args["newPosition"])
	}
}

// TestProposeEditsDecodesBatch verifies propose_edits forwards the whole
// operations array.
func TestProposeEditsDecodesBatch(t *testing.T) {
	ds := &fakeSource{}
	h := testHandlers(ds)

	res, err := h.proposeEdits(context.Background(), callRequest("propose_edits", map[string]any{
		"operations": []any{
			map[string]any{"id": "op-1", "kind": "remove_week", "arguments": map[string]any{"week": 2}},
			map[string]any{"id": "op-2", "kind": "add_week", "arguments": map[string]any{"position": "end", "weeks": []any{}}},
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	if len(ds.gotOps) != 2 {
		t.Fatalf("got %d ops, want 2", len(ds.gotOps))
	}
	if ds.gotOps[0].ID != "op-1" || ds.gotOps[0].Kind != "remove_week" {
		t.Errorf("op[0] = %+v", ds.gotOps[0])
	}
	if ds.gotOps[1].Kind != "add_week" {
		t.Errorf("op[1] = %+v", ds.gotOps[1])
	}
}

// TestProposeEditsEmptyBatch verifies an empty operations list is rejected
// as a tool error, not sent to the engine.
func TestProposeEditsEmptyBatch(t *testing.T) {
	ds := &fakeSource{}
	h := testHandlers(ds)

	res, err := h.proposeEdits(context.Background(), callRequest("propose_edits", map[string]any{
		"operations": []any{},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error for empty batch")
	}
	if ds.gotOps != nil {
		t.Error("empty batch reached the data source")
	}
}

// TestGetProgramToolNoProgram verifies get_program surfaces the missing
// program as a tool error that points at create_program.
func TestGetProgramToolNoProgram(t *testing.T) {
	h := testHandlers(&fakeSource{})

	res, err := h.getProgram(context.Background(), callRequest("get_program", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error when no program exists")
	}
}

// TestGetProgramToolReturnsDocument verifies get_program serializes the
// stored program.
func TestGetProgramToolReturnsDocument(t *testing.T) {
	p := &program.Program{Weeks: []*program.Week{{Sessions: []*program.Session{{Name: "Upper"}}}}}
	p.Renumber()
	h := testHandlers(&fakeSource{program: p})

	res, err := h.getProgram(context.Background(), callRequest("get_program", nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var got program.Program
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Weeks) != 1 || got.Weeks[0].Sessions[0].Name != "Upper" {
		t.Errorf("unexpected program: %+v", got)
	}
}
