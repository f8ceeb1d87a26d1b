package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/storage"
)

const positionDesc = `Insertion position among current siblings: a 1-based integer or "end"`

// --- Tool definitions ---

var toolGetProgram = mcp.NewTool("get_program",
	mcp.WithDescription("Read the current training program as JSON. The week/session/exercise ordinals in the document are the positions the edit tools address."),
)

var toolProposeEdits = mcp.NewTool("propose_edits",
	mcp.WithDescription("Apply a batch of edit operations atomically: either every operation succeeds or the program is unchanged. Each operation is {id, kind, arguments} where kind is one of the edit tool names and arguments matches that tool's parameters."),
	mcp.WithArray("operations", mcp.Required(), mcp.Description("Operations to apply, in order")),
)

var toolModifyExercise = mcp.NewTool("modify_exercise",
	mcp.WithDescription("Change fields of one exercise. Only the fields present in updates are touched. Renaming an exercise, or moving it across the bodyweight/weighted boundary, clears its logged sets."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithNumber("session", mcp.Required(), mcp.Description("1-based session number within the week")),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("1-based exercise number within the session")),
	mcp.WithObject("updates", mcp.Required(), mcp.Description("Fields to change: name, superset, warmupSets, workingSets, reps, targetLoad, restSeconds, coachNotes, userNotes, skipped")),
)

var toolAddExercise = mcp.NewTool("add_exercise",
	mcp.WithDescription("Insert a new exercise into a session. Requires name, reps, targetLoad, and workingSets."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithNumber("session", mcp.Required(), mcp.Description("1-based session number within the week")),
	mcp.WithString("position", mcp.Description(positionDesc+`. Defaults to "end".`)),
	mcp.WithObject("exercise", mcp.Required(), mcp.Description("The exercise to add: name, reps, targetLoad, workingSets (required); superset, warmupSets, restSeconds, coachNotes (optional)")),
)

var toolRemoveExercise = mcp.NewTool("remove_exercise",
	mcp.WithDescription("Delete one exercise. Following exercises in the session are renumbered."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithNumber("session", mcp.Required(), mcp.Description("1-based session number within the week")),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("1-based exercise number within the session")),
)

var toolReorderExercises = mcp.NewTool("reorder_exercises",
	mcp.WithDescription("Move one exercise to a new position within its session."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithNumber("session", mcp.Required(), mcp.Description("1-based session number within the week")),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("1-based exercise number to move")),
	mcp.WithString("newPosition", mcp.Required(), mcp.Description(positionDesc)),
)

var toolModifySession = mcp.NewTool("modify_session",
	mcp.WithDescription("Change fields of one session. Only the fields present in updates are touched."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithNumber("session", mcp.Required(), mcp.Description("1-based session number within the week")),
	mcp.WithObject("updates", mcp.Required(), mcp.Description("Fields to change: name, date, dayOfWeek, warmup, notes, cardio")),
)

var toolAddSession = mcp.NewTool("add_session",
	mcp.WithDescription("Insert a new session into a week, optionally with exercises."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithString("position", mcp.Description(positionDesc+`. Defaults to "end".`)),
	mcp.WithObject("session", mcp.Required(), mcp.Description("The session to add: name (required); date, dayOfWeek, warmup, exercises, notes, cardio (optional)")),
)

var toolRemoveSession = mcp.NewTool("remove_session",
	mcp.WithDescription("Delete one session. Following sessions in the week are renumbered."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithNumber("session", mcp.Required(), mcp.Description("1-based session number within the week")),
)

var toolCopySession = mcp.NewTool("copy_session",
	mcp.WithDescription("Deep-copy a session into a target week. The copy keeps structure and prescriptions but starts with no logged sets or completion state."),
	mcp.WithNumber("sourceWeek", mcp.Required(), mcp.Description("1-based week number of the session to copy")),
	mcp.WithNumber("sourceSession", mcp.Required(), mcp.Description("1-based session number of the session to copy")),
	mcp.WithNumber("targetWeek", mcp.Required(), mcp.Description("1-based week number to copy into")),
	mcp.WithString("position", mcp.Description(positionDesc+`. Defaults to "end".`)),
)

var toolModifyWeek = mcp.NewTool("modify_week",
	mcp.WithDescription("Change fields of one week. Only the fields present in updates are touched."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
	mcp.WithObject("updates", mcp.Required(), mcp.Description("Fields to change: phase, startDate, endDate, description")),
)

var toolAddWeek = mcp.NewTool("add_week",
	mcp.WithDescription("Insert one or more new weeks. The program holds at most 4 weeks and every week needs at least one session."),
	mcp.WithString("position", mcp.Description(positionDesc+`. Defaults to "end".`)),
	mcp.WithArray("weeks", mcp.Required(), mcp.Description("Weeks to insert, each with at least one session")),
)

var toolRemoveWeek = mcp.NewTool("remove_week",
	mcp.WithDescription("Delete one week. Following weeks are renumbered."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("1-based week number")),
)

var toolCreateProgram = mcp.NewTool("create_program",
	mcp.WithDescription("Replace the whole program with a new one: 1-4 weeks, each with at least one session. Also bootstraps the first program."),
	mcp.WithArray("weeks", mcp.Required(), mcp.Description("The new program's weeks")),
)

// --- Tool handlers ---

func (h *handlers) getProgram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	doc, err := h.ds.GetProgram(ctx, uid)
	if errors.Is(err, storage.ErrNoProgram) {
		return mcp.NewToolResultError("no program yet: use create_program to start one"), nil
	}
	if err != nil {
		h.log.Error("mcp get_program", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(doc)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) proposeEdits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(req.GetArguments()["operations"])
	if err != nil {
		return mcp.NewToolResultError("invalid operations: " + err.Error()), nil
	}

	var ops []engine.ProposedOp
	if err := json.Unmarshal(raw, &ops); err != nil {
		return mcp.NewToolResultError("operations must be a list of {id, kind, arguments}: " + err.Error()), nil
	}
	if len(ops) == 0 {
		return mcp.NewToolResultError("operations list is empty"), nil
	}
	for i := range ops {
		ops[i].Arguments = normalizeArguments(ops[i].Arguments)
	}

	return h.apply(ctx, ops)
}

// editTool returns a handler that wraps the tool's arguments into a
// single-operation batch of the given kind.
func (h *handlers) editTool(kind string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		switch kind {
		case engine.KindAddExercise, engine.KindAddSession, engine.KindCopySession, engine.KindAddWeek:
			if _, ok := args["position"]; !ok {
				args["position"] = "end"
			}
		}
		normalizePositions(args)

		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}
		return h.apply(ctx, []engine.ProposedOp{{Kind: kind, Arguments: raw}})
	}
}

func (h *handlers) apply(ctx context.Context, ops []engine.ProposedOp) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	res, err := h.ds.ApplyOperations(ctx, uid, ops)
	if err != nil {
		h.log.Error("mcp apply operations", "error", err)
		return mcp.NewToolResultError("apply failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// normalizePositions converts position arguments that arrived as strings
// (the declared schema, since a position is an integer or "end") into the
// integer form the engine expects.
func normalizePositions(args map[string]any) {
	for _, key := range []string{"position", "newPosition"} {
		s, ok := args[key].(string)
		if !ok || s == "end" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			args[key] = n
		}
	}
}

// normalizeArguments applies normalizePositions to one raw argument
// object; malformed input passes through for the engine to reject.
func normalizeArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return raw
	}
	normalizePositions(args)
	out, err := json.Marshal(args)
	if err != nil {
		return raw
	}
	return out
}
