package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/storage"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepCoach training program server. Read the program with get_program, then edit it with position-addressed operations (week/session/exercise ordinals are 1-based). Edits in one propose_edits batch are applied atomically: either all succeed or the program is unchanged."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetProgram, Handler: h.getProgram},
		server.ServerTool{Tool: toolProposeEdits, Handler: h.proposeEdits},
		server.ServerTool{Tool: toolModifyExercise, Handler: h.editTool(engine.KindModifyExercise)},
		server.ServerTool{Tool: toolAddExercise, Handler: h.editTool(engine.KindAddExercise)},
		server.ServerTool{Tool: toolRemoveExercise, Handler: h.editTool(engine.KindRemoveExercise)},
		server.ServerTool{Tool: toolReorderExercises, Handler: h.editTool(engine.KindReorderExercises)},
		server.ServerTool{Tool: toolModifySession, Handler: h.editTool(engine.KindModifySession)},
		server.ServerTool{Tool: toolAddSession, Handler: h.editTool(engine.KindAddSession)},
		server.ServerTool{Tool: toolRemoveSession, Handler: h.editTool(engine.KindRemoveSession)},
		server.ServerTool{Tool: toolCopySession, Handler: h.editTool(engine.KindCopySession)},
		server.ServerTool{Tool: toolModifyWeek, Handler: h.editTool(engine.KindModifyWeek)},
		server.ServerTool{Tool: toolAddWeek, Handler: h.editTool(engine.KindAddWeek)},
		server.ServerTool{Tool: toolRemoveWeek, Handler: h.editTool(engine.KindRemoveWeek)},
		server.ServerTool{Tool: toolCreateProgram, Handler: h.editTool(engine.KindCreateProgram)},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resProgram, Handler: h.programDocument},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resProgram = mcp.NewResource(
	"repcoach://program",
	"Training Program",
	mcp.WithResourceDescription("The user's current training program: weeks, sessions, exercises, and logged sets, with composite position IDs"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) programDocument(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	doc, err := h.ds.GetProgram(ctx, uid)
	if errors.Is(err, storage.ErrNoProgram) {
		doc = nil
	} else if err != nil {
		return nil, err
	}

	var data []byte
	if doc == nil {
		data = []byte(`{"weeks":[]}`)
	} else {
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, err
		}
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
