// repcoach-mcp serves the RepCoach MCP tools over stdio. By default it
// connects to Postgres directly; with -server it talks to a running
// RepCoach server's REST API instead (useful over Tailscale).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/repcoach/internal/config"
	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepCoach server base URL (remote mode); empty connects to Postgres directly")
	apiKey := flag.String("api-key", os.Getenv("REPCOACH_AUTH_API_KEY"), "API key for remote mode")
	configPath := flag.String("config", "config.yaml", "path to config file (direct mode)")
	flag.Parse()

	// Logs go to stderr: stdout is the MCP transport.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource

	if *serverURL != "" {
		ds = mcp.NewHTTPClient(*serverURL, *apiKey)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ds = mcp.NewLocalSource(db, engine.NewRunner(log), log)
		log.Info("direct mode", "database", cfg.Database.Host)
	}

	s := mcp.New(ds, Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
