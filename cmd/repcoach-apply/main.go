package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/repcoach/internal/apply"
	"github.com/claude/repcoach/internal/engine"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	programPath := flag.String("program", "", "path to the program JSON file")
	opsPath := flag.String("ops", "", "path to a batch file, or a directory of *.json batch files")
	dryRun := flag.Bool("dry-run", false, "run batches but don't write the program or journal")
	noJournal := flag.Bool("no-journal", false, "apply every batch even if already journaled")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-apply", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *programPath == "" || *opsPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: repcoach-apply -program <file> -ops <file-or-dir> [-dry-run] [-no-journal]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Open journal
	var journal *apply.Journal
	if !*noJournal {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}

		journal, err = apply.OpenJournal(filepath.Join(homeDir, ".repcoach-apply"))
		if err != nil {
			log.Error("failed to open journal", "error", err)
			os.Exit(1)
		}
		defer journal.Close()
	}

	if *dryRun {
		log.Info("DRY RUN mode — batches run but nothing is written")
	}

	applier := apply.New(engine.NewRunner(log), journal, *dryRun, log)
	stats, rejected, err := applier.Run(*programPath, *opsPath)
	if err != nil {
		log.Error("apply failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)

	if rejected != nil {
		fmt.Println("  Rejected batch:")
		for _, r := range rejected.Results {
			status := "ok"
			if !r.Success {
				status = "FAILED"
			}
			fmt.Printf("    - %s [%s]\n", r.Kind, status)
			for _, e := range r.Errors {
				fmt.Printf("        %s\n", e)
			}
		}
		fmt.Println()
		os.Exit(1)
	}

	log.Info("apply complete")
}

func printStats(stats *apply.Stats) {
	fmt.Println()
	fmt.Println("=== Apply Summary ===")
	fmt.Printf("  Batches total:    %d\n", stats.BatchesTotal)
	fmt.Printf("  Batches applied:  %d\n", stats.BatchesApplied)
	fmt.Printf("  Batches skipped:  %d (already applied)\n", stats.BatchesSkipped)
	fmt.Printf("  Operations:       %d\n", stats.OpsApplied)
	fmt.Println()
}
