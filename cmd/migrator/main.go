// Package main provides the database migration CLI tool for eventpipe.
//
// It drives the same embedded-migration runner the server uses at startup,
// exposed here as a standalone binary for operational use (manual upgrades,
// rollbacks, and status checks outside the server's own lifecycle).
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/fluxgate/eventpipe/internal/store"
	"github.com/fluxgate/eventpipe/internal/store/migrations"
)

const (
	version = "1.0.0-dev"
	name    = "migrator"
)

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help information")
		showVersion = flag.Bool("version", false, "Show version information")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if *showHelp || len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	cfg := store.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	conn, err := store.NewConnection(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	runner, err := migrations.NewRunner(conn.DB, logger)
	if err != nil {
		log.Fatalf("failed to create migration runner: %v", err)
	}
	defer runner.Close()

	if err := executeCommand(command, runner); err != nil {
		log.Fatalf("migration command failed: %v", err)
	}
}

func executeCommand(command string, runner migrations.Runner) error {
	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "status":
		version, dirty, err := runner.Status()
		if err != nil {
			return err
		}

		fmt.Printf("version: %d, dirty: %t\n", version, dirty)

		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Printf(`%s v%s - Database Migration Tool for eventpipe

USAGE:
    %s [OPTIONS] COMMAND

COMMANDS:
    up      Apply all pending migrations
    down    Rollback the last migration
    status  Show current migration version and dirty state

OPTIONS:
    --help     Show this help message
    --version  Show version information

ENVIRONMENT VARIABLES:
    EVENTPIPE_DATABASE_URL  PostgreSQL connection string (REQUIRED)

EXAMPLES:
    %s up       # Apply all pending migrations
    %s status   # Show current migration status
    %s down     # Rollback last migration
`, name, version, name, name, name, name)
}
