package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/asocial/asocial-backend/internal/config"
	gdb "github.com/asocial/asocial-backend/internal/db"
	"github.com/asocial/asocial-backend/internal/log"
)

const usage = `Usage: migrate [-timeout 1m] COMMAND

Commands:
  up      create collections and unique indexes (PostgreSQL also applies versioned migrations)
  down    roll back the latest versioned migration (PostgreSQL only)
  status  print versioned migration status (PostgreSQL only)
  seed    upsert fixture users and posts`

// versioned is implemented by backends with goose managed migrations
type versioned interface {
	MigrateVersioned(ctx context.Context, command string) error
}

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout = flags.Duration("timeout", time.Minute, "overall timeout")
)

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := gdb.NewDatabase(cfg.Database, logger)
	if err != nil {
		logger.Fatalw("Failed to create database", "error", err)
	}
	if err := db.Connect(ctx); err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Disconnect(context.Background())

	command := args[0]
	switch command {
	case "up":
		err = db.Migrate(ctx, gdb.AllSchemas())
	case "down", "status":
		v, ok := db.(versioned)
		if !ok {
			logger.Fatalw("Backend has no versioned migrations", "db_type", cfg.Database.Type, "command", command)
		}
		err = v.MigrateVersioned(ctx, command)
	case "seed":
		if err = db.Migrate(ctx, gdb.AllSchemas()); err == nil {
			err = gdb.Seed(ctx, db)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s\n", command, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatalw("Migration failed", "command", command, "error", err)
	}
	logger.Infow("Migration finished", "command", command, "db_type", cfg.Database.Type)
}
