package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/postgres"
	"horizon/internal/shared/config"
	"horizon/internal/shared/logging"
)

const usage = `Horizon Admin CLI - maintenance commands for the Horizon API

Usage:
  admin <command> [options]

Commands:
  migrate              Apply pending database migrations
  sweep-sessions       Delete expired sessions
  reveal-sharable-id   Decrypt a sharable bank account id

Examples:
  admin migrate
  admin sweep-sessions --timeout=2m
  admin reveal-sharable-id --id=Zm9vYmFy...
`

var errUsage = errors.New("invalid usage")

func main() {
	config.LoadDotEnv()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run dispatches a command. Every command releases what it opened before
// returning, so main is the only place the process exits.
func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(out, usage)
		return errUsage
	}

	switch command := args[0]; command {
	case "migrate":
		return runMigrate(args[1:])
	case "sweep-sessions":
		return runSweepSessions(args[1:], out)
	case "reveal-sharable-id":
		return runRevealSharableID(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n\n", command)
		fmt.Fprintln(out, usage)
		return errUsage
	}
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 2*time.Minute, "Timeout for the operation")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, logger, err := load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("database is up to date")
	return nil
}

func runSweepSessions(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sweep-sessions", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "Timeout for the operation")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, _, err := load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	provider := postgres.NewIdentityProvider(db, cfg.Session.TTL)
	removed, err := provider.SweepExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	fmt.Fprintf(out, "Expired sessions removed: %d\n", removed)
	return nil
}

func runRevealSharableID(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reveal-sharable-id", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.String("id", "", "Sharable id to decrypt")
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: admin reveal-sharable-id --id=<sharable id>")
		fmt.Fprintln(out, "\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" {
		fmt.Fprintln(out, "Error: --id is required")
		fs.Usage()
		return errUsage
	}

	cfg, _, err := load()
	if err != nil {
		return err
	}

	accountID, err := revealSharableID(cfg.Encryption.Key, *id)
	if err != nil {
		return fmt.Errorf("reveal failed: %w", err)
	}
	fmt.Fprintln(out, accountID)
	return nil
}

func revealSharableID(key, sharableID string) (string, error) {
	encryptor, err := crypto.NewEncryptor(key)
	if err != nil {
		return "", err
	}
	return encryptor.Open(sharableID)
}

func load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, "horizon-admin", cfg.Env), nil
}

func connect(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.Open(ctx, cfg.Database.ConnectionString(), postgres.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
