package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentportal/internal/config"
	"studentportal/internal/database"
	"studentportal/internal/repository"
)

// errUsage is returned for an unknown or incomplete command line.
var errUsage = errors.New("invalid usage")

// sessionStore is the part of the token session repository the tool uses.
type sessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// tool runs one subcommand against store.
type tool struct {
	store  sessionStore
	in     io.Reader
	out    io.Writer
	logger *log.Logger
	now    func() time.Time
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !strings.EqualFold(cfg.TokenStore, "sql") {
		log.Fatalf("Token store is %q: this tool only manages the sql store", cfg.TokenStore)
	}

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t := tool{
		store:  repository.NewTokenSessionRepository(db),
		in:     os.Stdin,
		out:    os.Stdout,
		logger: log.Default(),
		now:    time.Now,
	}
	if err := t.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stdout)
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

// run dispatches args[0] to its subcommand.
func (t tool) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "prune":
		fs := t.flagSet("prune")
		margin := fs.Duration("older-than", 0, "Also remove sessions expiring within this duration from now")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		return t.prune(ctx, *margin)

	case "revoke":
		fs := t.flagSet("revoke")
		id := fs.String("id", "", "Session ID (the portal_session cookie value, required)")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		if *id == "" {
			fmt.Fprintln(t.out, "Error: -id flag is required")
			fs.PrintDefaults()
			return errUsage
		}
		return t.revoke(ctx, *id)

	case "clear":
		fs := t.flagSet("clear")
		yes := fs.Bool("yes", false, "Skip the confirmation prompt")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		return t.clear(ctx, *yes)

	default:
		return errUsage
	}
}

func (t tool) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(t.out)
	return fs
}

func (t tool) prune(ctx context.Context, margin time.Duration) error {
	if margin < 0 {
		return fmt.Errorf("-older-than must not be negative, got %s", margin)
	}
	cutoff := t.now().Add(margin)
	n, err := t.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	t.logger.Printf("Removed %d sessions expiring before %s", n, cutoff.Format(time.RFC3339))
	return nil
}

func (t tool) revoke(ctx context.Context, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("invalid session ID %q: %w", sessionID, err)
	}
	if err := t.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke failed: %w", err)
	}
	t.logger.Printf("Session %s revoked", sessionID)
	return nil
}

func (t tool) clear(ctx context.Context, skipConfirm bool) error {
	if !skipConfirm {
		fmt.Fprint(t.out, "WARNING: This signs out every visitor. Type 'yes' to confirm: ")
		confirmation, _ := bufio.NewReader(t.in).ReadString('\n')
		if strings.TrimSpace(confirmation) != "yes" {
			t.logger.Println("Clear cancelled")
			return nil
		}
	}

	n, err := t.store.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	t.logger.Printf("Cleared %d sessions", n)
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Student Portal Session Tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sessions prune [options]     Remove expired stored tokens")
	fmt.Fprintln(w, "  sessions revoke -id <id>     Sign out one visitor")
	fmt.Fprintln(w, "  sessions clear [-yes]        Sign out every visitor (WARNING: destructive)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Prune Options:")
	fmt.Fprintln(w, "  -older-than <duration>    Also remove sessions expiring within this window (e.g. 24h)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Fprintln(w, "  DB_PATH          SQLite database path (default: ./studentportal.db)")
	fmt.Fprintln(w, "  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
