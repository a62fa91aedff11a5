// Command migration applies the SQL files under db/migrations with
// golang-migrate.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

var errUsage = errors.New("usage")

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Migrate(version uint) error
	Force(version int) error
	Version() (uint, bool, error)
}

type command struct {
	usage string
	run   func(m migrator, args []string, out io.Writer, logger *logging.Logger) error
}

var commands = map[string]command{
	"up": {usage: "up", run: func(m migrator, _ []string, _ io.Writer, logger *logging.Logger) error {
		return applied(logger, m.Up(), "migrations applied")
	}},
	"down": {usage: "down [steps]", run: func(m migrator, args []string, _ io.Writer, logger *logging.Logger) error {
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		return applied(logger, m.Steps(-steps), "migrations rolled back", "steps", steps)
	}},
	"goto": {usage: "goto <version>", run: func(m migrator, args []string, _ io.Writer, logger *logging.Logger) error {
		if len(args) == 0 {
			return fmt.Errorf("%w: goto needs a target version", errUsage)
		}
		target, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		return applied(logger, m.Migrate(target), "migrated to version", "version", target)
	}},
	"force": {usage: "force <version>", run: func(m migrator, args []string, _ io.Writer, logger *logging.Logger) error {
		if len(args) == 0 {
			return fmt.Errorf("%w: force needs a version", errUsage)
		}
		version, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		logger.Info("forced migration version", "version", version)
		return nil
	}},
	"version": {usage: "version", run: func(m migrator, _ []string, out io.Writer, _ *logging.Logger) error {
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			fmt.Fprintln(out, "version: none\ndirty: false")
			return nil
		case err != nil:
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Fprintf(out, "version: %d\ndirty: %t\n", version, dirty)
		return nil
	}},
}

func init() {
	commands["migrate"] = commands["goto"]
}

func main() {
	logger := logging.NewJSON(logging.LevelInfo).Named("migration")
	err := run(os.Args[1:], os.Stdout, logger)
	_ = logger.Sync()
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		printUsage(os.Stderr)
		os.Exit(2)
	case err != nil:
		logger.Error("migration failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, logger *logging.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}
	dir, err := resolveMigrationsDir()
	if err != nil {
		return err
	}

	sourceURL := "file://" + filepath.ToSlash(dir)
	m, err := migrate.New(sourceURL, normalizeDBURL(dbURL))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()

	logger.Info("running migration command", "command", args[0], "source", sourceURL, "database", postgres.DatabaseName(dbURL))
	return cmd.run(m, args[1:], out, logger)
}

// applied treats ErrNoChange as success.
func applied(logger *logging.Logger, err error, msg string, args ...any) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(msg, args...)
	return nil
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

// resolveMigrationsDir checks MIGRATIONS_DIR, MIGRATIONS_PATH, then the repo
// and container layouts.
func resolveMigrationsDir() (string, error) {
	candidates := []string{os.Getenv("MIGRATIONS_DIR"), os.Getenv("MIGRATIONS_PATH"), "./db/migrations", "/app/db/migrations"}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", errors.New("migration directory not found")
}

func normalizeDBURL(raw string) string {
	disable, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("DB_DISABLE_PREPARED_BINARY_RESULT")))
	return postgres.NormalizeDSN(raw, disable)
}

func printUsage(w io.Writer) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "usage: %s <command> [args]\ncommands:\n", name)
	for _, key := range []string{"up", "down", "goto", "force", "version"} {
		fmt.Fprintf(w, "  %s %s\n", name, commands[key].usage)
	}
}
