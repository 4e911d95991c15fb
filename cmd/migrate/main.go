package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/config"
)

// Migrations manage the refdata_snapshots table; the server runs fine without
// it when DATABASE_URL is unset.
func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "up":
		return step(args, 1)
	case "down":
		return step(args, -1)
	case "force":
		return force(args)
	case "create":
		return create(args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [args]\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  up [n]        Apply all migrations or the next n migrations")
	fmt.Fprintln(os.Stderr, "  down [n]      Roll back all migrations or the last n migrations")
	fmt.Fprintln(os.Stderr, "  create <name> Create new migration files")
	fmt.Fprintln(os.Stderr, "  force <ver>   Force set the migration version (fixes dirty state)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment:")
	fmt.Fprintln(os.Stderr, "  DATABASE_URL  PostgreSQL connection string")
}

func step(args []string, direction int) error {
	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	var migrateErr error
	switch {
	case len(args) == 0 && direction > 0:
		migrateErr = m.Up()
	case len(args) == 0:
		migrateErr = m.Down()
	default:
		steps, err := strconv.Atoi(args[0])
		if err != nil || steps <= 0 {
			return fmt.Errorf("invalid steps: %s", args[0])
		}
		migrateErr = m.Steps(direction * steps)
	}

	if migrateErr != nil && !errors.Is(migrateErr, migrate.ErrNoChange) {
		return migrateErr
	}
	return nil
}

func force(args []string) error {
	if len(args) == 0 {
		return errors.New("version number is required")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version: %s", args[0])
	}

	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Force(version); err != nil {
		return err
	}
	fmt.Printf("Forced version to %d\n", version)
	return nil
}

func create(args []string) error {
	if len(args) == 0 {
		return errors.New("migration name is required")
	}

	name := sanitizeName(args[0])
	if name == "" {
		return errors.New("migration name must include at least one alphanumeric character")
	}

	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", timestamp, name)
	for suffix, header := range map[string]string{".up.sql": "-- migrate up\n", ".down.sql": "-- migrate down\n"} {
		path := filepath.Join(dir, base+suffix)
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", path)
	}
	return nil
}

func newMigrator() (*migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	dir, err := migrationsDir()
	if err != nil {
		return nil, err
	}
	return migrate.New("file://"+dir, cfg.DatabaseURL)
}

func migrationsDir() (string, error) {
	return filepath.Abs("migrations")
}

func sanitizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	re := regexp.MustCompile(`[^a-z0-9_]+`)
	name = re.ReplaceAllString(name, "")
	return strings.Trim(name, "_")
}

func closeMigrator(m *migrate.Migrate) {
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		fmt.Fprintf(os.Stderr, "source close error: %v\n", sourceErr)
	}
	if dbErr != nil {
		fmt.Fprintf(os.Stderr, "db close error: %v\n", dbErr)
	}
}
