package db

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
)

// errUsage marks invalid migrate invocations; the help text is printed.
var errUsage = errors.New("invalid migrate usage")

// RunMigrateCommand handles the 'migrate' subcommand and exits non-zero on
// failure.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) == 0 || args[0] == "help" {
		printMigrateHelp(os.Stdout)
		if len(args) == 0 {
			os.Exit(1)
		}
		return
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("Failed to get migrations filesystem: %v", err)
	}
	// The schema is managed by the migrations themselves.
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.runMigrate(migrationsFS, args, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Printf("%v\n\n", err)
			printMigrateHelp(os.Stdout)
			os.Exit(1)
		}
		log.Fatalf("%v", err)
	}
}

// runMigrate executes one migrate action. force asks for confirmation on in.
func (db *DB) runMigrate(migrations fs.FS, args []string, in io.Reader, out io.Writer) error {
	action := args[0]
	switch action {
	case "up":
		log.Printf("Running migrations...")
		if err := db.MigrateUp(migrations); err != nil {
			return err
		}
		return db.printVersion(migrations, out)

	case "down":
		log.Printf("Rolling back one migration...")
		if err := db.MigrateDown(migrations); err != nil {
			return err
		}
		return db.printVersion(migrations, out)

	case "status":
		status, err := db.GetMigrationStatus(migrations)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		_, err = io.WriteString(out, formatMigrationStatus(status))
		return err

	case "version", "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: %s needs a version number", errUsage, action)
		}
		v, err := strconv.ParseUint(args[1], 10, 0)
		if err != nil {
			return fmt.Errorf("%w: invalid version number %q", errUsage, args[1])
		}
		if action == "version" {
			if err := db.MigrateTo(migrations, uint(v)); err != nil {
				return err
			}
			return db.printVersion(migrations, out)
		}
		return db.forceVersion(migrations, int(v), in, out)

	default:
		return fmt.Errorf("%w: unknown action %q", errUsage, action)
	}
}

func (db *DB) printVersion(migrations fs.FS, out io.Writer) error {
	version, dirty, err := db.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return err
}

func (db *DB) forceVersion(migrations fs.FS, version int, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "WARNING: Forcing migration version to %d\n", version)
	fmt.Fprintln(out, "This should only be used to recover from a dirty migration state.")
	fmt.Fprint(out, "Continue? [y/N]: ")

	answer, _ := bufio.NewReader(in).ReadString('\n')
	if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
		fmt.Fprintln(out, "Aborted")
		return nil
	}
	if err := db.MigrateForce(migrations, version); err != nil {
		return err
	}
	return db.printVersion(migrations, out)
}

func formatMigrationStatus(status *MigrationStatus) string {
	var b strings.Builder
	b.WriteString("=== Migration Status ===\n")
	fmt.Fprintf(&b, "Current version: %d\n", status.Version)
	fmt.Fprintf(&b, "Latest available: %d\n", status.Latest)
	fmt.Fprintf(&b, "Dirty: %v\n", status.Dirty)
	fmt.Fprintf(&b, "Schema migrations table exists: %v\n", status.TrackingTable)
	switch {
	case status.Dirty:
		b.WriteString("\nWARNING: Database is in a dirty state!\n")
		b.WriteString("A migration failed mid-execution. Inspect the database, then run:\n")
		b.WriteString("  cocoeval-server migrate force <version>\n")
	case status.Version < status.Latest:
		fmt.Fprintf(&b, "\nDatabase is %d version(s) behind. Run 'cocoeval-server migrate up' to update.\n",
			status.Latest-status.Version)
	}
	return b.String()
}

func printMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Database Migration Commands

Usage: cocoeval-server [-db <path>] migrate <command>

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  help            Show this help message

Examples:
  cocoeval-server migrate up
  cocoeval-server migrate status
  cocoeval-server migrate version 1
`)
}
