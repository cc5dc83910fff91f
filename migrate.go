package main

import (
	"errors"
	"fmt"
	"log/slog"

	"cruddemo/modules/db"
)

var errMigrateUsage = errors.New("usage: cruddemo migrate up|down|new <name>")

// isMigrateCommand reports whether the process was started as "cruddemo migrate ...".
func isMigrateCommand(args []string) bool {
	return len(args) > 0 && args[0] == "migrate"
}

// runMigrate executes the arguments following "migrate", in the spirit of the
// dbmate CLI.
func runMigrate(m db.MigrationManager, args []string) error {
	if len(args) == 0 {
		return errMigrateUsage
	}
	switch cmd := args[0]; {
	case cmd == "up" && len(args) == 1:
		slog.Info("applying pending migrations")
		return m.MigrateUp()
	case cmd == "down" && len(args) == 1:
		slog.Info("rolling back latest migration")
		return m.MigrateDown()
	case cmd == "new" && len(args) == 2 && args[1] != "":
		slog.Info("creating migration", slog.String("name", args[1]))
		return m.GenerateMigration(args[1])
	default:
		return fmt.Errorf("migrate %q: %w", args, errMigrateUsage)
	}
}
