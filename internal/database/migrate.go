package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the schema up to date from the SQL files under
// migrationsPath. A schema that is already current is not an error.
func RunMigrations(dsn, migrationsPath string) error {
	// golang-migrate selects its driver by URL scheme; pgx5 is the
	// scheme for the pgx v5 driver.
	dbURL := strings.Replace(dsn, "postgres://", "pgx5://", 1)

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		return fmt.Errorf("opening migrator: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("schema already current")
	case err != nil:
		return fmt.Errorf("applying migrations: %w", err)
	default:
		ver, dirty, _ := m.Version()
		slog.Info("schema migrated", "version", ver, "dirty", dirty)
	}
	return nil
}
