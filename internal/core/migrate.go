// AngelaMos | 2026
// migrate.go

package core

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending schema migration. It opens a dedicated
// connection because the migrate driver closes its database on shutdown.
func Migrate(databaseURL string) (uint, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return 0, fmt.Errorf("open migration connection: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on setup failure
		return 0, fmt.Errorf("load migrations: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on setup failure
		return 0, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on setup failure
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		//nolint:errcheck // closes the dedicated connection
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	return version, nil
}
