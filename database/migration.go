package database

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mbolis/freewill-survey/model"
)

//go:embed migrations
var dbMigrations embed.FS

// Initialize creates the responses table, its indexes and the updated_at
// trigger when absent. It never alters existing rows and is safe to call on
// every start, including on stores created by the legacy survey backend.
func (s *Store) Initialize() error {
	if err := migrateDB(s.db); err != nil {
		return model.Persistence("db.initialize", err)
	}
	return nil
}

func migrateDB(db *sql.DB) error {
	src, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return err
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return err
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		// db already up to date
		break
	case err != nil:
		return err
	}
	return nil
}
