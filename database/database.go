package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/mbolis/freewill-survey/model"
)

const driverName = "sqlite3"

// Store is the handle to the survey responses table. It is safe for
// concurrent use; isolation is whatever SQLite provides per statement.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the SQLite file at path and initializes
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, model.Persistence("db.open.mkdir", err)
	}

	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, model.Persistence("db.open", err)
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	s := &Store{db: db, path: path, now: time.Now}
	if err = s.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
}

// Path is the location of the storage file.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// Version reports the bundled SQLite library version.
func Version() string {
	v, _, _ := sqlite3.Version()
	return v
}
