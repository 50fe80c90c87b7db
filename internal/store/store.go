// Package store is the persistence gateway: CRUD over the six record
// families (history, bookmarks, folders, downloads, settings, tab
// snapshots) against a single embedded sqlite database.
//
// The store owns exactly one connection handle, opened once at startup
// and closed once at shutdown. Calling any operation outside that
// window returns ErrNotOpen rather than silently no-opping.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/logging"
)

// ErrNotOpen is returned when a gateway operation runs before Open or
// after Close. This is a programming error at the call site.
var ErrNotOpen = errors.New("store: database not open")

// ErrNotFound is returned by single-row lookups with no match.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence gateway.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens (creating if necessary) the database file at path and runs
// migrations.
func Open(path string, log *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return open("file:"+path+"?_busy_timeout=5000&_journal_mode=WAL", log)
}

// OpenInMemory opens a non-persistent database. Used in tests and as a
// degraded fallback when the on-disk store cannot be opened: browsing
// without durable history beats not starting at all.
func OpenInMemory(log *logging.Logger) (*Store, error) {
	return open("file::memory:?cache=shared", log)
}

func open(dsn string, log *logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite handles one writer at a time; a single conn avoids
	// table-lock errors between the coordinator and the tracker.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, log: log.Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection handle. Further operations fail with
// ErrNotOpen.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpen
	}
	return s.db, nil
}

// inTx runs fn inside a transaction, rolling back on error. Multi-row
// writes for one logical action go through here so partial application
// is never observable.
func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
