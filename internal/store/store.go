// Package store manages the sqlite database kept inside every indexed folder.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/lewtec/barber/internal/domain"
)

// FileName is the hidden database file created in each folder
const FileName = ".thumbs.db"

//go:embed migrations/*.sql
var migrations embed.FS

// Store is an open per-folder database
type Store struct {
	db       *sql.DB
	filename string
	logger   *log.Logger
}

// dsn is a file: URI so that '?' and '#' in folder names stay part of the path
func dsn(filename string) string {
	if abs, err := filepath.Abs(filename); err == nil {
		filename = abs
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(filename),
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
	}
	return u.String()
}

// Open opens (creating it when absent) the store of the folder dir
func Open(ctx context.Context, dir string, logger *log.Logger) (*Store, error) {
	return OpenFile(ctx, filepath.Join(dir, FileName), logger)
}

// OpenFile opens the database at filename and brings its schema up to date
func OpenFile(ctx context.Context, filename string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := runMigrations(filename, logger); err != nil {
		return nil, fmt.Errorf("%w: while migrating '%s': %w", domain.ErrPersistence, filename, err)
	}
	db, err := sql.Open("sqlite", dsn(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: while opening '%s': %w", domain.ErrPersistence, filename, err)
	}
	// one writer per file, concurrent callers queue on the pool
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: while opening '%s': %w", domain.ErrPersistence, filename, err)
	}
	return &Store{db: db, filename: filename, logger: logger}, nil
}

// migrations run on their own handle since closing the migrator closes the database
func runMigrations(filename string, logger *log.Logger) error {
	if _, err := os.Stat(filepath.Dir(filename)); err != nil {
		return err
	}
	sqldb, err := sql.Open("sqlite", dsn(filename))
	if err != nil {
		return err
	}
	driver, err := sqlite.WithInstance(sqldb, &sqlite.Config{})
	if err != nil {
		sqldb.Close()
		return fmt.Errorf("sqlite driver: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		sqldb.Close()
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		sqldb.Close()
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Printf("store: schema of '%s' migrated", filename)
	return nil
}

// WithTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: while starting transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: while committing: %w", domain.ErrPersistence, err)
	}
	return nil
}

// DB exposes the handle for read-only queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Filename is the path of the database file
func (s *Store) Filename() string {
	return s.filename
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}
