// Package rpmdb is the installed-package database: one row per installed
// build with its dependencies, owned files and removal scriptlets, kept in
// SQLite.
package rpmdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotInitialized is returned when the schema has not been created.
var ErrNotInitialized = errors.New("installed database not initialized")

// DB provides the installed-package database operations.
type DB struct {
	db *sql.DB
}

// New opens the database at path without touching the schema.
func New(path string) (*DB, error) {
	if path != MemoryPath {
		if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	return &DB{db: db}, nil
}

// Open opens the database at path and creates the schema if needed.
func Open(path string) (*DB, error) {
	d, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := d.CreateSchema(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// CreateSchema creates all tables and indexes.
func (d *DB) CreateSchema() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// wrapErr maps missing-table errors onto ErrNotInitialized.
func wrapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotInitialized)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func (d *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
