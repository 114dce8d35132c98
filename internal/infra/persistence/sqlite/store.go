// Package sqlite opens league database files with the pure go SQLite driver
// and provides the pinned-connection helpers the transplant engine needs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"rosterinjector/pkg/domain"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Open opens an existing league database with foreign keys enforced.
// It does not create missing files.
func Open(path string) (*sql.DB, error) {
	if err := requireRegularFile(path); err != nil {
		return nil, err
	}
	return open(path, "rw")
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*sql.DB, error) {
	if err := requireRegularFile(path); err != nil {
		return nil, err
	}
	return open(path, "ro")
}

// Create opens path, creating the file when absent. Used for fixtures.
func Create(path string) (*sql.DB, error) {
	return open(path, "rwc")
}

func open(path, mode string) (*sql.DB, error) {
	q := url.Values{}
	q.Set("mode", mode)
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := url.URL{Scheme: "file", Path: path, RawQuery: q.Encode()}
	db, err := sql.Open(DriverName, dsn.String())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.IOError{Op: "open", Path: path, Err: err}
	}
	return db, nil
}

func requireRegularFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return domain.IOError{Op: "stat", Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return domain.IOError{Op: "stat", Path: path, Err: errors.New("not a regular file")}
	}
	return nil
}

var schemaName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Attach attaches the database file at path to conn under alias. The path
// is bound as a parameter; the alias must be a plain identifier. ATTACH
// cannot run inside a transaction, so call it before BeginTx.
func Attach(ctx context.Context, conn *sql.Conn, path, alias string) error {
	return attach(ctx, conn, path, path, alias)
}

// AttachReadOnly is Attach with the schema opened read-only, so any write
// through alias fails.
func AttachReadOnly(ctx context.Context, conn *sql.Conn, path, alias string) error {
	uri := url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}
	return attach(ctx, conn, path, uri.String(), alias)
}

func attach(ctx context.Context, conn *sql.Conn, path, name, alias string) error {
	if !schemaName.MatchString(alias) || alias == "main" || alias == "temp" {
		return domain.ValidationError{Field: "alias", Reason: fmt.Sprintf("invalid schema alias %q", alias)}
	}
	if err := requireRegularFile(path); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS `+alias, name); err != nil {
		return fmt.Errorf("attach %s: %w", alias, err)
	}
	return nil
}

// Detach removes an attached schema. It runs on a fresh context so cleanup
// still happens after the caller's context is cancelled.
func Detach(conn *sql.Conn, alias string) error {
	if !schemaName.MatchString(alias) {
		return domain.ValidationError{Field: "alias", Reason: fmt.Sprintf("invalid schema alias %q", alias)}
	}
	if _, err := conn.ExecContext(context.Background(), `DETACH DATABASE `+alias); err != nil {
		return fmt.Errorf("detach %s: %w", alias, err)
	}
	return nil
}

// WithTx runs fn inside a transaction on conn, committing on success and
// rolling back on error or panic.
func WithTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
