package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rosterinjector/pkg/domain"
)

func newDB(t *testing.T, name, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("ddl: %v", err)
	}
	return path
}

func TestOpenRequiresExistingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.sqlite")
	if _, err := Open(missing); domain.Kind(err) != "io" {
		t.Fatalf("expected io error, got %v", err)
	}
	if _, err := os.Stat(missing); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("open must not create the file: %v", err)
	}
	if _, err := Open(t.TempDir()); domain.Kind(err) != "io" {
		t.Fatalf("expected io error for directory, got %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	path := newDB(t, "fk.sqlite", `
		CREATE TABLE parent (id INTEGER PRIMARY KEY);
		CREATE TABLE child (pid INTEGER NOT NULL REFERENCES parent(id));`)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()
	var on int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&on); err != nil || on != 1 {
		t.Fatalf("expected foreign_keys=1, got %d (%v)", on, err)
	}
	if _, err := db.Exec(`INSERT INTO child (pid) VALUES (42)`); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestAttachWithTxAndDetach(t *testing.T) {
	ctx := context.Background()
	target := newDB(t, "target.sqlite", `CREATE TABLE t (v TEXT);`)
	source := newDB(t, "source.sqlite", `CREATE TABLE s (v TEXT); INSERT INTO s VALUES ('donor');`)

	db, err := Open(target)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := Attach(ctx, conn, source, "src"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := WithTx(ctx, conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO main.t (v) SELECT v FROM src.s`)
		return err
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}
	boom := errors.New("boom")
	if err := WithTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO main.t (v) VALUES ('discarded')`); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := Detach(conn, "src"); err != nil {
		t.Fatalf("detach: %v", err)
	}

	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected one committed row, got %d (%v)", n, err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT * FROM src.s`); err == nil {
		t.Fatal("expected src to be detached")
	}
}

func TestAttachReadOnlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	target := newDB(t, "target.sqlite", `CREATE TABLE t (v TEXT);`)
	source := newDB(t, "source.sqlite", `CREATE TABLE s (v TEXT); INSERT INTO s VALUES ('donor');`)
	db, err := Open(target)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := AttachReadOnly(ctx, conn, source, "src"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer func() { _ = Detach(conn, "src") }()
	var v string
	if err := conn.QueryRowContext(ctx, `SELECT v FROM src.s`).Scan(&v); err != nil || v != "donor" {
		t.Fatalf("expected donor row, got %q (%v)", v, err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO src.s (v) VALUES ('x')`); err == nil {
		t.Fatal("expected write to read-only schema to fail")
	}
}

func TestAttachRejectsBadAlias(t *testing.T) {
	ctx := context.Background()
	path := newDB(t, "a.sqlite", `CREATE TABLE t (v TEXT);`)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = conn.Close() }()
	for _, alias := range []string{"main", "src; DROP TABLE t", ""} {
		if err := Attach(ctx, conn, path, alias); domain.Kind(err) != "validation" {
			t.Fatalf("alias %q: expected validation error, got %v", alias, err)
		}
	}
	if err := Attach(ctx, conn, filepath.Join(t.TempDir(), "none.sqlite"), "src"); domain.Kind(err) != "io" {
		t.Fatalf("expected io error for missing source, got %v", err)
	}
}
