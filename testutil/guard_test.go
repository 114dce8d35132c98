package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestImportPredicates(t *testing.T) {
	cases := []struct {
		in       string
		internal bool
		storage  bool
	}{
		{"rosterinjector/internal/codec", true, false},
		{"rosterinjector/pkg/domain", false, false},
		{"database/sql", false, true},
		{"database/sql/driver", false, true},
		{"modernc.org/sqlite", false, true},
		{"modernc.org/sqlite/lib", false, true},
		{"github.com/google/uuid", false, false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.internal {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.internal)
		}
		if got := StorageImportForbidden(c.in); got != c.storage {
			t.Fatalf("StorageImportForbidden(%q)=%v want %v", c.in, got, c.storage)
		}
		if got := AnyOf(InternalImportForbidden, StorageImportForbidden)(c.in); got != (c.internal || c.storage) {
			t.Fatalf("AnyOf(%q)=%v", c.in, got)
		}
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeGo(t *testing.T, path, src string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, filepath.Join(dir, "a.go"), "package tmp\nimport (\n\t\"fmt\"\n\t\"database/sql\"\n)\nvar _ = fmt.Sprint\nvar _ *sql.DB\n")
	writeGo(t, filepath.Join(dir, "a_test.go"), "package tmp\nimport \"modernc.org/sqlite\"\n")
	writeGo(t, filepath.Join(dir, "notes.txt"), "import \"database/sql\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeGo(t, filepath.Join(dir, "sub", "b.go"), "package sub\nimport \"modernc.org/sqlite\"\n")

	viols, err := directImportViolations(dir, StorageImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	rec := &recordingFatal{}
	failIfDirectViolations(rec, "storage", viols)
	if rec.msg == "" {
		t.Fatal("expected failure message")
	}
	rec = &recordingFatal{}
	failIfDirectViolations(rec, "storage", nil)
	if rec.msg != "" {
		t.Fatalf("unexpected failure %q", rec.msg)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), StorageImportForbidden); err == nil {
		t.Fatal("expected error for missing dir")
	}
	dir := t.TempDir()
	writeGo(t, filepath.Join(dir, "bad.go"), "not go")
	if _, err := directImportViolations(dir, StorageImportForbidden); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, filepath.Join(dir, "x.go"), "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	AssertNoDirectImports(t, dir, AnyOf(InternalImportForbidden, StorageImportForbidden), "none")
}
