package savefile

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rosterinjector/pkg/domain"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inputs := [][]byte{
		{},
		[]byte("SQLite format 3\x00"),
		bytes.Repeat([]byte{0xAB}, 1<<16),
	}
	random := make([]byte, 4096)
	rng.Read(random)
	inputs = append(inputs, random)

	for i, in := range inputs {
		enc, err := Encode(in)
		if err != nil {
			t.Fatalf("case %d: encode: %v", i, err)
		}
		if enc[0] != headerByte {
			t.Fatalf("case %d: expected zlib header, got %#x", i, enc[0])
		}
		out, err := Decode(enc)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("case %d: round trip mismatch (%d vs %d bytes)", i, len(in), len(out))
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	in := bytes.Repeat([]byte("league"), 1000)
	a, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical output for identical input")
	}
}

func TestDecodeRejectsBadContainers(t *testing.T) {
	good, err := Encode(bytes.Repeat([]byte("players"), 512))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	corrupt := append([]byte(nil), good...)
	corrupt[len(corrupt)-1] ^= 0xFF

	cases := map[string][]byte{
		"empty":      nil,
		"header":     {0x1F, 0x8B, 0x08, 0x00},
		"truncated":  good[:len(good)/2],
		"checksum":   corrupt,
		"bad stream": {0x78, 0x9C, 0xFF, 0xFF, 0xFF},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			var fe domain.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FormatError, got %v", err)
			}
		})
	}
}

func TestDecodeFileAndEncodeFile(t *testing.T) {
	ctx := context.Background()
	saveDir := t.TempDir()
	workDir := t.TempDir()
	payload := []byte("SQLite format 3\x00 league payload")

	enc, err := Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	savPath := filepath.Join(saveDir, "league-ABC.sav")
	if err := os.WriteFile(savPath, enc, 0o600); err != nil {
		t.Fatalf("write sav: %v", err)
	}
	for _, stale := range []string{"league-ABC.sav.bak", "League-ABC.hash", "league-ABC.sav.hash", "league-ABC-2.hash", "league-ABC1.sav"} {
		if err := os.WriteFile(filepath.Join(saveDir, stale), []byte("x"), 0o600); err != nil {
			t.Fatalf("write stale: %v", err)
		}
	}
	keep := filepath.Join(saveDir, "league-XYZ.sav")
	if err := os.WriteFile(keep, enc, 0o600); err != nil {
		t.Fatalf("write other: %v", err)
	}

	c := NewCodec(nil)
	dbPath, err := c.DecodeFile(ctx, savPath, workDir)
	if err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if filepath.Base(dbPath) != "league-ABC.sqlite" {
		t.Fatalf("unexpected database name %s", dbPath)
	}
	got, err := os.ReadFile(dbPath)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("decoded payload mismatch: %v", err)
	}

	out, err := c.EncodeFile(ctx, dbPath, saveDir)
	if err != nil {
		t.Fatalf("encode file: %v", err)
	}
	if out != savPath {
		t.Fatalf("expected %s, got %s", savPath, out)
	}
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{"league-ABC-2.hash", "league-ABC.sav", "league-ABC1.sav", "league-XYZ.sav"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("save dir after encode (-want +got):\n%s", diff)
	}
	raw, _ := os.ReadFile(savPath)
	back, err := Decode(raw)
	if err != nil || !bytes.Equal(back, payload) {
		t.Fatalf("re-encoded container does not round trip: %v", err)
	}
}

func TestEncodeFileKeepsSiblingsWhenWriteFails(t *testing.T) {
	saveDir := t.TempDir()
	workDir := t.TempDir()
	dbPath := filepath.Join(workDir, "league-ABC.sqlite")
	if err := os.WriteFile(dbPath, []byte("SQLite format 3\x00"), 0o600); err != nil {
		t.Fatal(err)
	}
	// A non-empty directory where the container belongs makes the rename fail.
	blocker := filepath.Join(saveDir, "league-ABC.sav")
	if err := os.MkdirAll(filepath.Join(blocker, "inner"), 0o750); err != nil {
		t.Fatal(err)
	}
	bak := filepath.Join(saveDir, "league-ABC.sav.bak")
	if err := os.WriteFile(bak, []byte("previous"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCodec(nil).EncodeFile(context.Background(), dbPath, saveDir); domain.Kind(err) != "io" {
		t.Fatalf("expected io error, got %v", err)
	}
	if _, err := os.Stat(bak); err != nil {
		t.Fatalf("backup sibling removed after failed write: %v", err)
	}
}

func TestIsStaleSibling(t *testing.T) {
	cases := map[string]bool{
		"league1.sav":       true,
		"league1.sav.bak":   true,
		"league1.hash":      true,
		"league1.sav.hash":  true,
		"league10.sav":      false,
		"league10.sav.bak":  false,
		"league10.hash":     false,
		"league1-copy.hash": false,
		"league1.sqlite":    false,
	}
	for fn, want := range cases {
		if got := isStaleSibling(fn, "league1"); got != want {
			t.Fatalf("isStaleSibling(%q) = %v, want %v", fn, got, want)
		}
	}
}

func TestDecodeDir(t *testing.T) {
	ctx := context.Background()
	saveDir := t.TempDir()
	c := NewCodec(nil)

	if _, err := c.DecodeDir(ctx, saveDir, t.TempDir()); !errors.As(err, new(domain.NotFoundError)) {
		t.Fatalf("expected NotFoundError for empty dir, got %v", err)
	}

	enc, _ := Encode([]byte("db"))
	for _, n := range []string{"league-2.sav", "league-1.sav", "settings.sav"} {
		if err := os.WriteFile(filepath.Join(saveDir, n), enc, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	out, err := c.DecodeDir(ctx, saveDir, t.TempDir())
	if err != nil {
		t.Fatalf("decode dir: %v", err)
	}
	if len(out) != 2 || filepath.Base(out[0]) != "league-1.sqlite" {
		t.Fatalf("unexpected outputs %v", out)
	}
}

func TestDecodeFileMissing(t *testing.T) {
	_, err := NewCodec(nil).DecodeFile(context.Background(), filepath.Join(t.TempDir(), "nope.sav"), t.TempDir())
	if domain.Kind(err) != "io" {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestConcurrentOperationOnSamePathIsBusy(t *testing.T) {
	c := NewCodec(nil)
	path := filepath.Join(t.TempDir(), "league-1.sav")
	release, err := c.acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := c.DecodeFile(context.Background(), path, t.TempDir()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	release()
	if _, err := c.acquire(path); err != nil {
		t.Fatalf("expected lock to be released: %v", err)
	}
}
