package savefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"rosterinjector/pkg/domain"
)

const (
	// SaveExt is the container extension used by the game.
	SaveExt = ".sav"
	// DatabaseExt is the extension of decoded workspace databases.
	DatabaseExt = ".sqlite"
	// LeaguePrefix is the file name prefix of league containers.
	LeaguePrefix = "league"
)

// ErrBusy is returned when another decode or encode holds the same path.
var ErrBusy = errors.New("savefile: operation already in flight for path")

// Codec reads and writes containers on disk. A path may only have one
// operation in flight at a time.
type Codec struct {
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCodec returns a file codec logging through logger (nil discards).
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Codec{logger: logger, inFlight: make(map[string]struct{})}
}

func (c *Codec) acquire(path string) (func(), error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[abs]; busy {
		return nil, fmt.Errorf("%w: %s", ErrBusy, path)
	}
	c.inFlight[abs] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inFlight, abs)
		c.mu.Unlock()
	}, nil
}

// DecodeFile decodes <name>.sav into <outDir>/<name>.sqlite and returns the written path.
func (c *Codec) DecodeFile(ctx context.Context, savPath, outDir string) (string, error) {
	release, err := c.acquire(savPath)
	if err != nil {
		return "", err
	}
	defer release()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(savPath)
	if err != nil {
		return "", domain.IOError{Op: "read", Path: savPath, Err: err}
	}
	db, err := Decode(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(savPath), err)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", domain.IOError{Op: "mkdir", Path: outDir, Err: err}
	}
	name := strings.TrimSuffix(filepath.Base(savPath), filepath.Ext(savPath))
	outPath := filepath.Join(outDir, name+DatabaseExt)
	if err := WriteFileAtomic(outPath, db); err != nil {
		return "", err
	}
	c.logger.Debug("decoded save container", "source", savPath, "database", outPath, "bytes", len(db))
	return outPath, nil
}

// DecodeDir decodes every league container in saveDir into outDir.
func (c *Codec) DecodeDir(ctx context.Context, saveDir, outDir string) ([]string, error) {
	files, err := LeagueFiles(saveDir, SaveExt)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.NotFoundError{Entity: "league save file", ID: saveDir}
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		p, err := c.DecodeFile(ctx, f, outDir)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// EncodeFile compresses dbPath into <saveDir>/<name>.sav. Once the new
// container is in place its stale .sav.bak and .hash siblings are removed so
// the game does not reject it.
func (c *Codec) EncodeFile(ctx context.Context, dbPath, saveDir string) (string, error) {
	release, err := c.acquire(dbPath)
	if err != nil {
		return "", err
	}
	defer release()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(dbPath)
	if err != nil {
		return "", domain.IOError{Op: "read", Path: dbPath, Err: err}
	}
	compressed, err := Encode(raw)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	savPath := filepath.Join(saveDir, name+SaveExt)
	if err := WriteFileAtomic(savPath, compressed); err != nil {
		return "", err
	}
	c.removeStale(saveDir, name, savPath)
	c.logger.Info("saved league container", "database", dbPath, "container", savPath, "bytes", len(compressed))
	return savPath, nil
}

// removeStale deletes the <name>.sav.bak and <name>.*.hash siblings of a
// freshly written container, plus .sav files that differ from it only in case.
func (c *Codec) removeStale(saveDir, name, written string) {
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		c.logger.Warn("could not list save directory", "dir", saveDir, "error", err)
		return
	}
	writtenInfo, err := os.Stat(written)
	if err != nil {
		c.logger.Warn("could not stat written container", "path", written, "error", err)
		return
	}
	stem := strings.ToLower(name)
	for _, e := range entries {
		fn := strings.ToLower(e.Name())
		if e.IsDir() || !isStaleSibling(fn, stem) {
			continue
		}
		p := filepath.Join(saveDir, e.Name())
		if fi, err := os.Stat(p); err != nil || os.SameFile(fi, writtenInfo) {
			continue
		}
		if err := os.Remove(p); err != nil {
			c.logger.Warn("could not delete stale save file", "path", p, "error", err)
			continue
		}
		c.logger.Debug("deleted stale save file", "path", p)
	}
}

// isStaleSibling matches lowercased file names belonging to exactly stem, so
// league1 never claims league10's files.
func isStaleSibling(fn, stem string) bool {
	if fn == stem+SaveExt {
		return true
	}
	if !strings.HasPrefix(fn, stem+".") {
		return false
	}
	return strings.HasSuffix(fn, SaveExt+".bak") || strings.HasSuffix(fn, ".hash")
}

// LeagueFiles lists league* files with the given extension in dir, sorted.
func LeagueFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError{Op: "read dir", Path: dir, Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(strings.ToLower(n), LeaguePrefix) && strings.HasSuffix(n, ext) {
			out = append(out, filepath.Join(dir, n))
		}
	}
	sort.Strings(out)
	return out, nil
}

// WriteFileAtomic writes data to a temp file in the same directory and renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return domain.IOError{Op: "create temp", Path: path, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return domain.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return domain.IOError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return domain.IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return domain.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
