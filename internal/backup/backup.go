// Package backup keeps timestamped copies of league containers in a blob
// store so a transplant can be undone.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"rosterinjector/internal/blob/core"
	"rosterinjector/internal/savefile"
	"rosterinjector/pkg/domain"
)

// TimestampLayout is the UTC stamp embedded in backup keys.
const TimestampLayout = "2006-01-02_15-04-05"

const contentType = "application/zlib"

var keyPattern = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})\.sav$`)

// Info describes one stored backup.
type Info struct {
	Key        string    `json:"key"`
	League     string    `json:"league"`
	LeagueName string    `json:"league_name"`
	Timestamp  time.Time `json:"timestamp"`
	Size       int64     `json:"size_bytes"`
}

// LeagueBackups groups the backups of one league, newest first.
type LeagueBackups struct {
	League     string `json:"league"`
	LeagueName string `json:"league_name"`
	Backups    []Info `json:"backups"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger (nil keeps the discard logger).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for backup keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service creates, lists and restores container backups.
type Service struct {
	store  core.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService returns a backup service writing to store.
func NewService(store core.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the backup key for a league container stem at ts.
func Key(league string, ts time.Time) string {
	return league + "_" + ts.UTC().Format(TimestampLayout) + savefile.SaveExt
}

// ParseKey splits a backup key into its league stem and UTC timestamp.
func ParseKey(key string) (string, time.Time, bool) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, m[2], time.UTC)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], ts, true
}

// Create copies savPath into the store under <league>_<UTC stamp>.sav.
func (s *Service) Create(ctx context.Context, savPath string) (Info, error) {
	data, err := os.ReadFile(savPath)
	if err != nil {
		return Info{}, domain.IOError{Op: "read", Path: savPath, Err: err}
	}
	league := strings.TrimSuffix(filepath.Base(savPath), filepath.Ext(savPath))
	ts := s.now().UTC().Truncate(time.Second)
	key := Key(league, ts)
	stored, err := s.store.Put(ctx, key, bytes.NewReader(data), core.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"league": league, "source": filepath.Base(savPath)},
	})
	if err != nil {
		return Info{}, fmt.Errorf("backup %s: %w", savPath, err)
	}
	s.logger.Info("created backup", "league", league, "key", key, "driver", s.store.Driver(), "bytes", stored.Size)
	return Info{Key: key, League: league, LeagueName: league, Timestamp: ts, Size: stored.Size}, nil
}

// List groups every backup by league. names maps a league stem to a display
// name; stems without an entry are shown as-is. Leagues are sorted by display
// name and backups newest first.
func (s *Service) List(ctx context.Context, names map[string]string) ([]LeagueBackups, error) {
	infos, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	groups := make(map[string]*LeagueBackups)
	for _, bi := range infos {
		league, ts, ok := ParseKey(bi.Key)
		if !ok {
			s.logger.Debug("ignoring blob with unexpected key", "key", bi.Key)
			continue
		}
		name := league
		if n, ok := names[league]; ok && n != "" {
			name = n
		}
		g, ok := groups[league]
		if !ok {
			g = &LeagueBackups{League: league, LeagueName: name}
			groups[league] = g
		}
		g.Backups = append(g.Backups, Info{Key: bi.Key, League: league, LeagueName: name, Timestamp: ts, Size: bi.Size})
	}
	out := make([]LeagueBackups, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.Backups, func(i, j int) bool { return g.Backups[i].Timestamp.After(g.Backups[j].Timestamp) })
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].LeagueName), strings.ToLower(out[j].LeagueName)
		if a != b {
			return a < b
		}
		return out[i].League < out[j].League
	})
	return out, nil
}

// Restore writes the backup stored under key to <saveDir>/<league>.sav,
// replacing any existing container of that league regardless of case.
func (s *Service) Restore(ctx context.Context, key, saveDir string) (string, error) {
	league, _, ok := ParseKey(key)
	if !ok {
		return "", domain.ValidationError{Field: "key", Reason: fmt.Sprintf("invalid backup name %q", key)}
	}
	_, rc, err := s.store.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return "", domain.NotFoundError{Entity: "backup", ID: key}
	}
	if err != nil {
		return "", fmt.Errorf("read backup %s: %w", key, err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return "", fmt.Errorf("read backup %s: %w", key, err)
	}
	if _, err := savefile.Decode(data); err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}

	entries, err := os.ReadDir(saveDir)
	if err != nil {
		return "", domain.IOError{Op: "read dir", Path: saveDir, Err: err}
	}
	target := strings.ToLower(league + savefile.SaveExt)
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(e.Name()) != target {
			continue
		}
		p := filepath.Join(saveDir, e.Name())
		if err := os.Remove(p); err != nil {
			s.logger.Warn("could not delete existing save file", "path", p, "error", err)
		}
	}
	restored := filepath.Join(saveDir, league+savefile.SaveExt)
	if err := savefile.WriteFileAtomic(restored, data); err != nil {
		return "", err
	}
	s.logger.Info("restored backup", "key", key, "path", restored)
	return restored, nil
}
