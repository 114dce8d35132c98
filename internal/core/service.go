// Package core wires the codec, reader, transplant engine, backups and
// metrics into the operations the command line exposes.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rosterinjector/internal/backup"
	"rosterinjector/internal/infra/persistence/sqlite"
	"rosterinjector/internal/league"
	"rosterinjector/internal/roster"
	"rosterinjector/internal/savefile"
	"rosterinjector/internal/transplant"
	"rosterinjector/pkg/domain"
)

// MetricsRecorder captures operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// Operation names reported to the metrics recorder.
const (
	OpLoadLeagues  = "load_leagues"
	OpLoadPlayers  = "load_players"
	OpCompare      = "compare_roster"
	OpPlayBall     = "play_ball"
	OpListBackups  = "list_backups"
	OpRestore      = "restore_backup"
	OpCreateBackup = "create_backup"
)

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger (nil keeps the discard logger).
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs a recorder for operation outcomes.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithBackups enables container backups before every commit.
func WithBackups(b *backup.Service) ServiceOption {
	return func(s *Service) { s.backups = b }
}

// WithEngine replaces the default transplant engine.
func WithEngine(e *transplant.Engine) ServiceOption {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// Service runs league operations against a workspace directory holding the
// decoded databases.
type Service struct {
	workDir string
	logger  *slog.Logger
	metrics MetricsRecorder
	codec   *savefile.Codec
	reader  *league.Reader
	engine  *transplant.Engine
	backups *backup.Service

	// commit serializes PlayBall calls.
	commit sync.Mutex
}

// NewService constructs a service decoding into workDir.
func NewService(workDir string, opts ...ServiceOption) *Service {
	s := &Service{
		workDir: workDir,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codec = savefile.NewCodec(s.logger)
	s.reader = league.NewReader(s.logger)
	if s.engine == nil {
		s.engine = transplant.NewEngine(transplant.WithLogger(s.logger))
	}
	return s
}

// WorkDir returns the directory decoded databases are written to.
func (s *Service) WorkDir() string { return s.workDir }

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "kind", domain.Kind(err), "error", err)
	}
}

// LoadLeagues decodes every league container in saveDir into the workspace
// and returns the leagues that are still eligible for a transplant.
func (s *Service) LoadLeagues(ctx context.Context, saveDir string) (leagues []domain.League, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpLoadLeagues, start, err) }()
	if _, err = s.codec.DecodeDir(ctx, saveDir, s.workDir); err != nil {
		return nil, err
	}
	leagues, err = s.reader.ScanLeagues(ctx, s.workDir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded leagues", "save_dir", saveDir, "leagues", len(leagues))
	return leagues, nil
}

// LoadPlayers reads the roster of teamGUID from a decoded database.
func (s *Service) LoadPlayers(ctx context.Context, dbPath, teamGUID string) (players []domain.Player, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpLoadPlayers, start, err) }()
	db, err := sqlite.OpenReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return s.reader.ReadPlayers(ctx, db, teamGUID)
}

// CompareRoster loads teamGUID and matches the external roster against it.
func (s *Service) CompareRoster(ctx context.Context, dbPath, teamGUID string, external []domain.Player) (out []domain.Comparison, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpCompare, start, err) }()
	players, err := s.LoadPlayers(ctx, dbPath, teamGUID)
	if err != nil {
		return nil, err
	}
	return roster.Match(external, players), nil
}

// PlayBallRequest describes one commit: TargetTeam in TargetDB keeps its
// identity and receives SourceTeam from SourceDB. Roster, when set, is
// matched against the donor players and applied after the copy.
type PlayBallRequest struct {
	SaveDir    string          `json:"save_dir"`
	TargetDB   string          `json:"target_db"`
	TargetTeam string          `json:"target_team"`
	SourceDB   string          `json:"source_db"`
	SourceTeam string          `json:"source_team"`
	Roster     []domain.Player `json:"roster,omitempty"`
}

func (r PlayBallRequest) validate() error {
	for _, f := range []struct{ name, value string }{
		{"save_dir", r.SaveDir},
		{"target_db", r.TargetDB},
		{"target_team", r.TargetTeam},
		{"source_db", r.SourceDB},
		{"source_team", r.SourceTeam},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domain.ValidationError{Field: f.name, Reason: "required"}
		}
	}
	a, errA := filepath.Abs(r.TargetDB)
	b, errB := filepath.Abs(r.SourceDB)
	if errA == nil && errB == nil && a == b {
		return domain.ValidationError{Field: "source_db", Reason: "source and target must be different league files"}
	}
	return nil
}

// PlayBallResult reports a committed play ball.
type PlayBallResult struct {
	Summary  transplant.Summary  `json:"summary"`
	Backup   *backup.Info        `json:"backup,omitempty"`
	SavePath string              `json:"save_path"`
	Matches  []domain.Comparison `json:"matches,omitempty"`
}

// PlayBall validates the request, backs up the target container, runs the
// transplant and writes the target database back into SaveDir.
func (s *Service) PlayBall(ctx context.Context, req PlayBallRequest) (res PlayBallResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpPlayBall, start, err) }()
	s.commit.Lock()
	defer s.commit.Unlock()

	if err = req.validate(); err != nil {
		return PlayBallResult{}, err
	}
	target, err := s.readLeague(ctx, req.TargetDB)
	if err != nil {
		return PlayBallResult{}, fmt.Errorf("target league: %w", err)
	}
	if _, ok := target.FindTeam(req.TargetTeam); !ok {
		return PlayBallResult{}, domain.NotFoundError{Entity: "team", ID: req.TargetTeam}
	}
	source, err := s.readLeague(ctx, req.SourceDB)
	if err != nil {
		return PlayBallResult{}, fmt.Errorf("source league: %w", err)
	}
	donor, ok := source.FindTeam(req.SourceTeam)
	if !ok {
		return PlayBallResult{}, domain.NotFoundError{Entity: "team", ID: req.SourceTeam}
	}
	if err = roster.ValidateTeamName(target, req.TargetTeam, donor.Name); err != nil {
		return PlayBallResult{}, err
	}

	var pairs []domain.Comparison
	if len(req.Roster) > 0 {
		if err = roster.ValidateRoster(req.Roster); err != nil {
			return PlayBallResult{}, err
		}
		donorPlayers, err := s.LoadPlayers(ctx, req.SourceDB, req.SourceTeam)
		if err != nil {
			return PlayBallResult{}, err
		}
		pairs = roster.Match(req.Roster, donorPlayers)
		res.Matches = pairs
	}

	stem := strings.TrimSuffix(filepath.Base(req.TargetDB), filepath.Ext(req.TargetDB))
	if s.backups != nil {
		info, err := s.backups.Create(ctx, filepath.Join(req.SaveDir, stem+savefile.SaveExt))
		if err != nil {
			return PlayBallResult{}, err
		}
		res.Backup = &info
	}

	plan := domain.TransplantPlan{KeepIdentity: req.TargetTeam, DonateContentFrom: req.SourceTeam, SourcePath: req.SourceDB}
	if res.Summary, err = s.transplant(ctx, req.TargetDB, plan, pairs); err != nil {
		return PlayBallResult{}, err
	}
	if res.SavePath, err = s.codec.EncodeFile(ctx, req.TargetDB, req.SaveDir); err != nil {
		return PlayBallResult{}, err
	}
	s.logger.Info("play ball committed",
		"league", target.Name,
		"target", req.TargetTeam,
		"donor", donor.Name,
		"save_path", res.SavePath,
	)
	return res, nil
}

func (s *Service) readLeague(ctx context.Context, path string) (domain.League, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return domain.League{}, err
	}
	defer func() { _ = db.Close() }()
	l, err := s.reader.ReadLeague(ctx, db, path)
	if err != nil {
		return domain.League{}, err
	}
	started, err := s.reader.HasAdvancedLifecycle(ctx, db)
	if err != nil {
		return domain.League{}, err
	}
	if started {
		return domain.League{}, domain.ValidationError{Field: "league", Reason: fmt.Sprintf("league %q has a season or franchise in progress", l.Name)}
	}
	return l, nil
}

// transplant pins one connection so ATTACH and the transaction share it, and
// closes the database before the caller re-encodes the file.
func (s *Service) transplant(ctx context.Context, dbPath string, plan domain.TransplantPlan, pairs []domain.Comparison) (transplant.Summary, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return transplant.Summary{}, err
	}
	defer func() { _ = db.Close() }()
	conn, err := db.Conn(ctx)
	if err != nil {
		return transplant.Summary{}, domain.IOError{Op: "connect", Path: dbPath, Err: err}
	}
	defer func(c *sql.Conn) { _ = c.Close() }(conn)
	return s.engine.Transplant(ctx, conn, plan, pairs)
}

// ListBackups groups stored backups, naming leagues from the workspace when
// it has been loaded.
func (s *Service) ListBackups(ctx context.Context) (out []backup.LeagueBackups, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpListBackups, start, err) }()
	if s.backups == nil {
		return nil, domain.ValidationError{Field: "backup", Reason: "backups are not configured"}
	}
	return s.backups.List(ctx, s.leagueNames(ctx))
}

// CreateBackup stores a copy of one container.
func (s *Service) CreateBackup(ctx context.Context, savPath string) (info backup.Info, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpCreateBackup, start, err) }()
	if s.backups == nil {
		return backup.Info{}, domain.ValidationError{Field: "backup", Reason: "backups are not configured"}
	}
	return s.backups.Create(ctx, savPath)
}

// RestoreBackup writes the backup stored under key back into saveDir.
func (s *Service) RestoreBackup(ctx context.Context, key, saveDir string) (path string, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, OpRestore, start, err) }()
	if s.backups == nil {
		return "", domain.ValidationError{Field: "backup", Reason: "backups are not configured"}
	}
	return s.backups.Restore(ctx, key, saveDir)
}

// leagueNames maps workspace database stems to league names. Unreadable or
// missing workspaces yield an empty map.
func (s *Service) leagueNames(ctx context.Context) map[string]string {
	names := map[string]string{}
	files, err := savefile.LeagueFiles(s.workDir, savefile.DatabaseExt)
	if err != nil {
		s.logger.Debug("no workspace for league names", "dir", s.workDir, "error", err)
		return names
	}
	for _, f := range files {
		l, err := s.nameOf(ctx, f)
		if err != nil {
			s.logger.Warn("could not read league name", "path", f, "error", err)
			continue
		}
		names[strings.TrimSuffix(filepath.Base(f), savefile.DatabaseExt)] = l.Name
	}
	return names
}

func (s *Service) nameOf(ctx context.Context, path string) (domain.League, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return domain.League{}, err
	}
	defer func() { _ = db.Close() }()
	return s.reader.ReadLeague(ctx, db, path)
}
