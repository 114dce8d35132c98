package league

import (
	"context"
	"fmt"

	"rosterinjector/internal/infra/persistence/sqlite"
	"rosterinjector/internal/savefile"
	"rosterinjector/pkg/domain"
)

// ScanLeagues reads every league*.sqlite database in dir. Files that cannot
// be read, or whose league has already started a season or franchise, are
// logged and skipped.
func (r *Reader) ScanLeagues(ctx context.Context, dir string) ([]domain.League, error) {
	files, err := savefile.LeagueFiles(dir, savefile.DatabaseExt)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.NotFoundError{Entity: "league database", ID: dir}
	}
	var leagues []domain.League
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l, ok, err := r.readFile(ctx, path)
		if err != nil {
			r.logger.Warn("skipping unreadable league database", "path", path, "error", err)
			continue
		}
		if !ok {
			r.logger.Info("skipping league past the importable stage", "path", path, "league", l.Name)
			continue
		}
		leagues = append(leagues, l)
	}
	return leagues, nil
}

func (r *Reader) readFile(ctx context.Context, path string) (domain.League, bool, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return domain.League{}, false, err
	}
	defer func() { _ = db.Close() }()
	l, err := r.ReadLeague(ctx, db, path)
	if err != nil {
		return domain.League{}, false, err
	}
	advanced, err := r.HasAdvancedLifecycle(ctx, db)
	if err != nil {
		return l, false, fmt.Errorf("lifecycle check: %w", err)
	}
	return l, !advanced, nil
}
