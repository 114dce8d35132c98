// Package league reads leagues, teams and players out of decoded league databases.
package league

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"rosterinjector/internal/codec"
	"rosterinjector/pkg/domain"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reader maps league database rows into domain records.
type Reader struct {
	logger *slog.Logger
}

// NewReader constructs a reader. A nil logger discards output.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reader{logger: logger}
}

const teamColorsQuery = `
SELECT colorKey, optionValueInt
FROM t_team_attributes
WHERE teamLocalID = ? AND colorKey IN (0, 1, 2, 3, 4)
ORDER BY colorKey`

// ReadLeague reads the league row, its teams ordered by name and each team's colors.
func (r *Reader) ReadLeague(ctx context.Context, q Querier, path string) (domain.League, error) {
	var (
		guidBlob []byte
		name     string
	)
	err := q.QueryRowContext(ctx, `SELECT GUID, name FROM t_leagues LIMIT 1`).Scan(&guidBlob, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.League{}, domain.NotFoundError{Entity: "league", ID: path}
	}
	if err != nil {
		return domain.League{}, fmt.Errorf("select league: %w", err)
	}
	leagueGUID, err := codec.GUIDString(guidBlob)
	if err != nil {
		return domain.League{}, fmt.Errorf("league guid: %w", err)
	}

	type teamRow struct {
		team    domain.Team
		localID sql.NullInt64
	}
	rows, err := q.QueryContext(ctx, `
SELECT t.GUID, t.teamName, lid.localID
FROM t_teams t
LEFT JOIN t_team_local_ids lid ON lid.GUID = t.GUID
ORDER BY t.teamName, t.GUID`)
	if err != nil {
		return domain.League{}, fmt.Errorf("select teams: %w", err)
	}
	var teams []teamRow
	for rows.Next() {
		var (
			blob []byte
			tr   teamRow
		)
		if err := rows.Scan(&blob, &tr.team.Name, &tr.localID); err != nil {
			_ = rows.Close()
			return domain.League{}, fmt.Errorf("scan team: %w", err)
		}
		if tr.team.GUID, err = codec.GUIDString(blob); err != nil {
			_ = rows.Close()
			return domain.League{}, fmt.Errorf("team guid: %w", err)
		}
		teams = append(teams, tr)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return domain.League{}, fmt.Errorf("iterate teams: %w", err)
	}
	_ = rows.Close()

	league := domain.League{GUID: leagueGUID, Name: name, DatabasePath: path, Teams: make([]domain.Team, 0, len(teams))}
	for _, tr := range teams {
		if tr.localID.Valid {
			colors, err := r.teamColors(ctx, q, tr.localID.Int64)
			if err != nil {
				return domain.League{}, fmt.Errorf("team %s colors: %w", tr.team.Name, err)
			}
			tr.team.Colors = colors
		}
		league.Teams = append(league.Teams, tr.team)
	}
	return league, nil
}

func (r *Reader) teamColors(ctx context.Context, q Querier, teamLocalID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, teamColorsQuery, teamLocalID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var colors []string
	for rows.Next() {
		var key, value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		colors = append(colors, codec.ColorFromStored(value))
	}
	return colors, rows.Err()
}

// HasAdvancedLifecycle reports whether the league has a season, franchise or
// played games, which makes it ineligible for import.
func (r *Reader) HasAdvancedLifecycle(ctx context.Context, q Querier) (bool, error) {
	var total int64
	err := q.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM t_season_schedule)
     + (SELECT COUNT(*) FROM t_franchise)
     + (SELECT COUNT(*) FROM t_game_results)`).Scan(&total)
	if err != nil {
		return false, fmt.Errorf("count lifecycle rows: %w", err)
	}
	return total > 0, nil
}
