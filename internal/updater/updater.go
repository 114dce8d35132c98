// Package updater overwrites player attributes, options and traits with
// values from an external roster. It never opens or commits transactions;
// callers prepare the statements on the transaction they control.
package updater

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

// Preparer is satisfied by *sql.Tx, *sql.Conn and *sql.DB.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

const (
	updatePlayerSQL = `
UPDATE t_baseball_players
SET power = ?, contact = ?, speed = ?, fielding = ?, arm = ?, velocity = ?, junk = ?, accuracy = ?
WHERE GUID = ?`

	upsertOptionSQL = `
INSERT INTO t_baseball_player_options (baseballPlayerLocalID, optionKey, optionValue, optionType)
VALUES ((SELECT localID FROM t_baseball_player_local_ids WHERE GUID = ?), ?, ?, ?)
ON CONFLICT (baseballPlayerLocalID, optionKey)
DO UPDATE SET optionValue = excluded.optionValue, optionType = excluded.optionType`

	deleteTraitsSQL = `
DELETE FROM t_baseball_player_traits
WHERE baseballPlayerLocalID = (SELECT localID FROM t_baseball_player_local_ids WHERE GUID = ?)`

	insertTraitSQL = `
INSERT INTO t_baseball_player_traits (baseballPlayerLocalID, trait, subType)
VALUES ((SELECT localID FROM t_baseball_player_local_ids WHERE GUID = ?), ?, ?)`
)

// Report summarizes one Apply call.
type Report struct {
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Option configures Prepare.
type Option func(*Statements)

// WithLogger routes per-player progress logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Statements) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Statements owns the prepared handles for one update batch. Close releases them.
type Statements struct {
	updatePlayer *sql.Stmt
	upsertOption *sql.Stmt
	deleteTraits *sql.Stmt
	insertTrait  *sql.Stmt
	logger       *slog.Logger
}

// Prepare compiles the update statements against q.
func Prepare(ctx context.Context, q Preparer, opts ...Option) (*Statements, error) {
	s := &Statements{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	for _, st := range []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.updatePlayer, updatePlayerSQL},
		{&s.upsertOption, upsertOptionSQL},
		{&s.deleteTraits, deleteTraitsSQL},
		{&s.insertTrait, insertTraitSQL},
	} {
		stmt, err := q.PrepareContext(ctx, st.query)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("prepare update statements: %w", err)
		}
		*st.dst = stmt
	}
	return s, nil
}

// Close releases all prepared statements.
func (s *Statements) Close() error {
	var first error
	for _, stmt := range []*sql.Stmt{s.updatePlayer, s.upsertOption, s.deleteTraits, s.insertTrait} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Apply writes every matched pair. Invalid pairs are skipped, missing players
// are counted as failed, and a failed option or trait write is only a warning.
func (s *Statements) Apply(ctx context.Context, pairs []domain.Comparison) Report {
	var rep Report
	for _, pair := range pairs {
		if !pair.IsMatched || pair.Matched == nil {
			rep.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			rep.Failed++
			rep.warn("update of %s abandoned: %v", pair.Roster.Name, err)
			continue
		}
		if err := Validate(pair.Roster); err != nil {
			rep.Skipped++
			rep.warn("skipping %s: %v", pair.Roster.Name, err)
			s.logger.Warn("invalid roster player", "player", pair.Roster.Name, "error", err)
			continue
		}
		if err := s.applyPair(ctx, pair.Roster, *pair.Matched, &rep); err != nil {
			rep.Failed++
			rep.warn("failed to update %s: %v", pair.Matched.Name, err)
			s.logger.Warn("player update failed", "player", pair.Matched.Name, "error", err)
			continue
		}
		rep.Updated++
	}
	return rep
}

func (s *Statements) applyPair(ctx context.Context, roster, matched domain.Player, rep *Report) error {
	guid, err := codec.GUIDBytes(matched.GUID)
	if err != nil {
		return err
	}
	ratings := []any{int64(roster.Power), int64(roster.Contact), int64(roster.Speed), int64(roster.Field)}
	if roster.IsPitcher() {
		p := roster.Pitching
		ratings = append(ratings, int64(0), int64(p.Velocity), int64(p.Junk), int64(p.Accuracy))
	} else {
		ratings = append(ratings, int64(roster.Fielding.Arm), int64(0), int64(0), int64(0))
	}
	res, err := s.updatePlayer.ExecContext(ctx, append(ratings, guid)...)
	if err != nil {
		return fmt.Errorf("update ratings: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return domain.NotFoundError{Entity: "player", ID: matched.GUID}
	}
	s.logger.Debug("updated player ratings", "player", matched.Name, "kind", roster.Kind.String())

	// Validate guarantees the enum reverse lookups succeed.
	bat, _ := codec.BattingHandCode(roster.Bat)
	throw, _ := codec.ThrowingHandCode(roster.Throw)
	chem, _ := codec.ChemistryCode(roster.Chemistry)
	opts := []optionWrite{
		{codec.OptionBattingHand, bat, "batting hand"},
		{codec.OptionThrowingHand, throw, "throwing hand"},
		{codec.OptionChemistry, chem, "chemistry"},
	}
	if roster.IsPitcher() {
		opts = append(opts,
			optionWrite{codec.OptionPrimaryPosition, codec.PositionCode(domain.PositionPitcher), "primary position"},
			optionWrite{codec.OptionArmAngle, codec.ArmAngleCode(roster.Pitching.ArmAngle), "arm angle"},
		)
		if role := codec.PitchRoleCode(roster.Position); role > 0 {
			opts = append(opts, optionWrite{codec.OptionPitchRole, role, "pitch role"})
		}
		for _, po := range codec.PitchOptions {
			var v int64
			if po.Get(roster.Pitching.Pitches) {
				v = 1
			}
			opts = append(opts, optionWrite{po.Key, v, po.Label})
		}
	} else {
		opts = append(opts,
			optionWrite{codec.OptionPrimaryPosition, codec.PositionCode(roster.Position), "primary position"},
			optionWrite{codec.OptionSecondaryPosition, codec.PositionCode(roster.Fielding.SecondaryPosition), "secondary position"},
		)
	}
	for _, o := range opts {
		if err := s.upsert(ctx, guid, o); err != nil {
			rep.warn("failed to update %s for %s %s: %v", o.label, roster.Kind, matched.Name, err)
		}
	}
	s.replaceTraits(ctx, guid, roster, matched.Name, rep)
	return nil
}

type optionWrite struct {
	key   codec.OptionKey
	value int64
	label string
}

func (s *Statements) upsert(ctx context.Context, guid []byte, o optionWrite) error {
	typ, ok := codec.TypeOf(o.key)
	if !ok {
		return fmt.Errorf("option key %d has no type", o.key)
	}
	res, err := s.upsertOption.ExecContext(ctx, guid, int64(o.key), o.value, int64(typ))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return errors.New("no rows written")
	}
	return nil
}

func (s *Statements) replaceTraits(ctx context.Context, guid []byte, roster domain.Player, name string, rep *Report) {
	if _, err := s.deleteTraits.ExecContext(ctx, guid); err != nil {
		rep.warn("error updating traits for %s: %v", name, err)
		return
	}
	seen := make(map[domain.Trait]bool, 2)
	for _, t := range roster.Traits() {
		if seen[t] {
			continue
		}
		seen[t] = true
		key, ok := codec.TraitIDs(t)
		if !ok {
			rep.warn("invalid trait %s for %s", t, name)
			continue
		}
		res, err := s.insertTrait.ExecContext(ctx, guid, key.TraitID, key.SubtypeID)
		if err != nil {
			rep.warn("failed to insert trait %s for %s: %v", t, name, err)
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			rep.warn("failed to insert trait %s for %s", t, name)
		}
	}
}
