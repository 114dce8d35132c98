package testutil

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"rosterinjector/internal/codec"
	"rosterinjector/internal/infra/persistence/sqlite"
)

// SchemaDDL creates an empty league database.
//
//go:embed schema.sql
var SchemaDDL string

// LocalIDDependents and GUIDDependents name the seeded dependent tables. Each
// player built with Dependents gets one row in every table listed.
var (
	LocalIDDependents = []string{
		"t_stats_batting", "t_stats_pitching", "t_draft_pool", "t_free_agents",
		"t_season_pitch_counts", "t_pending_players", "t_available_players",
		"t_news_references", "t_manager_moments",
	}
	GUIDDependents = []string{
		"t_batting_orders", "t_defensive_positions", "t_pitching_rotations", "t_salary",
		"t_training", "t_retirements", "t_contract_extensions", "t_unavailable_players",
	}
)

// League describes a fixture database.
type League struct {
	GUID  string
	Name  string
	Teams []Team
	// Lifecycle adds a season schedule row, marking the league as started.
	Lifecycle bool
}

// Team is a fixture team. Colors are stored linear ARGB values for colorKey 0..n.
type Team struct {
	GUID    string
	Name    string
	Colors  []int64
	Logos   []Logo
	Players []Player
}

// Logo is a fixture team logo with its attributes.
type Logo struct {
	GUID       string
	Type       int64
	Attributes map[int64]int64
}

// Player is a fixture player row set.
type Player struct {
	GUID        string
	First, Last string
	Power       int64
	Contact     int64
	Speed       int64
	Fielding    int64
	Arm         int64
	Velocity    int64
	Junk        int64
	Accuracy    int64
	// NullRatings stores NULL for every rating column.
	NullRatings bool
	Options     map[codec.OptionKey]int64
	Traits      []codec.TraitKey
	Colors      map[int64]int64
	// Dependents seeds one row in every dependent table and a game result.
	Dependents bool
}

// NewGUID returns a random uppercase hyphenated GUID.
func NewGUID() string { return strings.ToUpper(uuid.NewString()) }

// Hitter returns a position player with the required options set.
func Hitter(first, last string, position int64) Player {
	return Player{
		GUID: NewGUID(), First: first, Last: last,
		Power: 50, Contact: 50, Speed: 50, Fielding: 50, Arm: 50,
		Options: map[codec.OptionKey]int64{
			codec.OptionBattingHand:       1,
			codec.OptionThrowingHand:      1,
			codec.OptionChemistry:         0,
			codec.OptionPrimaryPosition:   position,
			codec.OptionSecondaryPosition: 0,
		},
	}
}

// Pitcher returns a pitcher with the given role and a 4-seam/changeup mix.
func Pitcher(first, last string, role int64) Player {
	return Player{
		GUID: NewGUID(), First: first, Last: last,
		Power: 10, Contact: 10, Speed: 30, Fielding: 40,
		Velocity: 70, Junk: 60, Accuracy: 55,
		Options: map[codec.OptionKey]int64{
			codec.OptionBattingHand:     1,
			codec.OptionThrowingHand:    1,
			codec.OptionChemistry:       2,
			codec.OptionPrimaryPosition: 1,
			codec.OptionPitchRole:       role,
			codec.OptionArmAngle:        2,
			codec.OptionFourSeam:        1,
			codec.OptionTwoSeam:         0,
			codec.OptionChangeUp:        1,
		},
	}
}

// NewLeagueFile writes l into <dir>/<name> and returns the path.
func NewLeagueFile(t testing.TB, dir, name string, l League) string {
	t.Helper()
	path := filepath.Join(dir, name)
	db, err := sqlite.Create(path)
	if err != nil {
		t.Fatalf("create fixture db: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := WriteLeague(db, l); err != nil {
		t.Fatalf("write fixture league: %v", err)
	}
	return path
}

// WriteLeague creates the schema and inserts l in one transaction.
func WriteLeague(db *sql.DB, l League) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(SchemaDDL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	w := &writer{tx: tx}
	if l.GUID == "" {
		l.GUID = NewGUID()
	}
	w.exec(`INSERT INTO t_leagues (GUID, name) VALUES (?, ?)`, guid(l.GUID), l.Name)
	for _, team := range l.Teams {
		w.team(team)
	}
	if l.Lifecycle {
		w.exec(`INSERT INTO t_season_schedule (homeTeamGUID) VALUES (NULL)`)
	}
	if w.err != nil {
		return w.err
	}
	return tx.Commit()
}

type writer struct {
	tx  *sql.Tx
	err error
}

func (w *writer) exec(query string, args ...any) sql.Result {
	if w.err != nil {
		return nil
	}
	res, err := w.tx.Exec(query, args...)
	if err != nil {
		w.err = fmt.Errorf("%s: %w", strings.Fields(query)[2], err)
	}
	return res
}

func (w *writer) lastID(res sql.Result) int64 {
	if w.err != nil || res == nil {
		return 0
	}
	id, err := res.LastInsertId()
	if err != nil {
		w.err = err
	}
	return id
}

func (w *writer) team(team Team) {
	tg := guid(team.GUID)
	w.exec(`INSERT INTO t_teams (GUID, teamName) VALUES (?, ?)`, tg, team.Name)
	teamLocal := w.lastID(w.exec(`INSERT INTO t_team_local_ids (GUID) VALUES (?)`, tg))
	for i, c := range team.Colors {
		w.exec(`INSERT INTO t_team_attributes (teamLocalID, optionKey, colorKey, optionValueInt, optionType) VALUES (?, ?, ?, ?, 1)`,
			teamLocal, 10+i, i, c)
	}
	w.exec(`INSERT INTO t_team_attributes (teamLocalID, optionKey, colorKey, optionValueInt) VALUES (?, 2, NULL, 7)`, teamLocal)
	for _, logo := range team.Logos {
		lg := guid(logo.GUID)
		w.exec(`INSERT INTO t_team_logos (GUID, teamGUID, logoType) VALUES (?, ?, ?)`, lg, tg, logo.Type)
		for k, v := range logo.Attributes {
			w.exec(`INSERT INTO t_team_logo_attributes (teamLogoGUID, optionKey, optionValueInt) VALUES (?, ?, ?)`, lg, k, v)
		}
	}
	for _, p := range team.Players {
		w.player(tg, p)
	}
}

func (w *writer) player(teamGUID []byte, p Player) {
	pg := guid(p.GUID)
	ratings := []any{p.Power, p.Contact, p.Speed, p.Fielding, p.Arm, p.Velocity, p.Junk, p.Accuracy}
	if p.NullRatings {
		ratings = make([]any, 8)
	}
	args := append([]any{pg, teamGUID, p.First, p.Last}, ratings...)
	w.exec(`INSERT INTO t_baseball_players (GUID, teamGUID, firstName, lastName, power, contact, speed, fielding, arm, velocity, junk, accuracy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	local := w.lastID(w.exec(`INSERT INTO t_baseball_player_local_ids (GUID) VALUES (?)`, pg))
	for key, value := range p.Options {
		typ, _ := codec.TypeOf(key)
		w.exec(`INSERT INTO t_baseball_player_options (baseballPlayerLocalID, optionKey, optionValue, optionType) VALUES (?, ?, ?, ?)`,
			local, int64(key), value, int64(typ))
	}
	for _, tr := range p.Traits {
		w.exec(`INSERT INTO t_baseball_player_traits (baseballPlayerLocalID, trait, subType) VALUES (?, ?, ?)`,
			local, tr.TraitID, tr.SubtypeID)
	}
	for k, v := range p.Colors {
		w.exec(`INSERT INTO t_baseball_player_colors (baseballPlayerLocalID, colorKey, colorValue) VALUES (?, ?, ?)`, local, k, v)
	}
	if !p.Dependents {
		return
	}
	for _, table := range LocalIDDependents {
		w.exec(`INSERT INTO `+table+` (baseballPlayerLocalID) VALUES (?)`, local)
	}
	for _, table := range GUIDDependents {
		w.exec(`INSERT INTO `+table+` (baseballPlayerGUID) VALUES (?)`, pg)
	}
	w.exec(`INSERT INTO t_game_results (winningPitcherLocalID) VALUES (?)`, local)
}

func guid(s string) []byte {
	b, err := codec.GUIDBytes(s)
	if err != nil {
		panic(fmt.Sprintf("fixture guid %q: %v", s, err))
	}
	return b
}
