package transplant

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rosterinjector/internal/codec"
	"rosterinjector/internal/infra/persistence/sqlite"
	"rosterinjector/internal/league"
	"rosterinjector/pkg/domain"
	"rosterinjector/testutil"
)

type world struct {
	targetPath string
	sourcePath string
	target     testutil.Team
	bystander  testutil.Team
	source     testutil.Team
}

func (w world) plan() domain.TransplantPlan {
	return domain.TransplantPlan{KeepIdentity: w.target.GUID, DonateContentFrom: w.source.GUID, SourcePath: w.sourcePath}
}

func withDependents(players ...testutil.Player) []testutil.Player {
	for i := range players {
		players[i].Dependents = true
	}
	return players
}

func newWorld(t *testing.T) world {
	t.Helper()
	dir := t.TempDir()
	target := testutil.Team{
		GUID:   testutil.NewGUID(),
		Name:   "Target Team",
		Colors: []int64{0xFF112233, 0xFF445566},
		Logos:  []testutil.Logo{{GUID: testutil.NewGUID(), Type: 1, Attributes: map[int64]int64{1: 10, 2: 20}}},
		Players: withDependents(
			testutil.Hitter("Old", "Catcher", 2),
			testutil.Hitter("Old", "Shortstop", 6),
			testutil.Pitcher("Old", "Starter", 1),
		),
	}
	target.Players[0].Traits = []codec.TraitKey{{TraitID: 8, SubtypeID: 6}}
	target.Players[0].Colors = map[int64]int64{0: 0xFF000000}
	bystander := testutil.Team{
		GUID:    testutil.NewGUID(),
		Name:    "Bystanders",
		Colors:  []int64{0xFFFFFFFF},
		Players: withDependents(testutil.Hitter("Innocent", "Bystander", 9)),
	}

	hitter := testutil.Hitter("New", "Slugger", 3)
	hitter.Power = 99
	hitter.Traits = []codec.TraitKey{{TraitID: 0, SubtypeID: 0}, {TraitID: 26, SubtypeID: 6}}
	hitter.Colors = map[int64]int64{0: 0xFF101010, 1: 0xFF202020}
	starter := testutil.Pitcher("New", "Ace", 1)
	starter.Traits = []codec.TraitKey{{TraitID: 23, SubtypeID: 6}}
	closer := testutil.Pitcher("New", "Closer", 4)
	closer.Options[codec.OptionSlider] = 1
	source := testutil.Team{
		GUID:   testutil.NewGUID(),
		Name:   "Source Sluggers",
		Colors: []int64{0xFF808080, 0xFF000100, 0xFFFF0000},
		Logos: []testutil.Logo{
			{GUID: testutil.NewGUID(), Type: 0, Attributes: map[int64]int64{1: 5}},
			{GUID: testutil.NewGUID(), Type: 2, Attributes: map[int64]int64{3: 7, 4: 8}},
		},
		Players: []testutil.Player{hitter, starter, closer},
	}
	other := testutil.Team{GUID: testutil.NewGUID(), Name: "Other Source", Players: []testutil.Player{testutil.Hitter("Not", "Copied", 4)}}

	w := world{target: target, bystander: bystander, source: source}
	w.targetPath = testutil.NewLeagueFile(t, dir, "league-target.sqlite", testutil.League{Name: "Target League", Teams: []testutil.Team{target, bystander}})
	w.sourcePath = testutil.NewLeagueFile(t, dir, "league-source.sqlite", testutil.League{Name: "Source League", Teams: []testutil.Team{source, other}})
	return w
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func transplant(t *testing.T, w world, pairs []domain.Comparison, opts ...Option) (Summary, error) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(w.targetPath)
	if err != nil {
		t.Fatalf("open target: %v", err)
	}
	defer func() { _ = db.Close() }()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = conn.Close() }()
	return NewEngine(opts...).Transplant(ctx, conn, w.plan(), pairs)
}

func readTeam(t *testing.T, path, guid string) (domain.Team, []domain.Player) {
	t.Helper()
	ctx := context.Background()
	db := openDB(t, path)
	r := league.NewReader(nil)
	l, err := r.ReadLeague(ctx, db, path)
	if err != nil {
		t.Fatalf("read league: %v", err)
	}
	team, ok := l.FindTeam(guid)
	if !ok {
		t.Fatalf("team %s not found in %s", guid, path)
	}
	players, err := r.ReadPlayers(ctx, db, guid)
	if err != nil {
		t.Fatalf("read players: %v", err)
	}
	return team, players
}

func localID(t *testing.T, db *sql.DB, teamGUID string) int64 {
	t.Helper()
	var id int64
	if err := db.QueryRow(`SELECT localID FROM t_team_local_ids WHERE GUID = ?`, codec.MustGUIDBytes(teamGUID)).Scan(&id); err != nil {
		t.Fatalf("team local id: %v", err)
	}
	return id
}

func TestTransplantPreservesIdentityAndCopiesContent(t *testing.T) {
	w := newWorld(t)
	targetDB := openDB(t, w.targetPath)
	beforeLocal := localID(t, targetDB, w.target.GUID)
	_ = targetDB.Close()
	sourceBytes, err := os.ReadFile(w.sourcePath)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}

	summary, err := transplant(t, w, nil)
	if err != nil {
		t.Fatalf("transplant: %v", err)
	}
	if summary.PlayersRemoved != 3 || summary.PlayersCopied != 3 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.TargetTeam != "Target Team" || summary.SourceTeam != "Source Sluggers" {
		t.Fatalf("unexpected team names %+v", summary)
	}

	gotTeam, gotPlayers := readTeam(t, w.targetPath, w.target.GUID)
	wantTeam, wantPlayers := readTeam(t, w.sourcePath, w.source.GUID)
	wantTeam.GUID = w.target.GUID
	if diff := cmp.Diff(wantTeam, gotTeam); diff != "" {
		t.Fatalf("team mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantPlayers, gotPlayers); diff != "" {
		t.Fatalf("roster mismatch (-want +got):\n%s", diff)
	}

	db := openDB(t, w.targetPath)
	if got := localID(t, db, w.target.GUID); got != beforeLocal {
		t.Fatalf("target team local id changed: %d -> %d", beforeLocal, got)
	}
	if n := testutil.CountRows(t, db, "t_team_logos WHERE teamGUID = x'"+hexGUID(w.target.GUID)+"'"); n != 2 {
		t.Fatalf("expected 2 transplanted logos, got %d", n)
	}
	if n := testutil.CountRows(t, db, "t_team_logo_attributes"); n != 3 {
		t.Fatalf("expected only the donor logo attributes, got %d", n)
	}
	if n := testutil.CountRows(t, db, "t_baseball_player_colors"); n != 2 {
		t.Fatalf("expected donor player colors only, got %d", n)
	}
	for _, table := range append(append([]string{}, testutil.LocalIDDependents...), testutil.GUIDDependents...) {
		if n := testutil.CountRows(t, db, table); n != 1 {
			t.Fatalf("%s: expected only the bystander row to remain, got %d", table, n)
		}
	}
	_, bystanders := readTeam(t, w.targetPath, w.bystander.GUID)
	if len(bystanders) != 1 || bystanders[0].Name != "Innocent Bystander" {
		t.Fatalf("bystander team changed: %+v", bystanders)
	}

	after, err := os.ReadFile(w.sourcePath)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if !bytes.Equal(sourceBytes, after) {
		t.Fatal("source database was modified")
	}
}

func hexGUID(s string) string {
	return strings.ToUpper(hex.EncodeToString(codec.MustGUIDBytes(s)))
}

func TestTransplantLeavesNoOrphans(t *testing.T) {
	w := newWorld(t)
	if _, err := transplant(t, w, nil); err != nil {
		t.Fatalf("transplant: %v", err)
	}
	db := openDB(t, w.targetPath)
	for _, d := range Closure() {
		q := d.orphanSQL()
		if q == "" {
			continue
		}
		var n int
		if err := db.QueryRow(q).Scan(&n); err != nil {
			t.Fatalf("orphan query %s: %v", d.Table, err)
		}
		if n != 0 {
			t.Fatalf("%d orphaned rows in %s.%s", n, d.Table, d.Column)
		}
	}
	var dangling int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t_baseball_player_options o
		WHERE o.baseballPlayerLocalID NOT IN (
			SELECT lid.localID FROM t_baseball_player_local_ids lid
			JOIN t_baseball_players p ON p.GUID = lid.GUID)`).Scan(&dangling); err != nil || dangling != 0 {
		t.Fatalf("options reference unmapped local ids: %d (%v)", dangling, err)
	}
}

func TestTransplantIsIdempotent(t *testing.T) {
	w := newWorld(t)
	if _, err := transplant(t, w, nil); err != nil {
		t.Fatalf("first transplant: %v", err)
	}
	team1, players1 := readTeam(t, w.targetPath, w.target.GUID)
	counts1 := tableCounts(t, w.targetPath)

	summary, err := transplant(t, w, nil)
	if err != nil {
		t.Fatalf("second transplant: %v", err)
	}
	if summary.TargetTeam != "Source Sluggers" {
		t.Fatalf("second run should see the donated name, got %q", summary.TargetTeam)
	}
	team2, players2 := readTeam(t, w.targetPath, w.target.GUID)
	if diff := cmp.Diff(team1, team2); diff != "" {
		t.Fatalf("team changed on second run (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(players1, players2); diff != "" {
		t.Fatalf("roster changed on second run (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(counts1, tableCounts(t, w.targetPath)); diff != "" {
		t.Fatalf("row counts changed on second run (-first +second):\n%s", diff)
	}
}

func tableCounts(t *testing.T, path string) map[string]int {
	t.Helper()
	db := openDB(t, path)
	out := map[string]int{}
	for table, rows := range testutil.DumpTables(t, db, "main") {
		out[table] = len(rows)
	}
	return out
}

func TestTransplantRollsBackOnAnyStepFailure(t *testing.T) {
	steps := []Step{
		StepResolve, StepCosmetics, StepDeleteRoster, StepCopyPlayers, StepCopyLocalIDs,
		StepCopyOptions, StepCopyTraits, StepCopyColors, StepUpdatePlayers, StepRules,
	}
	boom := errors.New("simulated failure")
	for _, failAt := range steps {
		t.Run(string(failAt), func(t *testing.T) {
			w := newWorld(t)
			db := openDB(t, w.targetPath)
			before := testutil.DumpTables(t, db, "main")
			_ = db.Close()
			beforeBytes, err := os.ReadFile(w.targetPath)
			if err != nil {
				t.Fatalf("read target: %v", err)
			}

			var ran []Step
			hook := func(_ context.Context, s Step) error {
				ran = append(ran, s)
				if s == failAt {
					return boom
				}
				return nil
			}
			if _, err := transplant(t, w, nil, WithStepHook(hook)); !errors.Is(err, boom) {
				t.Fatalf("expected simulated failure, got %v", err)
			}
			if ran[len(ran)-1] != failAt {
				t.Fatalf("steps ran past the failure: %v", ran)
			}

			afterBytes, err := os.ReadFile(w.targetPath)
			if err != nil {
				t.Fatalf("read target: %v", err)
			}
			if !bytes.Equal(beforeBytes, afterBytes) {
				t.Fatal("target file changed after rollback")
			}
			db = openDB(t, w.targetPath)
			if diff := cmp.Diff(before, testutil.DumpTables(t, db, "main")); diff != "" {
				t.Fatalf("target content changed after rollback (-before +after):\n%s", diff)
			}
		})
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "always_block" }

func (blockingRule) Evaluate(context.Context, View) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "always_block", Severity: domain.SeverityBlock, Message: "no"}}}, nil
}

func TestTransplantBlockingRuleRollsBack(t *testing.T) {
	w := newWorld(t)
	db := openDB(t, w.targetPath)
	before := testutil.DumpTables(t, db, "main")
	_ = db.Close()

	_, err := transplant(t, w, nil, WithRule(blockingRule{}))
	var ie domain.IntegrityError
	if !errors.As(err, &ie) || len(ie.Violations) != 1 || ie.Violations[0].Rule != "always_block" {
		t.Fatalf("expected integrity error from blocking rule, got %v", err)
	}
	db = openDB(t, w.targetPath)
	if diff := cmp.Diff(before, testutil.DumpTables(t, db, "main")); diff != "" {
		t.Fatalf("target changed (-before +after):\n%s", diff)
	}
}

func TestTransplantAppliesRosterUpdatesToCopiedPlayers(t *testing.T) {
	w := newWorld(t)
	_, donors := readTeam(t, w.sourcePath, w.source.GUID)
	sourceBytes, _ := os.ReadFile(w.sourcePath)

	hitter, ace := donors[0], donors[1]
	rosterHitter := hitter
	rosterHitter.Trait1, rosterHitter.Trait2 = "Clutch (+)", domain.NoTrait
	rosterAce := ace
	pitching := *ace.Pitching
	pitching.Pitches.FourSeam, pitching.Pitches.TwoSeam = false, true
	rosterAce.Pitching = &pitching

	pairs := []domain.Comparison{
		{Roster: rosterHitter, Matched: &hitter, IsMatched: true},
		{Roster: rosterAce, Matched: &ace, IsMatched: true},
	}
	summary, err := transplant(t, w, pairs)
	if err != nil {
		t.Fatalf("transplant: %v", err)
	}
	if summary.Update.Updated != 2 || len(summary.Update.Warnings) != 0 {
		t.Fatalf("unexpected update report %+v", summary.Update)
	}

	_, got := readTeam(t, w.targetPath, w.target.GUID)
	if got[0].Trait1 != "Clutch (+)" || got[0].Trait2 != domain.NoTrait {
		t.Fatalf("expected Clutch trait only, got %q / %q", got[0].Trait1, got[0].Trait2)
	}
	db := openDB(t, w.targetPath)
	var trait, sub int64
	if err := db.QueryRow(`SELECT t.trait, t.subType FROM t_baseball_player_traits t
		JOIN t_baseball_player_local_ids l ON l.localID = t.baseballPlayerLocalID
		WHERE l.GUID = ?`, codec.MustGUIDBytes(hitter.GUID)).Scan(&trait, &sub); err != nil {
		t.Fatalf("stored trait: %v", err)
	}
	if trait != 32 || sub != 6 {
		t.Fatalf("expected trait row (32, 6), got (%d, %d)", trait, sub)
	}
	if p := got[1].Pitching.Pitches; p.FourSeam || !p.TwoSeam {
		t.Fatalf("expected 2-seam only fastball, got %+v", p)
	}
	for _, key := range []codec.OptionKey{codec.OptionFourSeam, codec.OptionTwoSeam} {
		var value, typ int64
		if err := db.QueryRow(`SELECT o.optionValue, o.optionType FROM t_baseball_player_options o
			JOIN t_baseball_player_local_ids l ON l.localID = o.baseballPlayerLocalID
			WHERE l.GUID = ? AND o.optionKey = ?`, codec.MustGUIDBytes(ace.GUID), int64(key)).Scan(&value, &typ); err != nil {
			t.Fatalf("option %d: %v", key, err)
		}
		want := map[codec.OptionKey]int64{codec.OptionFourSeam: 0, codec.OptionTwoSeam: 1}[key]
		if value != want || typ != int64(codec.OptionTypeFlag) {
			t.Fatalf("option %d: got value %d type %d", key, value, typ)
		}
	}

	after, _ := os.ReadFile(w.sourcePath)
	if !bytes.Equal(sourceBytes, after) {
		t.Fatal("updates must land on the target copy, not the source")
	}
}

func TestTransplantMissingTeams(t *testing.T) {
	w := newWorld(t)
	missingTarget := w
	missingTarget.target.GUID = testutil.NewGUID()
	if _, err := transplant(t, missingTarget, nil); domain.Kind(err) != "not_found" {
		t.Fatalf("expected not_found for target, got %v", err)
	}
	missingSource := w
	missingSource.source.GUID = w.target.GUID
	if _, err := transplant(t, missingSource, nil); domain.Kind(err) != "not_found" {
		t.Fatalf("expected not_found for source, got %v", err)
	}
}

func TestTransplantRejectsBadPlans(t *testing.T) {
	w := newWorld(t)
	bad := w
	bad.sourcePath = ""
	if _, err := transplant(t, bad, nil); domain.Kind(err) != "validation" {
		t.Fatalf("expected validation error, got %v", err)
	}
	bad = w
	bad.source.GUID = "not-a-guid"
	if _, err := transplant(t, bad, nil); domain.Kind(err) != "format" {
		t.Fatalf("expected format error, got %v", err)
	}
	bad = w
	bad.sourcePath = w.sourcePath + ".missing"
	if _, err := transplant(t, bad, nil); domain.Kind(err) != "io" {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestTransplantToleratesSchemaDrift(t *testing.T) {
	w := newWorld(t)
	src := openDB(t, w.sourcePath)
	if _, err := src.Exec(`ALTER TABLE t_baseball_players ADD COLUMN nickname TEXT`); err != nil {
		t.Fatalf("alter source: %v", err)
	}
	_ = src.Close()
	if _, err := transplant(t, w, nil); err != nil {
		t.Fatalf("transplant with extra source column: %v", err)
	}
	_, players := readTeam(t, w.targetPath, w.target.GUID)
	if len(players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(players))
	}
}

func TestTransplantWarnsOnTraitOverflow(t *testing.T) {
	w := newWorld(t)
	src := openDB(t, w.sourcePath)
	if _, err := src.Exec(`INSERT INTO t_baseball_player_traits (baseballPlayerLocalID, trait, subType)
		SELECT l.localID, 32, 6 FROM t_baseball_player_local_ids l WHERE l.GUID = ?`, codec.MustGUIDBytes(w.source.Players[0].GUID)); err != nil {
		t.Fatalf("add third trait: %v", err)
	}
	_ = src.Close()
	summary, err := transplant(t, w, nil)
	if err != nil {
		t.Fatalf("transplant: %v", err)
	}
	if len(summary.Warnings) != 1 || summary.Warnings[0].Rule != "trait_cap" {
		t.Fatalf("expected a trait_cap warning, got %+v", summary.Warnings)
	}
}

func TestDefaultRulesRegistered(t *testing.T) {
	var names []string
	for _, r := range NewEngine().Rules() {
		names = append(names, r.Name())
	}
	want := []string{"orphan_dependents", "duplicate_traits", "trait_cap"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
}

func dropTable(t *testing.T, path, table string) {
	t.Helper()
	db := openDB(t, path)
	if _, err := db.Exec(`DROP TABLE ` + table); err != nil {
		t.Fatalf("drop %s: %v", table, err)
	}
	_ = db.Close()
}

func TestTransplantSkipsMissingDependentTables(t *testing.T) {
	w := newWorld(t)
	dropTable(t, w.targetPath, "t_news_references")
	dropTable(t, w.sourcePath, "t_baseball_player_colors")

	summary, err := transplant(t, w, nil)
	if err != nil {
		t.Fatalf("transplant with missing dependents: %v", err)
	}
	if diff := cmp.Diff([]string{"t_news_references", colorsTable}, summary.Skipped); diff != "" {
		t.Fatalf("skipped tables (-want +got):\n%s", diff)
	}
	if summary.PlayersCopied != 3 || summary.PlayersRemoved != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, ok := summary.Copied[colorsTable]; ok {
		t.Fatalf("colors copied from a source without the table: %+v", summary.Copied)
	}
	if summary.Deleted[colorsTable] != 1 {
		t.Fatalf("expected the replaced player's color row deleted, got %d", summary.Deleted[colorsTable])
	}
	_, players := readTeam(t, w.targetPath, w.target.GUID)
	if len(players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(players))
	}
}

func TestTransplantRequiresCoreTables(t *testing.T) {
	for _, side := range []string{"target", "source"} {
		t.Run(side, func(t *testing.T) {
			w := newWorld(t)
			path := w.targetPath
			if side == "source" {
				path = w.sourcePath
			}
			dropTable(t, path, traitsTable)
			before, err := os.ReadFile(w.targetPath)
			if err != nil {
				t.Fatal(err)
			}
			_, err = transplant(t, w, nil)
			if domain.Kind(err) != "integrity" || !strings.Contains(err.Error(), traitsTable+" missing from "+side) {
				t.Fatalf("expected integrity error naming the %s, got %v", side, err)
			}
			after, err := os.ReadFile(w.targetPath)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(before, after) {
				t.Fatal("target changed after a rejected transplant")
			}
		})
	}
}
