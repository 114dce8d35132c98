// Package transplant replaces one team's name, cosmetics and roster with a
// donor team's content from another league database while keeping the
// target team's own GUID and local id.
package transplant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rosterinjector/internal/codec"
	"rosterinjector/internal/infra/persistence/sqlite"
	"rosterinjector/internal/updater"
	"rosterinjector/pkg/domain"
)

// SourceSchema is the alias the donor database is attached under.
const SourceSchema = "src"

// Step names a unit of work inside the transplant transaction.
type Step string

// Transplant steps, in execution order.
const (
	StepResolve       Step = "resolve_teams"
	StepCosmetics     Step = "cosmetics"
	StepDeleteRoster  Step = "delete_roster"
	StepCopyPlayers   Step = "copy_players"
	StepCopyLocalIDs  Step = "copy_local_ids"
	StepCopyOptions   Step = "copy_options"
	StepCopyTraits    Step = "copy_traits"
	StepCopyColors    Step = "copy_colors"
	StepUpdatePlayers Step = "update_players"
	StepRules         Step = "integrity_rules"
)

// StepHook runs before each step. A non-nil error aborts and rolls back.
type StepHook func(ctx context.Context, step Step) error

// Summary reports what a committed transplant changed.
type Summary struct {
	TargetGUID     string             `json:"target_guid"`
	TargetTeam     string             `json:"target_team"`
	SourceTeam     string             `json:"source_team"`
	PlayersRemoved int64              `json:"players_removed"`
	PlayersCopied  int64              `json:"players_copied"`
	Deleted        map[string]int64   `json:"deleted"`
	Copied         map[string]int64   `json:"copied"`
	Update         updater.Report     `json:"update"`
	Warnings       []domain.Violation `json:"warnings,omitempty"`
	Skipped        []string           `json:"skipped,omitempty"`
	Duration       time.Duration      `json:"duration"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStepHook installs a hook called before every step.
func WithStepHook(hook StepHook) Option {
	return func(e *Engine) { e.hook = hook }
}

// WithRule registers an additional integrity rule.
func WithRule(rule domain.Rule[View]) Option {
	return func(e *Engine) { e.rules.Register(rule) }
}

// WithClock overrides time.Now, used for Summary.Duration.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine runs transplants. It holds no per-call state and is safe to reuse.
type Engine struct {
	logger *slog.Logger
	hook   StepHook
	rules  *domain.RulesEngine[View]
	now    func() time.Time
}

// NewEngine returns an engine with the default integrity rules registered.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rules:  DefaultRules(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules exposes the registered integrity rules.
func (e *Engine) Rules() []domain.Rule[View] { return e.rules.Rules() }

type team struct {
	guid    []byte
	name    string
	localID int64
}

// run is the per-call context: one transaction, both resolved teams, the
// tables each side carries and the summary.
type run struct {
	tx      *sql.Tx
	target  team
	source  team
	summary *Summary

	mainTables, srcTables tableSet
	// dependents is the closure minus entries the target lacks.
	dependents []Dependent
	skipCopy   map[string]bool
}

// Transplant attaches plan.SourcePath read-only to conn, then in a single
// transaction replaces the target team's cosmetics and roster with the
// source team's, applies pairs to the copied players, and evaluates the
// integrity rules. Any failure rolls the whole transaction back.
func (e *Engine) Transplant(ctx context.Context, conn *sql.Conn, plan domain.TransplantPlan, pairs []domain.Comparison) (Summary, error) {
	if err := plan.Validate(); err != nil {
		return Summary{}, err
	}
	targetGUID, err := codec.GUIDBytes(plan.KeepIdentity)
	if err != nil {
		return Summary{}, fmt.Errorf("target team: %w", err)
	}
	sourceGUID, err := codec.GUIDBytes(plan.DonateContentFrom)
	if err != nil {
		return Summary{}, fmt.Errorf("source team: %w", err)
	}
	start := e.now()
	if err := sqlite.AttachReadOnly(ctx, conn, plan.SourcePath, SourceSchema); err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := sqlite.Detach(conn, SourceSchema); err != nil {
			e.logger.Warn("detach source database failed", "error", err)
		}
	}()

	summary := Summary{
		TargetGUID: plan.KeepIdentity,
		Deleted:    map[string]int64{},
		Copied:     map[string]int64{},
	}
	err = sqlite.WithTx(ctx, conn, func(tx *sql.Tx) error {
		r := &run{tx: tx, summary: &summary}
		r.target.guid, r.source.guid = targetGUID, sourceGUID
		return e.execute(ctx, r, pairs)
	})
	if err != nil {
		e.logger.Error("transplant rolled back", "plan", plan.String(), "error", err)
		return Summary{}, err
	}
	summary.Duration = e.now().Sub(start)
	e.logger.Info("transplant committed",
		"target", summary.TargetTeam,
		"source", summary.SourceTeam,
		"players_removed", summary.PlayersRemoved,
		"players_copied", summary.PlayersCopied,
		"updated", summary.Update.Updated,
		"warnings", len(summary.Warnings)+len(summary.Update.Warnings),
	)
	return summary, nil
}

func (e *Engine) execute(ctx context.Context, r *run, pairs []domain.Comparison) error {
	steps := []struct {
		step Step
		fn   func(context.Context, *run) error
	}{
		{StepResolve, e.resolve},
		{StepCosmetics, e.cosmetics},
		{StepDeleteRoster, e.deleteRoster},
		{StepCopyPlayers, e.copyPlayers},
		{StepCopyLocalIDs, e.copyLocalIDs},
		{StepCopyOptions, e.copyDependent(optionsTable)},
		{StepCopyTraits, e.copyDependent(traitsTable)},
		{StepCopyColors, e.copyDependent(colorsTable)},
		{StepUpdatePlayers, e.updatePlayers(pairs)},
		{StepRules, e.evaluateRules},
	}
	for _, s := range steps {
		if e.hook != nil {
			if err := e.hook(ctx, s.step); err != nil {
				return fmt.Errorf("step %s: %w", s.step, err)
			}
		}
		if err := s.fn(ctx, r); err != nil {
			return fmt.Errorf("step %s: %w", s.step, err)
		}
		e.logger.Debug("transplant step done", "step", string(s.step))
	}
	return nil
}

func resolveTeam(ctx context.Context, tx *sql.Tx, schema string, t *team, role string) error {
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`
SELECT t.teamName, lid.localID
FROM %[1]s.t_teams t
JOIN %[1]s.t_team_local_ids lid ON lid.GUID = t.GUID
WHERE t.GUID = ?`, schema), t.guid).Scan(&t.name, &t.localID)
	if errors.Is(err, sql.ErrNoRows) {
		id, _ := codec.GUIDString(t.guid)
		return domain.NotFoundError{Entity: role + " team", ID: id}
	}
	if err != nil {
		return fmt.Errorf("resolve %s team: %w", role, err)
	}
	return nil
}

func (e *Engine) resolve(ctx context.Context, r *run) error {
	if err := e.inspect(ctx, r); err != nil {
		return err
	}
	if err := resolveTeam(ctx, r.tx, "main", &r.target, "target"); err != nil {
		return err
	}
	if err := resolveTeam(ctx, r.tx, SourceSchema, &r.source, "source"); err != nil {
		return err
	}
	r.summary.TargetTeam = r.target.name
	r.summary.SourceTeam = r.source.name
	return nil
}

func (e *Engine) exec(ctx context.Context, r *run, table, query string, args ...any) error {
	res, err := r.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", table, err)
	}
	r.summary.Deleted[table] += n
	return nil
}

func (e *Engine) cosmetics(ctx context.Context, r *run) error {
	deletes := []struct {
		table, query string
		arg          any
	}{
		{"t_team_logo_attributes", `DELETE FROM main.t_team_logo_attributes
WHERE teamLogoGUID IN (SELECT GUID FROM main.t_team_logos WHERE teamGUID = ?)`, r.target.guid},
		{"t_team_logos", `DELETE FROM main.t_team_logos WHERE teamGUID = ?`, r.target.guid},
		{"t_team_attributes", `DELETE FROM main.t_team_attributes WHERE teamLocalID = ?`, r.target.localID},
	}
	for _, d := range deletes {
		if err := e.exec(ctx, r, d.table, d.query, d.arg); err != nil {
			return err
		}
	}
	if _, err := r.tx.ExecContext(ctx, `UPDATE main.t_teams SET teamName = ? WHERE GUID = ?`, r.source.name, r.target.guid); err != nil {
		return fmt.Errorf("rename target team: %w", err)
	}
	copies := []copySpec{
		{
			table: "t_team_logos",
			exprs: map[string]string{teamGUIDColumn: "?"},
			where: "s.teamGUID = ?",
			args:  []any{r.target.guid, r.source.guid},
		},
		{
			table: "t_team_logo_attributes",
			where: "s.teamLogoGUID IN (SELECT GUID FROM src.t_team_logos WHERE teamGUID = ?)",
			args:  []any{r.source.guid},
		},
		{
			table: "t_team_attributes",
			exprs: map[string]string{"teamLocalID": "?"},
			where: "s.teamLocalID = ?",
			args:  []any{r.target.localID, r.source.localID},
		},
	}
	for _, c := range copies {
		n, err := c.run(ctx, r.tx)
		if err != nil {
			return err
		}
		r.summary.Copied[c.table] += n
	}
	return nil
}

func (e *Engine) deleteRoster(ctx context.Context, r *run) error {
	for _, d := range r.dependents {
		before := r.summary.Deleted[d.Table]
		if err := e.exec(ctx, r, d.Table, d.deleteSQL(), r.target.guid); err != nil {
			return err
		}
		if d.Key == KeyTeam {
			r.summary.PlayersRemoved = r.summary.Deleted[d.Table] - before
		}
	}
	return nil
}

func (e *Engine) copyPlayers(ctx context.Context, r *run) error {
	n, err := copySpec{
		table: playersTable,
		exprs: map[string]string{teamGUIDColumn: "?"},
		where: "s.teamGUID = ?",
		args:  []any{r.target.guid, r.source.guid},
	}.run(ctx, r.tx)
	if err != nil {
		return err
	}
	r.summary.PlayersCopied = n
	r.summary.Copied[playersTable] = n
	return nil
}

// copyLocalIDs gives every copied player a fresh local id allocated by the
// target; source local ids never cross files.
func (e *Engine) copyLocalIDs(ctx context.Context, r *run) error {
	n, err := copySpec{
		table:  localIDsTable,
		joins:  "JOIN src." + playersTable + " sp ON sp.GUID = s.GUID",
		where:  "sp.teamGUID = ?",
		omit:   map[string]bool{"localID": true},
		args:   []any{r.source.guid},
		ignore: true,
	}.run(ctx, r.tx)
	if err != nil {
		return err
	}
	r.summary.Copied[localIDsTable] = n
	return nil
}

// copyDependent copies a local-id keyed table, translating each source local
// id through its GUID to the target's local id.
func (e *Engine) copyDependent(table string) func(context.Context, *run) error {
	return func(ctx context.Context, r *run) error {
		if r.skipCopy[table] {
			return nil
		}
		n, err := copySpec{
			table: table,
			joins: `JOIN src.` + localIDsTable + ` sl ON sl.localID = s.` + localIDColumn + `
JOIN src.` + playersTable + ` sp ON sp.GUID = sl.GUID
JOIN main.` + localIDsTable + ` tl ON tl.GUID = sl.GUID`,
			where: "sp.teamGUID = ?",
			exprs: map[string]string{localIDColumn: "tl.localID"},
			args:  []any{r.source.guid},
		}.run(ctx, r.tx)
		if err != nil {
			return err
		}
		r.summary.Copied[table] = n
		return nil
	}
}

func (e *Engine) updatePlayers(pairs []domain.Comparison) func(context.Context, *run) error {
	return func(ctx context.Context, r *run) error {
		if len(pairs) == 0 {
			return nil
		}
		stmts, err := updater.Prepare(ctx, r.tx, updater.WithLogger(e.logger))
		if err != nil {
			return err
		}
		r.summary.Update = stmts.Apply(ctx, pairs)
		if err := stmts.Close(); err != nil {
			return fmt.Errorf("close update statements: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, w := range r.summary.Update.Warnings {
			e.logger.Warn("player update warning", "warning", w)
		}
		return nil
	}
}

func (e *Engine) evaluateRules(ctx context.Context, r *run) error {
	res, err := e.rules.Evaluate(ctx, View{Tx: r.tx, TeamGUID: r.target.guid, Dependents: r.dependents})
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	if res.HasBlocking() {
		return domain.IntegrityError{Reason: "transplant integrity check failed", Violations: res.Blocking()}
	}
	for _, v := range res.Violations {
		e.logger.Warn("integrity rule warning", "rule", v.Rule, "table", v.Table, "message", v.Message)
	}
	r.summary.Warnings = res.Violations
	return nil
}
