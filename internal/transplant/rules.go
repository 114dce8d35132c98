package transplant

import (
	"context"
	"database/sql"
	"fmt"

	"rosterinjector/pkg/domain"
)

// View is what integrity rules see: the open transplant transaction and the
// target team, after every write and before commit.
type View struct {
	Tx       *sql.Tx
	TeamGUID []byte
	// Dependents are the closure entries present in the target.
	Dependents []Dependent
}

// MaxTraitsPerPlayer is the number of trait slots the game displays.
const MaxTraitsPerPlayer = 2

const teamLocalIDs = `SELECT lid.localID FROM main.` + localIDsTable + ` lid
JOIN main.` + playersTable + ` p ON p.GUID = lid.GUID WHERE p.teamGUID = ?`

// DefaultRules returns the rules registered on every engine.
func DefaultRules() *domain.RulesEngine[View] {
	engine := domain.NewRulesEngine[View]()
	engine.Register(orphanRule{})
	engine.Register(duplicateTraitRule{})
	engine.Register(traitCapRule{})
	return engine
}

type orphanRule struct{}

func (orphanRule) Name() string { return "orphan_dependents" }

// Evaluate counts, per dependent table, rows whose key resolves to no local
// id mapping or player row in the target database.
func (r orphanRule) Evaluate(ctx context.Context, v View) (domain.Result, error) {
	var res domain.Result
	for _, d := range v.Dependents {
		query := d.orphanSQL()
		if query == "" {
			continue
		}
		var n int64
		if err := v.Tx.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return domain.Result{}, fmt.Errorf("%s on %s: %w", r.Name(), d.Table, err)
		}
		if n > 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%d rows in %s.%s reference a missing %s", n, d.Table, d.Column, d.Key),
				Table:    d.Table,
				Key:      d.Column,
			})
		}
	}
	return res, nil
}

type duplicateTraitRule struct{}

func (duplicateTraitRule) Name() string { return "duplicate_traits" }

func (r duplicateTraitRule) Evaluate(ctx context.Context, v View) (domain.Result, error) {
	rows, err := v.Tx.QueryContext(ctx, `
SELECT baseballPlayerLocalID, trait, subType, COUNT(*)
FROM main.`+traitsTable+`
WHERE baseballPlayerLocalID IN (`+teamLocalIDs+`)
GROUP BY baseballPlayerLocalID, trait, subType
HAVING COUNT(*) > 1`, v.TeamGUID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("%s: %w", r.Name(), err)
	}
	defer func() { _ = rows.Close() }()
	var res domain.Result
	for rows.Next() {
		var lid, trait, sub, n int64
		if err := rows.Scan(&lid, &trait, &sub, &n); err != nil {
			return domain.Result{}, fmt.Errorf("%s: %w", r.Name(), err)
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("player %d has trait %d-%d stored %d times", lid, trait, sub, n),
			Table:    traitsTable,
			Key:      fmt.Sprint(lid),
		})
	}
	return res, rows.Err()
}

type traitCapRule struct{}

func (traitCapRule) Name() string { return "trait_cap" }

func (r traitCapRule) Evaluate(ctx context.Context, v View) (domain.Result, error) {
	rows, err := v.Tx.QueryContext(ctx, fmt.Sprintf(`
SELECT baseballPlayerLocalID, COUNT(*)
FROM main.%s
WHERE baseballPlayerLocalID IN (%s)
GROUP BY baseballPlayerLocalID
HAVING COUNT(*) > %d`, traitsTable, teamLocalIDs, MaxTraitsPerPlayer), v.TeamGUID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("%s: %w", r.Name(), err)
	}
	defer func() { _ = rows.Close() }()
	var res domain.Result
	for rows.Next() {
		var lid, n int64
		if err := rows.Scan(&lid, &n); err != nil {
			return domain.Result{}, fmt.Errorf("%s: %w", r.Name(), err)
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("player %d has %d traits; only %d are shown in game", lid, n, MaxTraitsPerPlayer),
			Table:    traitsTable,
			Key:      fmt.Sprint(lid),
		})
	}
	return res, rows.Err()
}
