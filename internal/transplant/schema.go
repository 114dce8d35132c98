package transplant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rosterinjector/pkg/domain"
)

// coreTables must exist in both databases. Every other dependent table is
// optional: saves from other game versions may lack some of them.
var coreTables = []string{
	"t_teams", "t_team_local_ids",
	playersTable, localIDsTable, optionsTable, traitsTable,
}

// copiedTables are the optional dependents copied from the source after the
// player rows. Options and traits are core and copied unconditionally.
var copiedTables = []string{colorsTable}

func isCore(table string) bool {
	for _, t := range coreTables {
		if t == table {
			return true
		}
	}
	return false
}

// tableSet holds the lowercased table names of one schema.
type tableSet map[string]bool

func (s tableSet) has(table string) bool { return s[strings.ToLower(table)] }

func listTables(ctx context.Context, tx *sql.Tx, schema string) (tableSet, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM `+schema+`.sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("list %s tables: %w", schema, err)
	}
	defer func() { _ = rows.Close() }()
	set := tableSet{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s table name: %w", schema, err)
		}
		set[strings.ToLower(name)] = true
	}
	return set, rows.Err()
}

func hasColumn(ctx context.Context, tx *sql.Tx, schema, table, column string) (bool, error) {
	cols, err := tableColumns(ctx, tx, schema, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c, column) {
			return true, nil
		}
	}
	return false, nil
}

// inspect records which tables both databases carry. A missing core table
// aborts with IntegrityError; a missing optional dependent is skipped for the
// rest of the run and reported in Summary.Skipped.
func (e *Engine) inspect(ctx context.Context, r *run) error {
	var err error
	if r.mainTables, err = listTables(ctx, r.tx, "main"); err != nil {
		return err
	}
	if r.srcTables, err = listTables(ctx, r.tx, SourceSchema); err != nil {
		return err
	}
	for _, t := range coreTables {
		if !r.mainTables.has(t) {
			return domain.IntegrityError{Reason: fmt.Sprintf("required table %s missing from target", t)}
		}
		if !r.srcTables.has(t) {
			return domain.IntegrityError{Reason: fmt.Sprintf("required table %s missing from source", t)}
		}
	}

	r.dependents = r.dependents[:0]
	for _, d := range closure {
		ok := r.mainTables.has(d.Table)
		if ok {
			if ok, err = hasColumn(ctx, r.tx, "main", d.Table, d.Column); err != nil {
				return err
			}
		}
		switch {
		case ok:
			r.dependents = append(r.dependents, d)
		case isCore(d.Table):
			return domain.IntegrityError{Reason: fmt.Sprintf("required column %s.%s missing from target", d.Table, d.Column)}
		default:
			e.logger.Warn("dependent missing from target, skipped", "table", d.Table, "column", d.Column)
			r.skip(d.Table)
		}
	}

	r.skipCopy = map[string]bool{}
	for _, t := range copiedTables {
		if r.mainTables.has(t) && r.srcTables.has(t) {
			continue
		}
		e.logger.Warn("dependent missing from target or source, copy skipped", "table", t)
		r.skipCopy[t] = true
		r.skip(t)
	}
	return nil
}

func (r *run) skip(table string) {
	for _, t := range r.summary.Skipped {
		if t == table {
			return
		}
	}
	r.summary.Skipped = append(r.summary.Skipped, table)
}
