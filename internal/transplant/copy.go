package transplant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// copySpec copies rows of one table from src into main. Columns are the
// intersection of both schemas so a donor file from another game version
// still transplants; columns listed in exprs are computed instead of copied.
type copySpec struct {
	table string
	// joins follow "FROM src.<table> s".
	joins string
	where string
	// exprs replaces the copied value of a column with a SQL expression.
	exprs map[string]string
	// omit drops columns the target must assign itself.
	omit map[string]bool
	args []any
	// ignore uses INSERT OR IGNORE instead of INSERT OR REPLACE.
	ignore bool
}

func tableColumns(ctx context.Context, tx *sql.Tx, schema, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA %s.table_info(%s)`, schema, table))
	if err != nil {
		return nil, fmt.Errorf("table info %s.%s: %w", schema, table, err)
	}
	defer func() { _ = rows.Close() }()
	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s.%s: %w", schema, table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func sharedColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	target, err := tableColumns(ctx, tx, "main", table)
	if err != nil {
		return nil, err
	}
	source, err := tableColumns(ctx, tx, "src", table)
	if err != nil {
		return nil, err
	}
	if len(target) == 0 || len(source) == 0 {
		return nil, fmt.Errorf("table %s missing from target or source", table)
	}
	have := make(map[string]bool, len(source))
	for _, c := range source {
		have[strings.ToLower(c)] = true
	}
	var out []string
	for _, c := range target {
		if have[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (c copySpec) run(ctx context.Context, tx *sql.Tx) (int64, error) {
	cols, err := sharedColumns(ctx, tx, c.table)
	if err != nil {
		return 0, err
	}
	var names, values []string
	for _, col := range cols {
		if c.omit[col] {
			continue
		}
		names = append(names, col)
		if expr, ok := c.exprs[col]; ok {
			values = append(values, expr)
			continue
		}
		values = append(values, "s."+col)
	}
	verb := "INSERT OR REPLACE"
	if c.ignore {
		verb = "INSERT OR IGNORE"
	}
	query := fmt.Sprintf("%s INTO main.%s (%s)\nSELECT %s\nFROM src.%s s %s\nWHERE %s\nORDER BY s.rowid",
		verb, c.table, strings.Join(names, ", "), strings.Join(values, ", "), c.table, c.joins, c.where)
	res, err := tx.ExecContext(ctx, query, c.args...)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", c.table, err)
	}
	return res.RowsAffected()
}
