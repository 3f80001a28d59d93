package restql

import (
	sqldrv "github.com/syssam/restql/dialect/sql"
)

// scanRows drains a row set into one map per row, keyed by the column
// names the statement projected. Joined columns arrive under their
// "table.field" aliases and are un-flattened later by the reshaper.
func scanRows(rows *sqldrv.Rows) ([]map[string]any, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// scanCount reads a single COUNT(*) result.
func scanCount(rows *sqldrv.Rows) (int, error) {
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// scanID reads the generated key from a RETURNING/OUTPUT result row.
func scanID(rows *sqldrv.Rows) (any, error) {
	defer rows.Close()
	var id any
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
	}
	return id, rows.Err()
}
