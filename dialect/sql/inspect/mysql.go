package inspect

import (
	"context"
	"strings"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/schema"
)

const mysqlColumnsQuery = `
SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY, EXTRA
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

const mysqlForwardFKQuery = `
SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY ORDINAL_POSITION`

const mysqlReverseFKQuery = `
SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND REFERENCED_TABLE_NAME = ?
ORDER BY TABLE_NAME, ORDINAL_POSITION`

func (i *Inspector) mysqlSchema(ctx context.Context, table string) (*schema.Schema, error) {
	s := &schema.Schema{Table: table}
	err := i.query(ctx, mysqlColumnsQuery, []any{table}, func(rows *sqldrv.Rows) error {
		var (
			name, columnType, nullable string
			columnKey, extra           sqldrv.NullString
			def                        sqldrv.NullString
		)
		if err := rows.Scan(&name, &columnType, &nullable, &def, &columnKey, &extra); err != nil {
			return err
		}
		col := schema.Column{
			Field:      name,
			Native:     columnType,
			Type:       schema.TypeOf(dialect.MySQL, columnType),
			Nullable:   nullable == "YES",
			PrimaryKey: columnKey.String == "PRI",
			Unique:     columnKey.String == "UNI",
		}
		if def.Valid {
			col.Default = def.String
		}
		if col.Type == schema.TypeEnum {
			col.EnumValues = parseMySQLEnum(columnType)
		}
		s.Columns = append(s.Columns, col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = i.query(ctx, mysqlForwardFKQuery, []any{table}, func(rows *sqldrv.Rows) error {
		var column, refTable, refColumn string
		if err := rows.Scan(&column, &refTable, &refColumn); err != nil {
			return err
		}
		forwardRelation(s, column, refTable, refColumn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = i.query(ctx, mysqlReverseFKQuery, []any{table}, func(rows *sqldrv.Rows) error {
		var childTable, childColumn, localColumn string
		if err := rows.Scan(&childTable, &childColumn, &localColumn); err != nil {
			return err
		}
		reverseRelation(s, childTable, childColumn, localColumn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finish(s)
}

// parseMySQLEnum extracts the value list from a native enum definition
// such as enum('draft','published').
func parseMySQLEnum(columnType string) []string {
	open := strings.IndexByte(columnType, '(')
	end := strings.LastIndexByte(columnType, ')')
	if open < 0 || end <= open {
		return nil
	}
	parts := strings.Split(columnType[open+1:end], ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.Trim(strings.TrimSpace(p), "'"))
	}
	return values
}
