package inspect

import (
	"context"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/schema"
)

const sqlserverColumnsQuery = `
SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE, c.COLUMN_DEFAULT, c.CHARACTER_MAXIMUM_LENGTH
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE c.TABLE_NAME = @p1
ORDER BY c.ORDINAL_POSITION`

const sqlserverKeysQuery = `
SELECT kcu.COLUMN_NAME, tc.CONSTRAINT_TYPE
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
WHERE tc.TABLE_NAME = @p1
  AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE')
ORDER BY kcu.ORDINAL_POSITION`

const sqlserverForwardFKQuery = `
SELECT cp.name, tr.name, cr.name
FROM sys.foreign_key_columns fkc
JOIN sys.tables tp ON fkc.parent_object_id = tp.object_id
JOIN sys.columns cp ON fkc.parent_object_id = cp.object_id AND fkc.parent_column_id = cp.column_id
JOIN sys.tables tr ON fkc.referenced_object_id = tr.object_id
JOIN sys.columns cr ON fkc.referenced_object_id = cr.object_id AND fkc.referenced_column_id = cr.column_id
WHERE tp.name = @p1
ORDER BY tr.name, cp.name`

const sqlserverReverseFKQuery = `
SELECT tp.name, cp.name, cr.name
FROM sys.foreign_key_columns fkc
JOIN sys.tables tp ON fkc.parent_object_id = tp.object_id
JOIN sys.columns cp ON fkc.parent_object_id = cp.object_id AND fkc.parent_column_id = cp.column_id
JOIN sys.tables tr ON fkc.referenced_object_id = tr.object_id
JOIN sys.columns cr ON fkc.referenced_object_id = cr.object_id AND fkc.referenced_column_id = cr.column_id
WHERE tr.name = @p1
ORDER BY tp.name, cp.name`

func (i *Inspector) sqlserverSchema(ctx context.Context, table string) (*schema.Schema, error) {
	s := &schema.Schema{Table: table}
	err := i.query(ctx, sqlserverColumnsQuery, []any{table}, func(rows *sqldrv.Rows) error {
		var (
			name, dataType, nullable string
			def                      sqldrv.NullString
			maxLength                sqldrv.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &nullable, &def, &maxLength); err != nil {
			return err
		}
		col := schema.Column{
			Field:    name,
			Native:   dataType,
			Type:     schema.TypeOf(dialect.SQLServer, dataType),
			Nullable: nullable == "YES",
			Length:   int(maxLength.Int64),
		}
		if def.Valid {
			col.Default = def.String
		}
		s.Columns = append(s.Columns, col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = i.query(ctx, sqlserverKeysQuery, []any{table}, func(rows *sqldrv.Rows) error {
		var column, constraintType string
		if err := rows.Scan(&column, &constraintType); err != nil {
			return err
		}
		if col, ok := s.Column(column); ok {
			switch constraintType {
			case "PRIMARY KEY":
				col.PrimaryKey = true
			case "UNIQUE":
				col.Unique = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = i.query(ctx, sqlserverForwardFKQuery, []any{table}, func(rows *sqldrv.Rows) error {
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
	err = i.query(ctx, sqlserverReverseFKQuery, []any{table}, func(rows *sqldrv.Rows) error {
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
