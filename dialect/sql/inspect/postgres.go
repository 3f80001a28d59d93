package inspect

import (
	"context"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/schema"
)

const postgresColumnsQuery = `
SELECT c.column_name, c.data_type, c.udt_name, c.is_nullable, c.column_default, c.character_maximum_length
FROM information_schema.columns c
WHERE c.table_schema = current_schema() AND c.table_name = $1
ORDER BY c.ordinal_position`

const postgresKeysQuery = `
SELECT kcu.column_name, tc.constraint_type
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = current_schema()
  AND tc.table_name = $1
  AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
ORDER BY kcu.ordinal_position`

const postgresForwardFKQuery = `
SELECT kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name
 AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = current_schema()
  AND tc.table_name = $1
ORDER BY kcu.ordinal_position`

const postgresReverseFKQuery = `
SELECT tc.table_name, kcu.column_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name
 AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = current_schema()
  AND ccu.table_name = $1
ORDER BY tc.table_name, kcu.ordinal_position`

func (i *Inspector) postgresSchema(ctx context.Context, table string) (*schema.Schema, error) {
	s := &schema.Schema{Table: table}
	err := i.query(ctx, postgresColumnsQuery, []any{table}, func(rows *sqldrv.Rows) error {
		var (
			name, dataType, udtName, nullable string
			def                               sqldrv.NullString
			maxLength                         sqldrv.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &udtName, &nullable, &def, &maxLength); err != nil {
			return err
		}
		native := dataType
		if dataType == "USER-DEFINED" || dataType == "ARRAY" {
			native = udtName
		}
		col := schema.Column{
			Field:    name,
			Native:   native,
			Type:     schema.TypeOf(dialect.Postgres, dataType),
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
	err = i.query(ctx, postgresKeysQuery, []any{table}, func(rows *sqldrv.Rows) error {
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
	err = i.query(ctx, postgresForwardFKQuery, []any{table}, func(rows *sqldrv.Rows) error {
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
	err = i.query(ctx, postgresReverseFKQuery, []any{table}, func(rows *sqldrv.Rows) error {
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
