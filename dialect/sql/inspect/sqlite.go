package inspect

import (
	"context"
	"fmt"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/schema"
)

// SQLite has no information schema; columns, keys, and foreign keys come
// from PRAGMA statements. PRAGMAs cannot bind parameters, so table names
// are validated against validIdent before interpolation.

func (i *Inspector) sqliteSchema(ctx context.Context, table string) (*schema.Schema, error) {
	s := &schema.Schema{Table: table}
	err := i.query(ctx, fmt.Sprintf("PRAGMA table_info('%s')", table), []any{}, func(rows *sqldrv.Rows) error {
		var (
			cid, notNull, pk int
			name, typeName   string
			def              sqldrv.NullString
		)
		if err := rows.Scan(&cid, &name, &typeName, &notNull, &def, &pk); err != nil {
			return err
		}
		col := schema.Column{
			Field:      name,
			Native:     typeName,
			Type:       schema.TypeOf(dialect.SQLite, typeName),
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk == 1,
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
	if err := i.sqliteUniques(ctx, s); err != nil {
		return nil, err
	}
	err = i.query(ctx, fmt.Sprintf("PRAGMA foreign_key_list('%s')", table), []any{}, func(rows *sqldrv.Rows) error {
		var (
			id, seq                            int
			refTable, from                     string
			to, onUpdate, onDelete, matchScope sqldrv.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchScope); err != nil {
			return err
		}
		// A NULL "to" column means the FK references the target's
		// implicit primary key.
		refColumn := to.String
		if !to.Valid {
			refColumn = "id"
		}
		forwardRelation(s, from, refTable, refColumn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := i.sqliteReverse(ctx, s); err != nil {
		return nil, err
	}
	return finish(s)
}

// sqliteUniques flags columns covered by a single-column unique index.
func (i *Inspector) sqliteUniques(ctx context.Context, s *schema.Schema) error {
	type index struct {
		name   string
		unique bool
	}
	var indexes []index
	err := i.query(ctx, fmt.Sprintf("PRAGMA index_list('%s')", s.Table), []any{}, func(rows *sqldrv.Rows) error {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		// Skip the index backing the primary key itself.
		if origin == "pk" {
			return nil
		}
		indexes = append(indexes, index{name: name, unique: unique == 1})
		return nil
	})
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		if !idx.unique || !validIdent.MatchString(idx.name) {
			continue
		}
		var members []string
		err := i.query(ctx, fmt.Sprintf("PRAGMA index_info('%s')", idx.name), []any{}, func(rows *sqldrv.Rows) error {
			var seqno, cid int
			var name sqldrv.NullString
			if err := rows.Scan(&seqno, &cid, &name); err != nil {
				return err
			}
			if name.Valid {
				members = append(members, name.String)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(members) == 1 {
			if col, ok := s.Column(members[0]); ok {
				col.Unique = true
			}
		}
	}
	return nil
}

// sqliteReverse scans every other table's foreign keys for edges that
// reference s.Table and materializes their mirrors.
func (i *Inspector) sqliteReverse(ctx context.Context, s *schema.Schema) error {
	var tables []string
	err := i.query(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name <> ? AND name NOT LIKE 'sqlite_%' ORDER BY name",
		[]any{s.Table},
		func(rows *sqldrv.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			if validIdent.MatchString(name) {
				tables = append(tables, name)
			}
			return nil
		})
	if err != nil {
		return err
	}
	for _, child := range tables {
		err := i.query(ctx, fmt.Sprintf("PRAGMA foreign_key_list('%s')", child), []any{}, func(rows *sqldrv.Rows) error {
			var (
				id, seq                            int
				refTable, from                     string
				to, onUpdate, onDelete, matchScope sqldrv.NullString
			)
			if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchScope); err != nil {
				return err
			}
			if refTable != s.Table {
				return nil
			}
			localColumn := to.String
			if !to.Valid {
				localColumn = "id"
				for i := range s.Columns {
					if s.Columns[i].PrimaryKey {
						localColumn = s.Columns[i].Field
						break
					}
				}
			}
			reverseRelation(s, child, from, localColumn)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
