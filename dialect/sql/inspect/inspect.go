// Package inspect builds canonical schema models from a database's own
// catalog. For each table it queries the dialect's information-schema
// equivalent for columns, keys, and foreign-key edges, and materializes
// every discovered edge bidirectionally: the owning table gets the forward
// relation and the referenced table's schema gets the mirror, so relation
// lookup succeeds from either endpoint.
//
// Schemas are introspected fresh on every call; there is no cache in this
// package. Callers wanting one layer a decorator on top (see the root
// package's SchemaCache).
package inspect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/schema"
)

// Inspector reads table schemas from the catalog of the driver's dialect.
type Inspector struct {
	drv dialect.Driver
}

// NewInspector returns an Inspector reading through the given driver.
func NewInspector(drv dialect.Driver) *Inspector {
	return &Inspector{drv: drv}
}

// Schema introspects one table. It fails with *schema.NotFoundError when
// the catalog has no columns for the table. Catalog queries run one
// statement per connection acquisition, sequentially.
func (i *Inspector) Schema(ctx context.Context, table string) (*schema.Schema, error) {
	if !validIdent.MatchString(table) {
		return nil, fmt.Errorf("inspect: invalid table name %q", table)
	}
	switch d := i.drv.Dialect(); d {
	case dialect.MySQL:
		return i.mysqlSchema(ctx, table)
	case dialect.Postgres:
		return i.postgresSchema(ctx, table)
	case dialect.SQLite:
		return i.sqliteSchema(ctx, table)
	case dialect.SQLServer:
		return i.sqlserverSchema(ctx, table)
	default:
		return nil, fmt.Errorf("inspect: unsupported dialect %q", d)
	}
}

// validIdent constrains table names interpolated into catalog statements
// that cannot bind parameters (SQLite PRAGMAs).
var validIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// query runs one catalog statement and hands each row to scan.
func (i *Inspector) query(ctx context.Context, query string, args []any, scan func(*sqldrv.Rows) error) error {
	rows := &sqldrv.Rows{}
	if err := i.drv.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// forwardRelation materializes the owning side of a foreign-key edge
// local.column → ref.refColumn and flags the local column.
func forwardRelation(s *schema.Schema, column, refTable, refColumn string) {
	if col, ok := s.Column(column); ok {
		col.ForeignKey = true
	}
	s.Relations = append(s.Relations, schema.Relation{
		Table:     refTable,
		Column:    column,
		OrgTable:  refTable,
		OrgColumn: refColumn,
	})
}

// reverseRelation materializes the mirror of an edge discovered on
// another table: child.childColumn references s.Table's localColumn.
func reverseRelation(s *schema.Schema, childTable, childColumn, localColumn string) {
	s.Relations = append(s.Relations, schema.Relation{
		Table:     childTable,
		Column:    localColumn,
		OrgTable:  childTable,
		OrgColumn: childColumn,
	})
}

// finish derives the flags shared by all dialects and enforces the
// zero-column contract.
func finish(s *schema.Schema) (*schema.Schema, error) {
	if len(s.Columns) == 0 {
		return nil, &schema.NotFoundError{Table: s.Table}
	}
	for i := range s.Columns {
		col := &s.Columns[i]
		col.Required = !col.Nullable
		// At most one primary key column; composite keys keep the first
		// member as the addressable key.
		if col.PrimaryKey && s.PrimaryKey == "" {
			s.PrimaryKey = col.Field
		} else if col.PrimaryKey {
			col.PrimaryKey = false
		}
	}
	return s, nil
}
