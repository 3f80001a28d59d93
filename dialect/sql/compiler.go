package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/inflect"

	"github.com/syssam/restql/dialect"
	"github.com/syssam/restql/querylanguage"
	"github.com/syssam/restql/schema"
)

// Statement is a compiled, parameterized statement: the query text and
// its positional bind values. Returning reports that the statement yields
// the generated key as a result row (INSERT … RETURNING / OUTPUT) and
// must be executed as a query rather than an exec.
type Statement struct {
	Query     string
	Args      []any
	Returning bool
}

// Compiler turns validated FindRequests and write operations into
// dialect-correct parameterized statements. One generic compiler serves
// every dialect; the differences live in the features table.
type Compiler struct {
	dialect string
	feat    features
}

// NewCompiler returns a Compiler for the given dialect, or an error for
// an unsupported dialect name.
func NewCompiler(name string) (*Compiler, error) {
	f, err := featuresOf(name)
	if err != nil {
		return nil, err
	}
	return &Compiler{dialect: name, feat: f}, nil
}

// Dialect returns the compiler's dialect name.
func (c *Compiler) Dialect() string { return c.dialect }

// Find compiles a SELECT for the request: projection, inner joins, filter
// clauses, ordering, and pagination.
func (c *Compiler) Find(req *querylanguage.FindRequest) (Statement, error) {
	b := newBuilder(c.feat)
	b.WriteString("SELECT ")
	c.projection(b, req)
	b.WriteString(" FROM ").Ident(req.Schema.Table)
	c.joins(b, req)
	c.where(b, req)
	sorted := len(req.Sort) > 0
	for i, s := range req.Sort {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.Comma()
		}
		b.QualifiedIdent(req.Schema.Table, s.Column)
		b.Pad().WriteString(string(s.Direction))
	}
	if req.Limit > 0 {
		if c.feat.pagination == offsetFetch && !sorted {
			b.OrderByNull()
		}
		b.Limit(req.Limit, req.Offset)
	}
	query, args := b.Query()
	return Statement{Query: query, Args: args}, nil
}

// Count compiles the request's FROM/JOIN/WHERE structure under a COUNT(*)
// projection, with no ordering or pagination.
func (c *Compiler) Count(req *querylanguage.FindRequest) (Statement, error) {
	b := newBuilder(c.feat)
	b.WriteString("SELECT COUNT(*) FROM ").Ident(req.Schema.Table)
	c.joins(b, req)
	c.where(b, req)
	query, args := b.Query()
	return Statement{Query: query, Args: args}, nil
}

func (c *Compiler) projection(b *Builder, req *querylanguage.FindRequest) {
	wrote := false
	if len(req.Fields) == 0 {
		b.Ident(req.Schema.Table).WriteString(".*")
		wrote = true
	}
	for _, f := range req.Fields {
		if wrote {
			b.Comma()
		}
		b.QualifiedIdent(req.Schema.Table, f)
		wrote = true
	}
	for _, node := range req.Relations {
		cols := node.Columns
		if len(cols) == 0 {
			cols = node.Schema.Fields()
		}
		for _, f := range cols {
			if wrote {
				b.Comma()
			}
			b.QualifiedIdent(node.Table, f)
			b.WriteString(" AS ").Alias(node.Table + "." + f)
			wrote = true
		}
	}
}

func (c *Compiler) joins(b *Builder, req *querylanguage.FindRequest) {
	for _, node := range req.Relations {
		b.WriteString(" INNER JOIN ").Ident(node.Table)
		b.WriteString(" ON ")
		b.QualifiedIdent(node.Join.ParentTable, node.Join.ParentColumn)
		b.WriteString(" = ")
		b.QualifiedIdent(node.Table, node.Join.Column)
	}
}

func (c *Compiler) where(b *Builder, req *querylanguage.FindRequest) {
	wrote := false
	and := func() {
		if wrote {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" WHERE ")
		}
		wrote = true
	}
	for _, cond := range req.Where {
		and()
		c.condition(b, req.Schema.Table, cond)
	}
	// Per-relation filters compile to additional AND clauses referencing
	// the joined table, after the base clauses.
	for _, node := range req.Relations {
		for _, cond := range node.Where {
			and()
			c.condition(b, node.Table, cond)
		}
	}
}

func (c *Compiler) condition(b *Builder, table string, cond querylanguage.FilterCondition) {
	b.QualifiedIdent(table, cond.Column)
	switch cond.Op {
	case querylanguage.OpEQ:
		if cond.Value == nil {
			b.WriteString(" IS NULL")
			return
		}
		b.WriteString(" = ").Arg(cond.Value)
	case querylanguage.OpNEQ:
		b.WriteString(" <> ").Arg(cond.Value)
	case querylanguage.OpGT:
		b.WriteString(" > ").Arg(cond.Value)
	case querylanguage.OpGTE:
		b.WriteString(" >= ").Arg(cond.Value)
	case querylanguage.OpLT:
		b.WriteString(" < ").Arg(cond.Value)
	case querylanguage.OpLTE:
		b.WriteString(" <= ").Arg(cond.Value)
	case querylanguage.OpSearch:
		b.WriteString(" LIKE ").Arg("%" + fmt.Sprint(cond.Value) + "%")
	case querylanguage.OpIn:
		b.WriteString(" IN (")
		b.Args(valueList(cond.Value)...)
		b.WriteString(")")
	case querylanguage.OpIsNull:
		b.WriteString(" IS NULL")
	case querylanguage.OpNotNull:
		b.WriteString(" IS NOT NULL")
	}
}

func valueList(v any) []any {
	switch vs := v.(type) {
	case []any:
		return vs
	case []string:
		out := make([]any, len(vs))
		for i := range vs {
			out[i] = vs[i]
		}
		return out
	default:
		return []any{v}
	}
}

// Insert compiles an INSERT for the record's fields, in catalog column
// order for determinism. On dialects supporting it, the statement returns
// the generated primary key inline.
func (c *Compiler) Insert(s *schema.Schema, record map[string]any) (Statement, error) {
	b := newBuilder(c.feat)
	var cols []string
	var vals []any
	for _, col := range s.Columns {
		if v, present := record[col.Field]; present {
			cols = append(cols, col.Field)
			vals = append(vals, v)
		}
	}
	b.WriteString("INSERT INTO ").Ident(s.Table)
	returning := c.feat.returning && s.PrimaryKey != ""
	if len(cols) == 0 {
		if c.dialect == dialect.MySQL {
			b.WriteString(" () VALUES ()")
		} else {
			c.insertOutput(b, s, returning)
			b.WriteString(" DEFAULT VALUES")
		}
		c.insertReturning(b, s, returning)
		query, args := b.Query()
		return Statement{Query: query, Args: args, Returning: returning}, nil
	}
	b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			b.Comma()
		}
		b.Ident(col)
	}
	b.WriteString(")")
	c.insertOutput(b, s, returning)
	b.WriteString(" VALUES (").Args(vals...).WriteString(")")
	c.insertReturning(b, s, returning)
	query, args := b.Query()
	return Statement{Query: query, Args: args, Returning: returning}, nil
}

// insertOutput emits SQL Server's OUTPUT clause, which sits between the
// column list and VALUES.
func (c *Compiler) insertOutput(b *Builder, s *schema.Schema, returning bool) {
	if returning && c.dialect == dialect.SQLServer {
		b.WriteString(" OUTPUT INSERTED.").Ident(s.PrimaryKey)
	}
}

// insertReturning emits the trailing RETURNING clause on dialects using it.
func (c *Compiler) insertReturning(b *Builder, s *schema.Schema, returning bool) {
	if returning && c.dialect != dialect.SQLServer {
		b.WriteString(" RETURNING ").Ident(s.PrimaryKey)
	}
}

// Update compiles an UPDATE by primary key for the record's fields. The
// primary key never appears in the SET list.
func (c *Compiler) Update(s *schema.Schema, id any, record map[string]any) (Statement, error) {
	if s.PrimaryKey == "" {
		return Statement{}, fmt.Errorf("dialect/sql: table %q has no primary key", s.Table)
	}
	b := newBuilder(c.feat)
	b.WriteString("UPDATE ").Ident(s.Table).WriteString(" SET ")
	wrote := false
	for _, col := range s.Columns {
		if col.Field == s.PrimaryKey {
			continue
		}
		v, present := record[col.Field]
		if !present {
			continue
		}
		if wrote {
			b.Comma()
		}
		b.Ident(col.Field).WriteString(" = ").Arg(v)
		wrote = true
	}
	if !wrote {
		return Statement{}, fmt.Errorf("dialect/sql: update on %q has no fields to set", s.Table)
	}
	b.WriteString(" WHERE ").Ident(s.PrimaryKey).WriteString(" = ").Arg(id)
	query, args := b.Query()
	return Statement{Query: query, Args: args}, nil
}

// Delete compiles a physical DELETE by primary key.
func (c *Compiler) Delete(s *schema.Schema, id any) (Statement, error) {
	if s.PrimaryKey == "" {
		return Statement{}, fmt.Errorf("dialect/sql: table %q has no primary key", s.Table)
	}
	b := newBuilder(c.feat)
	b.WriteString("DELETE FROM ").Ident(s.Table)
	b.WriteString(" WHERE ").Ident(s.PrimaryKey).WriteString(" = ").Arg(id)
	query, args := b.Query()
	return Statement{Query: query, Args: args}, nil
}

// UniqueProbe compiles the collision check for one unique column. A
// non-nil excludeID exempts the row being updated from the probe.
func (c *Compiler) UniqueProbe(s *schema.Schema, column string, value, excludeID any) Statement {
	b := newBuilder(c.feat)
	b.WriteString("SELECT COUNT(*) FROM ").Ident(s.Table)
	b.WriteString(" WHERE ").Ident(column).WriteString(" = ").Arg(value)
	if excludeID != nil && s.PrimaryKey != "" {
		b.WriteString(" AND ").Ident(s.PrimaryKey).WriteString(" <> ").Arg(excludeID)
	}
	query, args := b.Query()
	return Statement{Query: query, Args: args}
}

// ddlTypes reverse-maps canonical types to native column syntax per
// dialect. String and enum columns get a length appended separately.
var ddlTypes = map[string]map[schema.Type]string{
	dialect.MySQL: {
		schema.TypeNumber: "INT", schema.TypeString: "VARCHAR",
		schema.TypeBool: "BOOLEAN", schema.TypeDate: "DATETIME",
		schema.TypeJSON: "JSON", schema.TypeEnum: "VARCHAR",
		schema.TypeUnknown: "TEXT",
	},
	dialect.Postgres: {
		schema.TypeNumber: "INTEGER", schema.TypeString: "VARCHAR",
		schema.TypeBool: "BOOLEAN", schema.TypeDate: "TIMESTAMP",
		schema.TypeJSON: "JSONB", schema.TypeEnum: "VARCHAR",
		schema.TypeUnknown: "TEXT",
	},
	dialect.SQLite: {
		schema.TypeNumber: "INTEGER", schema.TypeString: "VARCHAR",
		schema.TypeBool: "BOOLEAN", schema.TypeDate: "DATETIME",
		schema.TypeJSON: "JSON", schema.TypeEnum: "VARCHAR",
		schema.TypeUnknown: "TEXT",
	},
	dialect.SQLServer: {
		schema.TypeNumber: "INT", schema.TypeString: "NVARCHAR",
		schema.TypeBool: "BIT", schema.TypeDate: "DATETIME2",
		schema.TypeJSON: "NVARCHAR(MAX)", schema.TypeEnum: "NVARCHAR",
		schema.TypeUnknown: "NVARCHAR(MAX)",
	},
}

const defaultStringLength = 255

// CreateTable compiles the CREATE TABLE statement for the schema plus one
// ALTER TABLE … ADD CONSTRAINT statement per forward foreign-key
// relation. Reverse (mirrored) relations compile no constraint.
func (c *Compiler) CreateTable(s *schema.Schema) ([]Statement, error) {
	b := newBuilder(c.feat)
	b.WriteString("CREATE TABLE ").Ident(s.Table).WriteString(" (")
	for i := range s.Columns {
		if i > 0 {
			b.Comma()
		}
		if err := c.columnDDL(b, &s.Columns[i]); err != nil {
			return nil, err
		}
	}
	if s.PrimaryKey != "" && !c.inlinePrimaryKey(s) {
		b.Comma().WriteString("PRIMARY KEY (").Ident(s.PrimaryKey).WriteString(")")
	}
	// SQLite cannot add constraints after the fact; foreign keys render
	// inline in the table body.
	if c.dialect == dialect.SQLite {
		for _, rel := range s.Relations {
			if !c.forwardKey(s, rel) {
				continue
			}
			b.Comma().WriteString("FOREIGN KEY (").Ident(rel.Column).WriteString(")")
			b.WriteString(" REFERENCES ").Ident(rel.Table)
			b.WriteString(" (").Ident(rel.OrgColumn).WriteString(")")
		}
		b.WriteString(")")
		return []Statement{{Query: b.String()}}, nil
	}
	b.WriteString(")")
	stmts := []Statement{{Query: b.String()}}
	for _, rel := range s.Relations {
		if !c.forwardKey(s, rel) {
			continue
		}
		fb := newBuilder(c.feat)
		name := "fk_" + inflect.Underscore(s.Table+"_"+rel.Column)
		fb.WriteString("ALTER TABLE ").Ident(s.Table)
		fb.WriteString(" ADD CONSTRAINT ").Ident(name)
		fb.WriteString(" FOREIGN KEY (").Ident(rel.Column).WriteString(")")
		fb.WriteString(" REFERENCES ").Ident(rel.Table)
		fb.WriteString(" (").Ident(rel.OrgColumn).WriteString(")")
		stmts = append(stmts, Statement{Query: fb.String()})
	}
	return stmts, nil
}

// forwardKey reports whether rel is an owning-side foreign key of s, as
// opposed to the mirror of an edge owned by another table.
func (c *Compiler) forwardKey(s *schema.Schema, rel schema.Relation) bool {
	col, found := s.Column(rel.Column)
	return found && col.ForeignKey
}

// inlinePrimaryKey reports whether the primary key renders inline on its
// column definition. SQLite's AUTOINCREMENT only works on an inline
// INTEGER PRIMARY KEY.
func (c *Compiler) inlinePrimaryKey(s *schema.Schema) bool {
	if c.dialect != dialect.SQLite {
		return false
	}
	col, found := s.Column(s.PrimaryKey)
	return found && col.Type == schema.TypeNumber
}

func (c *Compiler) columnDDL(b *Builder, col *schema.Column) error {
	native, ok := ddlTypes[c.dialect][col.Type]
	if !ok {
		return fmt.Errorf("dialect/sql: no %s column syntax for type %s", c.dialect, col.Type)
	}
	b.Ident(col.Field).Pad().WriteString(native)
	if (col.Type == schema.TypeString || col.Type == schema.TypeEnum) && !strings.Contains(native, "(") {
		length := col.Length
		if length <= 0 {
			length = defaultStringLength
		}
		b.WriteString("(" + strconv.Itoa(length) + ")")
	}
	if col.PrimaryKey {
		if c.dialect == dialect.SQLite && col.Type == schema.TypeNumber {
			b.WriteString(" PRIMARY KEY AUTOINCREMENT")
			return nil
		}
		if col.Type == schema.TypeNumber {
			b.Pad().WriteString(c.feat.identity)
		}
		b.WriteString(" NOT NULL")
		return nil
	}
	if col.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ").WriteString(defaultLiteral(col.Default))
	}
	return nil
}

// defaultLiteral renders a column default for DDL. DDL cannot bind
// parameters, so string defaults are escaped by doubling single quotes.
func defaultLiteral(v any) string {
	switch d := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(d, "'", "''") + "'"
	case bool:
		if d {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + d.UTC().Format("2006-01-02 15:04:05") + "'"
	default:
		return fmt.Sprint(v)
	}
}
