package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/restql/dialect"
)

func TestBuilderQuoting(t *testing.T) {
	assert.Equal(t, "`employees`.`name`",
		Dialect(dialect.MySQL).QualifiedIdent("employees", "name").String())
	assert.Equal(t, `"employees"."name"`,
		Dialect(dialect.Postgres).Ident("employees.name").String())
	assert.Equal(t, "[employees].[name]",
		Dialect(dialect.SQLServer).QualifiedIdent("employees", "name").String())
	// Aliases quote as one identifier, dots included.
	assert.Equal(t, `"jobs.title"`,
		Dialect(dialect.SQLite).Alias("jobs.title").String())
}

func TestBuilderPlaceholders(t *testing.T) {
	query, args := Dialect(dialect.MySQL).Arg(1).Pad().Arg(2).Query()
	assert.Equal(t, "? ?", query)
	assert.Equal(t, []any{1, 2}, args)

	query, args = Dialect(dialect.Postgres).Arg("a").Pad().Arg("b").Query()
	assert.Equal(t, "$1 $2", query)
	assert.Equal(t, []any{"a", "b"}, args)

	query, _ = Dialect(dialect.SQLServer).Args(1, 2, 3).Query()
	assert.Equal(t, "@p1, @p2, @p3", query)
}

func TestBuilderLimit(t *testing.T) {
	query, args := Dialect(dialect.MySQL).Limit(10, 0).Query()
	assert.Equal(t, " LIMIT ?", query)
	assert.Equal(t, []any{10}, args)

	query, args = Dialect(dialect.Postgres).Limit(10, 20).Query()
	assert.Equal(t, " LIMIT $1 OFFSET $2", query)
	assert.Equal(t, []any{10, 20}, args)

	query, args = Dialect(dialect.SQLServer).OrderByNull().Limit(10, 20).Query()
	assert.Equal(t, " ORDER BY (SELECT NULL) OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY", query)
	assert.Equal(t, []any{20, 10}, args)
}

func TestDialectPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { Dialect("oracle") })
}
