package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restql/dialect"
	"github.com/syssam/restql/querylanguage"
	"github.com/syssam/restql/schema"
)

func employeesSchema() *schema.Schema {
	return &schema.Schema{
		Table:      "employees",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Field: "id", Type: schema.TypeNumber, PrimaryKey: true},
			{Field: "name", Type: schema.TypeString},
			{Field: "email", Type: schema.TypeString, Nullable: true, Unique: true},
			{Field: "job_id", Type: schema.TypeNumber, ForeignKey: true},
		},
		Relations: []schema.Relation{
			{Table: "jobs", Column: "job_id", OrgTable: "jobs", OrgColumn: "id"},
		},
	}
}

func jobsSchema() *schema.Schema {
	return &schema.Schema{
		Table:      "jobs",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Field: "id", Type: schema.TypeNumber, PrimaryKey: true},
			{Field: "title", Type: schema.TypeString},
			{Field: "department", Type: schema.TypeString},
		},
		Relations: []schema.Relation{
			{Table: "employees", Column: "id", OrgTable: "employees", OrgColumn: "job_id"},
		},
	}
}

func jobsNode(columns ...string) *querylanguage.RelationNode {
	return &querylanguage.RelationNode{
		Table:  "jobs",
		Schema: jobsSchema(),
		Join: querylanguage.JoinSpec{
			Kind:         querylanguage.InnerJoin,
			ParentTable:  "employees",
			ParentColumn: "job_id",
			Column:       "id",
		},
		Columns: columns,
	}
}

func mustCompiler(t *testing.T, name string) *Compiler {
	t.Helper()
	c, err := NewCompiler(name)
	require.NoError(t, err)
	return c
}

func TestFind(t *testing.T) {
	t.Run("star projection without fields", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		stmt, err := c.Find(&querylanguage.FindRequest{Schema: employeesSchema()})
		require.NoError(t, err)
		assert.Equal(t, "SELECT `employees`.* FROM `employees`", stmt.Query)
		assert.Empty(t, stmt.Args)
	})

	t.Run("fields, join, filters, sort, pagination", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		node := jobsNode("title")
		node.Where = []querylanguage.FilterCondition{
			{Column: "department", Op: querylanguage.OpEQ, Value: "engineering"},
		}
		stmt, err := c.Find(&querylanguage.FindRequest{
			Schema:    employeesSchema(),
			Fields:    []string{"id", "name"},
			Where:     []querylanguage.FilterCondition{{Column: "name", Op: querylanguage.OpEQ, Value: "Ada"}},
			Relations: []*querylanguage.RelationNode{node},
			Sort:      []querylanguage.SortCondition{{Column: "name", Direction: querylanguage.Asc}},
			Limit:     10,
			Offset:    5,
		})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT `employees`.`id`, `employees`.`name`, `jobs`.`title` AS `jobs.title` "+
				"FROM `employees` INNER JOIN `jobs` ON `employees`.`job_id` = `jobs`.`id` "+
				"WHERE `employees`.`name` = ? AND `jobs`.`department` = ? "+
				"ORDER BY `employees`.`name` ASC LIMIT ? OFFSET ?",
			stmt.Query)
		assert.Equal(t, []any{"Ada", "engineering", 10, 5}, stmt.Args)
	})

	t.Run("relation without columns projects all of its fields", func(t *testing.T) {
		c := mustCompiler(t, dialect.Postgres)
		stmt, err := c.Find(&querylanguage.FindRequest{
			Schema:    employeesSchema(),
			Fields:    []string{"id"},
			Relations: []*querylanguage.RelationNode{jobsNode()},
		})
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT "employees"."id", "jobs"."id" AS "jobs.id", "jobs"."title" AS "jobs.title", `+
				`"jobs"."department" AS "jobs.department" FROM "employees" `+
				`INNER JOIN "jobs" ON "employees"."job_id" = "jobs"."id"`,
			stmt.Query)
	})

	t.Run("sqlserver pagination needs an order", func(t *testing.T) {
		c := mustCompiler(t, dialect.SQLServer)
		stmt, err := c.Find(&querylanguage.FindRequest{Schema: employeesSchema(), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT [employees].* FROM [employees] ORDER BY (SELECT NULL) "+
				"OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY",
			stmt.Query)
		assert.Equal(t, []any{0, 10}, stmt.Args)
	})

	t.Run("operators", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		stmt, err := c.Find(&querylanguage.FindRequest{
			Schema: employeesSchema(),
			Where: []querylanguage.FilterCondition{
				{Column: "email", Op: querylanguage.OpEQ, Value: nil},
				{Column: "name", Op: querylanguage.OpSearch, Value: "ada"},
				{Column: "id", Op: querylanguage.OpIn, Value: []any{1, 2}},
				{Column: "job_id", Op: querylanguage.OpNotNull},
			},
		})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT `employees`.* FROM `employees` WHERE `employees`.`email` IS NULL "+
				"AND `employees`.`name` LIKE ? AND `employees`.`id` IN (?, ?) "+
				"AND `employees`.`job_id` IS NOT NULL",
			stmt.Query)
		assert.Equal(t, []any{"%ada%", 1, 2}, stmt.Args)
	})
}

func TestCount(t *testing.T) {
	c := mustCompiler(t, dialect.Postgres)
	node := jobsNode("title")
	node.Where = []querylanguage.FilterCondition{
		{Column: "department", Op: querylanguage.OpEQ, Value: "engineering"},
	}
	stmt, err := c.Count(&querylanguage.FindRequest{
		Schema:    employeesSchema(),
		Relations: []*querylanguage.RelationNode{node},
		Sort:      []querylanguage.SortCondition{{Column: "name", Direction: querylanguage.Asc}},
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) FROM "employees" INNER JOIN "jobs" ON "employees"."job_id" = "jobs"."id" `+
			`WHERE "jobs"."department" = $1`,
		stmt.Query)
	assert.Equal(t, []any{"engineering"}, stmt.Args)
}

func TestInsert(t *testing.T) {
	record := map[string]any{"department": "engineering", "title": "Engineer"}

	t.Run("mysql", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		stmt, err := c.Insert(jobsSchema(), record)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `jobs` (`title`, `department`) VALUES (?, ?)", stmt.Query)
		// Catalog order, not map order.
		assert.Equal(t, []any{"Engineer", "engineering"}, stmt.Args)
		assert.False(t, stmt.Returning)
	})

	t.Run("postgres returns the key", func(t *testing.T) {
		c := mustCompiler(t, dialect.Postgres)
		stmt, err := c.Insert(jobsSchema(), record)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "jobs" ("title", "department") VALUES ($1, $2) RETURNING "id"`, stmt.Query)
		assert.True(t, stmt.Returning)
	})

	t.Run("sqlserver output clause", func(t *testing.T) {
		c := mustCompiler(t, dialect.SQLServer)
		stmt, err := c.Insert(jobsSchema(), record)
		require.NoError(t, err)
		assert.Equal(t,
			"INSERT INTO [jobs] ([title], [department]) OUTPUT INSERTED.[id] VALUES (@p1, @p2)",
			stmt.Query)
		assert.True(t, stmt.Returning)
	})

	t.Run("empty record", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		stmt, err := c.Insert(jobsSchema(), nil)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `jobs` () VALUES ()", stmt.Query)

		c = mustCompiler(t, dialect.Postgres)
		stmt, err = c.Insert(jobsSchema(), nil)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "jobs" DEFAULT VALUES RETURNING "id"`, stmt.Query)
	})
}

func TestUpdate(t *testing.T) {
	c := mustCompiler(t, dialect.MySQL)

	t.Run("primary key never in the set list", func(t *testing.T) {
		stmt, err := c.Update(jobsSchema(), 7, map[string]any{"id": 99, "title": "Staff Engineer"})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `jobs` SET `title` = ? WHERE `id` = ?", stmt.Query)
		assert.Equal(t, []any{"Staff Engineer", 7}, stmt.Args)
	})

	t.Run("no fields to set", func(t *testing.T) {
		_, err := c.Update(jobsSchema(), 7, map[string]any{"id": 99})
		assert.Error(t, err)
	})

	t.Run("no primary key", func(t *testing.T) {
		s := &schema.Schema{Table: "logs", Columns: []schema.Column{{Field: "line", Type: schema.TypeString}}}
		_, err := c.Update(s, 1, map[string]any{"line": "x"})
		assert.Error(t, err)
	})
}

func TestDelete(t *testing.T) {
	c := mustCompiler(t, dialect.Postgres)
	stmt, err := c.Delete(jobsSchema(), 7)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "jobs" WHERE "id" = $1`, stmt.Query)
	assert.Equal(t, []any{7}, stmt.Args)
}

func TestUniqueProbe(t *testing.T) {
	c := mustCompiler(t, dialect.MySQL)

	stmt := c.UniqueProbe(employeesSchema(), "email", "ada@example.com", nil)
	assert.Equal(t, "SELECT COUNT(*) FROM `employees` WHERE `email` = ?", stmt.Query)
	assert.Equal(t, []any{"ada@example.com"}, stmt.Args)

	stmt = c.UniqueProbe(employeesSchema(), "email", "ada@example.com", 7)
	assert.Equal(t, "SELECT COUNT(*) FROM `employees` WHERE `email` = ? AND `id` <> ?", stmt.Query)
	assert.Equal(t, []any{"ada@example.com", 7}, stmt.Args)
}

func TestCreateTable(t *testing.T) {
	t.Run("mysql emits an alter per foreign key", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		stmts, err := c.CreateTable(employeesSchema())
		require.NoError(t, err)
		require.Len(t, stmts, 2)
		assert.Equal(t,
			"CREATE TABLE `employees` (`id` INT AUTO_INCREMENT NOT NULL, `name` VARCHAR(255) NOT NULL, "+
				"`email` VARCHAR(255) NULL, `job_id` INT NOT NULL, PRIMARY KEY (`id`))",
			stmts[0].Query)
		assert.Equal(t,
			"ALTER TABLE `employees` ADD CONSTRAINT `fk_employees_job_id` "+
				"FOREIGN KEY (`job_id`) REFERENCES `jobs` (`id`)",
			stmts[1].Query)
	})

	t.Run("sqlite inlines foreign keys", func(t *testing.T) {
		c := mustCompiler(t, dialect.SQLite)
		stmts, err := c.CreateTable(employeesSchema())
		require.NoError(t, err)
		require.Len(t, stmts, 1)
		assert.Equal(t,
			`CREATE TABLE "employees" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" VARCHAR(255) NOT NULL, `+
				`"email" VARCHAR(255) NULL, "job_id" INTEGER NOT NULL, `+
				`FOREIGN KEY ("job_id") REFERENCES "jobs" ("id"))`,
			stmts[0].Query)
	})

	t.Run("mirrored relations compile no constraint", func(t *testing.T) {
		c := mustCompiler(t, dialect.MySQL)
		stmts, err := c.CreateTable(jobsSchema())
		require.NoError(t, err)
		assert.Len(t, stmts, 1)
	})
}

func TestDefaultLiteral(t *testing.T) {
	assert.Equal(t, "'O''Brien'", defaultLiteral("O'Brien"))
	assert.Equal(t, "TRUE", defaultLiteral(true))
	assert.Equal(t, "0", defaultLiteral(0))
}
