package restql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/restql/dialect"
	"github.com/syssam/restql/schema"
)

// These tests run the full stack against a real SQLite database: DDL from
// Migrate, catalog introspection, compiled statements, and reshaping, with
// no mocks in between.

func sqliteClient(t *testing.T) *Client {
	t.Helper()
	cfg := &Config{
		Dialect:      dialect.SQLite,
		DSN:          filepath.Join(t.TempDir(), "restql.db"),
		DefaultLimit: 10,
	}
	client, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	jobs := &schema.Schema{
		Table:      "jobs",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Field: "id", Type: schema.TypeNumber, PrimaryKey: true},
			{Field: "title", Type: schema.TypeString, Required: true},
			{Field: "department", Type: schema.TypeString, Required: true},
		},
	}
	employees := &schema.Schema{
		Table:      "employees",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Field: "id", Type: schema.TypeNumber, PrimaryKey: true},
			{Field: "name", Type: schema.TypeString, Required: true},
			{Field: "email", Type: schema.TypeString, Nullable: true},
			{Field: "active", Type: schema.TypeBool, Nullable: true},
			{Field: "job_id", Type: schema.TypeNumber, ForeignKey: true, Required: true},
		},
		Relations: []schema.Relation{
			{Table: "jobs", Column: "job_id", OrgTable: "jobs", OrgColumn: "id"},
		},
	}
	require.NoError(t, client.Migrate(context.Background(), jobs, employees))
	return client
}

func TestSQLiteIntrospection(t *testing.T) {
	client := sqliteClient(t)
	ctx := context.Background()

	s, err := client.Schema(ctx, "employees")
	require.NoError(t, err)
	assert.Equal(t, "id", s.PrimaryKey)

	name, ok := s.Column("name")
	require.True(t, ok)
	assert.Equal(t, schema.TypeString, name.Type)
	assert.True(t, name.Required)

	email, ok := s.Column("email")
	require.True(t, ok)
	assert.True(t, email.Nullable)

	active, ok := s.Column("active")
	require.True(t, ok)
	assert.Equal(t, schema.TypeBool, active.Type)

	jobID, ok := s.Column("job_id")
	require.True(t, ok)
	assert.True(t, jobID.ForeignKey)
	rel, ok := s.Relation("jobs")
	require.True(t, ok)
	assert.Equal(t, "job_id", rel.Column)

	// The referenced table carries the mirror of the same edge.
	jobs, err := client.Schema(ctx, "jobs")
	require.NoError(t, err)
	mirror, ok := jobs.Relation("employees")
	require.True(t, ok)
	assert.Equal(t, "id", mirror.Column)
	assert.Equal(t, "job_id", mirror.OrgColumn)

	_, err = client.Schema(ctx, "ghosts")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLiteRoundTrip(t *testing.T) {
	client := sqliteClient(t)
	ctx := context.Background()

	job, err := client.CreateOne(ctx, "jobs", map[string]any{
		"title": "Backend Engineer", "department": "engineering",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), job["id"])
	assert.Equal(t, "Backend Engineer", job["title"])

	created, err := client.CreateOne(ctx, "employees", map[string]any{
		"name":   "Ada",
		"email":  "ada@example.com",
		"active": true,
		"job_id": int64(1),
	})
	require.NoError(t, err)

	// Every written field comes back as stored, coerced to its canonical
	// type: the engine keeps booleans as integers.
	got, err := client.FindOne(ctx, "employees", created["id"], FindParams{})
	require.NoError(t, err)
	assert.Equal(t, created["id"], got["id"])
	assert.Equal(t, "Ada", got["name"])
	assert.Equal(t, "ada@example.com", got["email"])
	assert.Equal(t, true, got["active"])
	assert.Equal(t, int64(1), got["job_id"])
}

func TestSQLiteJoinQuery(t *testing.T) {
	client := sqliteClient(t)
	ctx := context.Background()

	seed := []struct {
		table  string
		record map[string]any
	}{
		{"jobs", map[string]any{"title": "Backend Engineer", "department": "engineering"}},
		{"jobs", map[string]any{"title": "Accountant", "department": "finance"}},
		{"employees", map[string]any{"name": "Grace", "job_id": int64(1)}},
		{"employees", map[string]any{"name": "Ada", "job_id": int64(1)}},
		{"employees", map[string]any{"name": "Luca", "job_id": int64(2)}},
	}
	for _, s := range seed {
		_, err := client.CreateOne(ctx, s.table, s.record)
		require.NoError(t, err)
	}

	page, err := client.FindMany(ctx, "employees", FindParams{
		Fields:    "id,name",
		Relations: "jobs",
		Where:     map[string]any{"jobs.department": "engineering"},
		Sort:      "name.asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Ada", page.Data[0]["name"])
	assert.Equal(t, "Grace", page.Data[1]["name"])
	job, ok := page.Data[0]["jobs"].(Record)
	require.True(t, ok)
	assert.Equal(t, "Backend Engineer", job["title"])
}

func TestSQLiteUpdateDelete(t *testing.T) {
	client := sqliteClient(t)
	ctx := context.Background()

	_, err := client.CreateOne(ctx, "jobs", map[string]any{
		"title": "Backend Engineer", "department": "engineering",
	})
	require.NoError(t, err)
	created, err := client.CreateOne(ctx, "employees", map[string]any{
		"name": "Ada", "job_id": int64(1),
	})
	require.NoError(t, err)

	updated, err := client.UpdateOne(ctx, "employees", created["id"], map[string]any{
		"name": "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated["name"])

	n, err := client.Count(ctx, "employees", FindParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := client.DeleteOne(ctx, "employees", created["id"])
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = client.FindOne(ctx, "employees", created["id"], FindParams{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
