package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restql/dialect"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		dialect string
		native  string
		want    Type
	}{
		{dialect.MySQL, "int(11)", TypeNumber},
		{dialect.MySQL, "bigint unsigned", TypeNumber},
		{dialect.MySQL, "varchar(255)", TypeString},
		{dialect.MySQL, "tinyint(1)", TypeBool},
		{dialect.MySQL, "tinyint(4)", TypeNumber},
		{dialect.MySQL, "datetime", TypeDate},
		{dialect.MySQL, "enum('draft','published')", TypeEnum},
		{dialect.MySQL, "json", TypeJSON},
		{dialect.MySQL, "geometry", TypeUnknown},
		{dialect.Postgres, "integer", TypeNumber},
		{dialect.Postgres, "character varying", TypeString},
		{dialect.Postgres, "timestamp without time zone", TypeDate},
		{dialect.Postgres, "jsonb", TypeJSON},
		{dialect.Postgres, "USER-DEFINED", TypeEnum},
		{dialect.SQLite, "INTEGER", TypeNumber},
		{dialect.SQLite, "VARCHAR(80)", TypeString},
		{dialect.SQLite, "BOOLEAN", TypeBool},
		{dialect.SQLServer, "nvarchar", TypeString},
		{dialect.SQLServer, "bit", TypeBool},
		{dialect.SQLServer, "datetime2", TypeDate},
		{"oracle", "number", TypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeOf(tt.dialect, tt.native), "%s %s", tt.dialect, tt.native)
	}
}

func TestConform(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		value   any
		wantErr bool
	}{
		{"number int", TypeNumber, 42, false},
		{"number float", TypeNumber, 3.14, false},
		{"number numeric string", TypeNumber, "42", false},
		{"number junk string", TypeNumber, "forty-two", true},
		{"number bool", TypeNumber, true, true},
		{"string", TypeString, "hello", false},
		{"string int", TypeString, 7, true},
		{"bool", TypeBool, true, false},
		{"bool int", TypeBool, 1, false},
		{"bool string", TypeBool, "true", false},
		{"bool junk", TypeBool, "maybe", true},
		{"date time", TypeDate, time.Now(), false},
		{"date rfc3339", TypeDate, "2026-08-26T10:00:00Z", false},
		{"date plain", TypeDate, "2026-08-26", false},
		{"date junk", TypeDate, "yesterday", true},
		{"json object", TypeJSON, map[string]any{"a": 1}, false},
		{"json string", TypeJSON, `{"a":1}`, false},
		{"json invalid string", TypeJSON, `{"a":`, true},
		{"unknown anything", TypeUnknown, struct{}{}, false},
		{"nil always", TypeNumber, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Conform(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("null on required column", func(t *testing.T) {
		col := &Column{Field: "name", Type: TypeString}
		err := Validate(col, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be null")
	})
	t.Run("null on nullable column", func(t *testing.T) {
		col := &Column{Field: "bio", Type: TypeString, Nullable: true}
		assert.NoError(t, Validate(col, nil))
	})
	t.Run("enum membership", func(t *testing.T) {
		col := &Column{Field: "status", Type: TypeEnum, EnumValues: []string{"draft", "published"}}
		assert.NoError(t, Validate(col, "draft"))
		err := Validate(col, "archived")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not one of")
	})
	t.Run("type mismatch names the field", func(t *testing.T) {
		col := &Column{Field: "age", Type: TypeNumber}
		err := Validate(col, "old")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"age"`)
	})
}

func TestSchemaLookups(t *testing.T) {
	s := &Schema{
		Table:      "employees",
		PrimaryKey: "id",
		Columns: []Column{
			{Field: "id", Type: TypeNumber, PrimaryKey: true},
			{Field: "email", Type: TypeString, Unique: true},
			{Field: "job_id", Type: TypeNumber, ForeignKey: true},
		},
		Relations: []Relation{
			{Table: "jobs", Column: "job_id", OrgTable: "jobs", OrgColumn: "id"},
		},
	}
	col, ok := s.Column("email")
	require.True(t, ok)
	assert.True(t, col.Unique)
	_, ok = s.Column("missing")
	assert.False(t, ok)

	rel, ok := s.Relation("jobs")
	require.True(t, ok)
	assert.Equal(t, "job_id", rel.Column)
	_, ok = s.Relation("departments")
	assert.False(t, ok)

	assert.Equal(t, []string{"id", "email", "job_id"}, s.Fields())

	uniques := s.UniqueColumns()
	require.Len(t, uniques, 1)
	assert.Equal(t, "email", uniques[0].Field)
}

func TestParseEnumFromJSONRoundTrip(t *testing.T) {
	var typ Type
	require.NoError(t, typ.UnmarshalJSON([]byte(`"boolean"`)))
	assert.Equal(t, TypeBool, typ)
	raw, err := TypeDate.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"date"`, string(raw))
}
