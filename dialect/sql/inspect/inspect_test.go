package inspect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/schema"
)

func mockInspector(t *testing.T) (*Inspector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewInspector(sqldrv.OpenDB(dialect.MySQL, db)), mock
}

func TestMySQLSchema(t *testing.T) {
	insp, mock := mockInspector(t)

	mock.ExpectQuery(mysqlColumnsQuery).WithArgs("employees").WillReturnRows(
		sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "COLUMN_KEY", "EXTRA"}).
			AddRow("id", "int(11)", "NO", nil, "PRI", "auto_increment").
			AddRow("name", "varchar(255)", "NO", nil, "", "").
			AddRow("email", "varchar(255)", "YES", nil, "UNI", "").
			AddRow("status", "enum('active','left')", "NO", "active", "", "").
			AddRow("job_id", "int(11)", "NO", nil, "MUL", ""),
	)
	mock.ExpectQuery(mysqlForwardFKQuery).WithArgs("employees").WillReturnRows(
		sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME"}).
			AddRow("job_id", "jobs", "id"),
	)
	mock.ExpectQuery(mysqlReverseFKQuery).WithArgs("employees").WillReturnRows(
		sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "REFERENCED_COLUMN_NAME"}).
			AddRow("badges", "employee_id", "id"),
	)

	s, err := insp.Schema(context.Background(), "employees")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "employees", s.Table)
	assert.Equal(t, "id", s.PrimaryKey)

	id, ok := s.Column("id")
	require.True(t, ok)
	assert.Equal(t, schema.TypeNumber, id.Type)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.Required)

	email, ok := s.Column("email")
	require.True(t, ok)
	assert.True(t, email.Unique)
	assert.True(t, email.Nullable)
	assert.False(t, email.Required)

	status, ok := s.Column("status")
	require.True(t, ok)
	assert.Equal(t, schema.TypeEnum, status.Type)
	assert.Equal(t, []string{"active", "left"}, status.EnumValues)
	assert.Equal(t, "active", status.Default)

	jobID, ok := s.Column("job_id")
	require.True(t, ok)
	assert.True(t, jobID.ForeignKey)

	require.Len(t, s.Relations, 2)
	assert.Equal(t, schema.Relation{Table: "jobs", Column: "job_id", OrgTable: "jobs", OrgColumn: "id"}, s.Relations[0])
	assert.Equal(t, schema.Relation{Table: "badges", Column: "id", OrgTable: "badges", OrgColumn: "employee_id"}, s.Relations[1])
}

func TestSchemaNotFound(t *testing.T) {
	insp, mock := mockInspector(t)

	empty := sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "COLUMN_KEY", "EXTRA"})
	mock.ExpectQuery(mysqlColumnsQuery).WithArgs("ghosts").WillReturnRows(empty)
	mock.ExpectQuery(mysqlForwardFKQuery).WithArgs("ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME"}))
	mock.ExpectQuery(mysqlReverseFKQuery).WithArgs("ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "REFERENCED_COLUMN_NAME"}))

	_, err := insp.Schema(context.Background(), "ghosts")
	require.Error(t, err)
	assert.True(t, schema.IsNotFound(err))
}

func TestSchemaRejectsInvalidTableName(t *testing.T) {
	insp, mock := mockInspector(t)
	_, err := insp.Schema(context.Background(), "employees; DROP TABLE employees")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompositeKeyKeepsFirstMember(t *testing.T) {
	s := &schema.Schema{
		Table: "memberships",
		Columns: []schema.Column{
			{Field: "user_id", Type: schema.TypeNumber, PrimaryKey: true},
			{Field: "group_id", Type: schema.TypeNumber, PrimaryKey: true},
		},
	}
	got, err := finish(s)
	require.NoError(t, err)
	assert.Equal(t, "user_id", got.PrimaryKey)
	groupID, _ := got.Column("group_id")
	assert.False(t, groupID.PrimaryKey)
}

func TestParseMySQLEnum(t *testing.T) {
	assert.Equal(t, []string{"draft", "published"}, parseMySQLEnum("enum('draft','published')"))
	assert.Nil(t, parseMySQLEnum("varchar(255)"))
}
