package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// sqlstateError mimics pgx's error shape, which exposes the SQLSTATE
// through a method instead of a field.
type sqlstateError struct {
	state string
}

func (e *sqlstateError) Error() string    { return "SQLSTATE " + e.state }
func (e *sqlstateError) SQLState() string { return e.state }

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "mysql duplicate entry",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada@example.com' for key 'employees.email'"},
			want: true,
		},
		{
			name: "postgres unique violation",
			err:  &pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "employees_email_key"`},
			want: true,
		},
		{
			name: "pgx-style sqlstate",
			err:  &sqlstateError{state: "23505"},
			want: true,
		},
		{
			name: "sqlite unique",
			err:  errors.New("constraint failed: UNIQUE constraint failed: employees.email (2067)"),
			want: true,
		},
		{
			name: "sqlserver unique",
			err:  errors.New("mssql: Violation of UNIQUE KEY constraint 'UQ_employees_email'"),
			want: true,
		},
		{
			name: "wrapped driver error",
			err:  fmt.Errorf("exec insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}),
			want: true,
		},
		{
			name: "mysql foreign key is not unique",
			err:  &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueConstraintError(tt.err))
		})
	}
}

func TestIsForeignKeyConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "mysql child row",
			err:  &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails"},
			want: true,
		},
		{
			name: "mysql parent row",
			err:  &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row: a foreign key constraint fails"},
			want: true,
		},
		{
			name: "postgres fk violation",
			err:  &pq.Error{Code: "23503", Message: `insert or update on table "employees" violates foreign key constraint "fk_employees_job_id"`},
			want: true,
		},
		{
			name: "pgx-style sqlstate",
			err:  &sqlstateError{state: "23503"},
			want: true,
		},
		{
			name: "sqlite fk",
			err:  errors.New("constraint failed: FOREIGN KEY constraint failed (787)"),
			want: true,
		},
		{
			name: "unique is not a foreign key",
			err:  &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"},
			want: false,
		},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsForeignKeyConstraintError(tt.err))
		})
	}
}

func TestIsConstraintError(t *testing.T) {
	assert.True(t, IsConstraintError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsConstraintError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"}))
	assert.False(t, IsConstraintError(errors.New("syntax error")))
}
