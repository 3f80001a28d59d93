// Package querylanguage turns raw, already-tokenized query parameters
// (field lists, filter expressions, sort expressions, relation lists) into
// a validated, typed FindRequest ready for SQL compilation.
//
// Dotted paths such as "customer.address.city" address fields through one
// or more relation hops. The Resolver walks these chains against the
// introspected schema, fetching intermediate schemas on demand through a
// SchemaLoader, and accumulates a join graph in which each related table
// appears exactly once regardless of how many of its fields or filters
// were requested.
package querylanguage

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/restql/schema"
)

// Op is a filter comparison operator.
type Op string

// Filter operators accepted in query parameters.
const (
	OpEQ      Op = "equals"
	OpNEQ     Op = "not_equals"
	OpGT      Op = "gt"
	OpGTE     Op = "gte"
	OpLT      Op = "lt"
	OpLTE     Op = "lte"
	OpSearch  Op = "search"
	OpIn      Op = "in"
	OpIsNull  Op = "null"
	OpNotNull Op = "not_null"
)

var ops = map[Op]struct{}{
	OpEQ: {}, OpNEQ: {}, OpGT: {}, OpGTE: {}, OpLT: {}, OpLTE: {},
	OpSearch: {}, OpIn: {}, OpIsNull: {}, OpNotNull: {},
}

// ParseOp parses an operator token. The empty token defaults to OpEQ.
func ParseOp(s string) (Op, bool) {
	if s == "" {
		return OpEQ, true
	}
	op := Op(strings.ToLower(s))
	_, ok := ops[op]
	return op, ok
}

// Valueless reports whether the operator carries no operand.
func (o Op) Valueless() bool {
	return o == OpIsNull || o == OpNotNull
}

// FilterCondition is a single validated filter clause.
type FilterCondition struct {
	Column string
	Op     Op
	Value  any
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortCondition is a single validated sort clause.
type SortCondition struct {
	Column    string
	Direction Direction
}

// JoinKind is the join type of a JoinSpec. Only inner joins are supported.
type JoinKind int

// InnerJoin is the only supported join kind.
const InnerJoin JoinKind = iota

// JoinSpec describes how a related table joins to its parent:
// INNER JOIN <table> ON <ParentTable>.<ParentColumn> = <table>.<Column>.
type JoinSpec struct {
	Kind         JoinKind
	ParentTable  string
	ParentColumn string
	Column       string
}

// RelationNode is one joined table in a FindRequest. It is owned
// exclusively by the request that created it and never shared or cached.
type RelationNode struct {
	Table  string
	Schema *schema.Schema
	Join   JoinSpec
	// Columns restricts the projection of the related table. Empty means
	// all of the related table's columns.
	Columns []string
	// Where holds filters addressed at the related table.
	Where []FilterCondition
}

// addColumn appends a projected column, skipping duplicates.
func (n *RelationNode) addColumn(field string) {
	for _, c := range n.Columns {
		if c == field {
			return
		}
	}
	n.Columns = append(n.Columns, field)
}

// FindRequest is the validated, typed representation of a read query
// before SQL compilation. It is constructed fresh per call and never
// mutated concurrently.
type FindRequest struct {
	Schema    *schema.Schema
	Fields    []string
	Where     []FilterCondition
	Relations []*RelationNode
	Sort      []SortCondition
	Limit     int
	Offset    int
}

// SchemaLoader fetches the introspected schema of a table. It is
// implemented by dialect/sql/inspect.Inspector and by caching decorators.
type SchemaLoader interface {
	Schema(ctx context.Context, table string) (*schema.Schema, error)
}

// RelationError is a hard failure raised when a dotted path names a
// relation hop absent from the owning table's schema. It indicates a
// malformed path deeper in the call chain than user input, not a
// recoverable validation result.
type RelationError struct {
	Table string // owning table
	Hop   string // missing relation
}

// Error implements the error interface.
func (e *RelationError) Error() string {
	return fmt.Sprintf("querylanguage: table %q has no relation %q", e.Table, e.Hop)
}

// UnknownColumnError reports a field token that does not exist on its
// table. It is user-correctable and mapped to an invalid Result by the
// validator.
type UnknownColumnError struct {
	Table  string
	Column string
}

// Error implements the error interface.
func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown field %q on table %q", e.Column, e.Table)
}

// TypeMismatchError reports a filter value that does not conform to its
// column's canonical type. It is user-correctable, like UnknownColumnError.
type TypeMismatchError struct {
	Table  string
	Column string
	Err    error
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("invalid value for %q on table %q: %v", e.Column, e.Table, e.Err)
}

// Unwrap returns the underlying conformance error.
func (e *TypeMismatchError) Unwrap() error { return e.Err }
