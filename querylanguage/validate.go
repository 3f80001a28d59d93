package querylanguage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/restql/schema"
)

// Reserved parameter keys. Keys in this set carry pagination, sorting,
// projection, or relation directives and are never treated as filters.
const (
	ParamFields    = "fields"
	ParamRelations = "relations"
	ParamSort      = "sort"
	ParamLimit     = "limit"
	ParamOffset    = "offset"
)

var reservedParams = map[string]struct{}{
	ParamFields: {}, ParamRelations: {}, ParamSort: {},
	ParamLimit: {}, ParamOffset: {},
}

// Result is the outcome of validating user input. Invalid results are
// returned, not raised: the message is safe to surface to the caller
// verbatim.
type Result struct {
	Valid   bool
	Message string
}

func ok() Result { return Result{Valid: true} }

func invalid(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// FieldsResult carries the outcome of ValidateFields.
type FieldsResult struct {
	Result
	// Fields are the validated non-dotted field names, in input order.
	Fields []string
	// Relations are the join nodes produced by dotted field tokens.
	Relations []*RelationNode
}

// RelationsResult carries the outcome of ValidateRelations.
type RelationsResult struct {
	Result
	Relations []*RelationNode
}

// WhereResult carries the outcome of ValidateWhere.
type WhereResult struct {
	Result
	// Where are the filters addressed at the root table.
	Where []FilterCondition
	// Relations are the join nodes produced by dotted filter keys, merged
	// with any nodes the call was seeded with.
	Relations []*RelationNode
}

// SortResult carries the outcome of ValidateSort.
type SortResult struct {
	Result
	Sort []SortCondition
}

// Validator parses and validates raw query parameters against a table's
// schema. Validation is all-or-nothing: the first offending token aborts
// with a message naming it.
type Validator struct {
	resolver *Resolver
}

// NewValidator returns a Validator resolving relation chains through the
// given loader.
func NewValidator(loader SchemaLoader) *Validator {
	return &Validator{resolver: NewResolver(loader)}
}

// ValidateFields validates a comma-separated field list. Empty tokens are
// skipped; dotted tokens resolve through the relation graph; non-dotted
// tokens must be columns of the root table.
func (v *Validator) ValidateFields(ctx context.Context, s *schema.Schema, csv string) (FieldsResult, error) {
	res := FieldsResult{Result: ok()}
	g := NewGraph()
	for _, tok := range splitCSV(csv) {
		if !strings.Contains(tok, ".") {
			if !s.HasColumn(tok) {
				res.Result = invalid("unknown field %q on table %q", tok, s.Table)
				return res, nil
			}
			res.Fields = append(res.Fields, tok)
			continue
		}
		if err := v.resolver.Field(ctx, s, tok, g); err != nil {
			if IsUserError(err) {
				res.Result = invalid("%s", err.Error())
				return res, nil
			}
			return res, err
		}
	}
	res.Relations = g.Nodes()
	return res, nil
}

// ValidateRelations validates a comma-separated relation list, dotted for
// transitive relations. Each top-level token must name a relation of the
// root table. Tokens already present in existing are merged, not
// duplicated. Sibling chains resolve concurrently; results merge in input
// order.
func (v *Validator) ValidateRelations(ctx context.Context, s *schema.Schema, csv string, existing []*RelationNode) (RelationsResult, error) {
	res := RelationsResult{Result: ok()}
	tokens := splitCSV(csv)
	g := Seed(existing)
	// Validate top-level hops up front so user errors surface before any
	// catalog round-trip.
	for _, tok := range tokens {
		head, _, _ := strings.Cut(tok, ".")
		if _, found := s.Relation(head); !found {
			res.Result = invalid("unknown relation %q on table %q", head, s.Table)
			return res, nil
		}
	}
	// Sibling chains are independent: each resolves into its own graph,
	// then merges deterministically in token order.
	graphs := make([]*Graph, len(tokens))
	eg, gctx := errgroup.WithContext(ctx)
	for i, tok := range tokens {
		i, tok := i, tok
		graphs[i] = NewGraph()
		eg.Go(func() error {
			return v.resolver.Relation(gctx, s, tok, graphs[i])
		})
	}
	if err := eg.Wait(); err != nil {
		if IsUserError(err) {
			res.Result = invalid("%s", err.Error())
			return res, nil
		}
		return res, err
	}
	for _, sub := range graphs {
		g.merge(sub)
	}
	res.Relations = g.Nodes()
	return res, nil
}

// ValidateWhere validates filter parameters. Reserved keys are skipped.
// A bare value implies the equals operator; a map value's single key names
// the operator. Dotted keys address related tables and attach their
// conditions to the join graph, merged with the seeded nodes.
func (v *Validator) ValidateWhere(ctx context.Context, s *schema.Schema, params map[string]any, existing []*RelationNode) (WhereResult, error) {
	res := WhereResult{Result: ok()}
	g := Seed(existing)
	for _, key := range sortedKeys(params) {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		op, value, vr := parseCondition(params[key])
		if !vr.Valid {
			res.Result = invalid("filter %q: %s", key, vr.Message)
			return res, nil
		}
		if strings.Contains(key, ".") {
			cond := FilterCondition{Column: key, Op: op, Value: value}
			if err := v.resolver.Filter(ctx, s, cond, g); err != nil {
				if IsUserError(err) {
					res.Result = invalid("%s", err.Error())
					return res, nil
				}
				return res, err
			}
			continue
		}
		col, found := s.Column(key)
		if !found {
			res.Result = invalid("unknown column %q on table %q", key, s.Table)
			return res, nil
		}
		if !op.Valueless() {
			if err := conform(col.Type, op, value); err != nil {
				res.Result = invalid("invalid value for %q on table %q: %v", key, s.Table, err)
				return res, nil
			}
		}
		res.Where = append(res.Where, FilterCondition{Column: key, Op: op, Value: value})
	}
	res.Relations = g.Nodes()
	return res, nil
}

// parseCondition extracts the operator and operand from a raw filter
// value. Bare values imply equals. A map carries exactly one operator key;
// an empty map defaults to equals with a nil operand.
func parseCondition(raw any) (Op, any, Result) {
	m, isMap := raw.(map[string]any)
	if !isMap {
		return OpEQ, raw, ok()
	}
	if len(m) == 0 {
		return OpEQ, nil, ok()
	}
	if len(m) > 1 {
		return "", nil, invalid("expected a single operator, got %d", len(m))
	}
	var name string
	var value any
	for k, v := range m {
		name, value = k, v
	}
	op, known := ParseOp(name)
	if !known {
		return "", nil, invalid("unknown operator %q", name)
	}
	if op.Valueless() {
		value = nil
	}
	return op, value, ok()
}

// ValidateSort validates a comma-separated sort list of column.direction
// tokens. The direction is located by the last dot in the token, so
// dotted (relation) columns are excluded here by construction: a token
// whose column part still contains a dot is skipped without error.
func (v *Validator) ValidateSort(s *schema.Schema, csv string) SortResult {
	res := SortResult{Result: ok()}
	for _, tok := range splitCSV(csv) {
		i := strings.LastIndex(tok, ".")
		if i < 0 {
			res.Result = invalid("sort token %q is missing a direction", tok)
			return res
		}
		column, direction := tok[:i], strings.ToLower(tok[i+1:])
		if strings.Contains(column, ".") {
			continue
		}
		if direction != "asc" && direction != "desc" {
			res.Result = invalid("sort token %q has an invalid direction %q", tok, direction)
			return res
		}
		if !s.HasColumn(column) {
			res.Result = invalid("unknown sort column %q on table %q", column, s.Table)
			return res
		}
		res.Sort = append(res.Sort, SortCondition{
			Column:    column,
			Direction: Direction(strings.ToUpper(direction)),
		})
	}
	return res
}

// conform checks a filter operand against the column type. The in
// operator carries a list; each element conforms individually.
func conform(t schema.Type, op Op, value any) error {
	if op != OpIn {
		return t.Conform(value)
	}
	switch vs := value.(type) {
	case []any:
		for _, v := range vs {
			if err := t.Conform(v); err != nil {
				return err
			}
		}
		return nil
	case []string:
		for _, v := range vs {
			if err := t.Conform(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return t.Conform(value)
	}
}

// splitCSV splits a comma-separated list, trimming whitespace and
// skipping empty tokens.
func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	tokens := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// sortedKeys returns the map keys in lexical order so validation output
// and compiled SQL are deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
