package restql

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/syssam/restql/querylanguage"
	"github.com/syssam/restql/schema"
)

// Record is one response row after reshaping: root columns at the top
// level, joined columns nested under their relation key.
type Record = map[string]any

// reshaper un-flattens joined rows and coerces driver values to their
// canonical types. A column that belongs to no known schema aborts the
// whole response: partially-coerced data never leaves the orchestrator.
type reshaper struct {
	root      *schema.Schema
	relations map[string]*schema.Schema
}

func newReshaper(root *schema.Schema, nodes []*querylanguage.RelationNode) *reshaper {
	r := &reshaper{root: root, relations: make(map[string]*schema.Schema, len(nodes))}
	for _, n := range nodes {
		r.relations[n.Table] = n.Schema
	}
	return r
}

// Reshape converts flat scanned rows into nested records. Keys carrying a
// "table.field" alias nest under the relation key; plain keys stay at the
// top level.
func (r *reshaper) Reshape(rows []map[string]any) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := r.reshapeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *reshaper) reshapeRow(row map[string]any) (Record, error) {
	rec := make(Record, len(row))
	for key, value := range row {
		table, field, nested := strings.Cut(key, ".")
		if !nested {
			col, found := r.root.Column(key)
			if !found {
				return nil, &ReshapeError{Table: r.root.Table, Field: key, Err: fmt.Errorf("column not in schema")}
			}
			rec[key] = coerce(col, value)
			continue
		}
		rel, found := r.relations[table]
		if !found {
			return nil, &ReshapeError{Table: r.root.Table, Field: key, Err: fmt.Errorf("no joined relation %q", table)}
		}
		col, found := rel.Column(field)
		if !found {
			return nil, &ReshapeError{Table: table, Field: field, Err: fmt.Errorf("column not in schema")}
		}
		sub, ok := rec[table].(Record)
		if !ok {
			sub = make(Record)
			rec[table] = sub
		}
		sub[field] = coerce(col, value)
	}
	return rec, nil
}

// coerce normalizes a driver value to the column's canonical type.
// Drivers disagree on byte slices versus strings and on integers versus
// booleans; the response shape should not.
func coerce(col *schema.Column, v any) any {
	if b, isBytes := v.([]byte); isBytes {
		v = string(b)
	}
	switch col.Type {
	case schema.TypeBool:
		switch d := v.(type) {
		case bool:
			return d
		case int64:
			return d != 0
		case int:
			return d != 0
		case string:
			return d == "1" || strings.EqualFold(d, "true")
		}
	case schema.TypeDate:
		if t, isTime := v.(time.Time); isTime {
			return t.Format(time.RFC3339)
		}
	case schema.TypeJSON:
		if s, isString := v.(string); isString && s != "" {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	}
	return v
}
