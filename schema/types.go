package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Type is the canonical, engine-agnostic classification of a column type.
type Type int

// Canonical column types.
const (
	TypeUnknown Type = iota
	TypeNumber
	TypeString
	TypeBool
	TypeDate
	TypeJSON
	TypeEnum
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeNumber:  "number",
	TypeString:  "string",
	TypeBool:    "boolean",
	TypeDate:    "date",
	TypeJSON:    "json",
	TypeEnum:    "enum",
}

// String returns the lowercase name of the type.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[TypeUnknown]
	}
	return typeNames[t]
}

// MarshalJSON renders the type as its string name.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a type from its string name.
func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, name := range typeNames {
		if name == s {
			*t = Type(i)
			return nil
		}
	}
	*t = TypeUnknown
	return nil
}

// DateLayouts are the accepted textual date formats, tried in order.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// conformers maps each canonical type to its value conformance check.
// Validation is data-driven: one pure function per type, applied per field.
var conformers = map[Type]func(any) error{
	TypeUnknown: func(any) error { return nil },
	TypeNumber:  conformNumber,
	TypeString:  conformString,
	TypeBool:    conformBool,
	TypeDate:    conformDate,
	TypeJSON:    conformJSON,
	TypeEnum:    conformString,
}

// Conform reports whether v is an acceptable value for the type. nil is
// always acceptable here; nullability is checked separately against the
// owning column.
func (t Type) Conform(v any) error {
	if v == nil {
		return nil
	}
	check, ok := conformers[t]
	if !ok {
		return nil
	}
	return check(v)
}

// Validate checks v against the column's canonical type, nullability, and,
// for enum columns, the allowed value set.
func Validate(col *Column, v any) error {
	if v == nil {
		if !col.Nullable {
			return fmt.Errorf("field %q must not be null", col.Field)
		}
		return nil
	}
	if err := col.Type.Conform(v); err != nil {
		return fmt.Errorf("field %q: %w", col.Field, err)
	}
	if col.Type == TypeEnum && len(col.EnumValues) > 0 {
		s, _ := v.(string)
		for _, allowed := range col.EnumValues {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("field %q: value %q is not one of %v", col.Field, s, col.EnumValues)
	}
	return nil
}

func conformNumber(v any) error {
	switch n := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case json.Number:
		if _, err := n.Float64(); err != nil {
			return fmt.Errorf("expected a number, got %q", n.String())
		}
		return nil
	case string:
		if _, err := strconv.ParseFloat(n, 64); err != nil {
			return fmt.Errorf("expected a number, got %q", n)
		}
		return nil
	default:
		return fmt.Errorf("expected a number, got %T", v)
	}
}

func conformString(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("expected a string, got %T", v)
	}
	return nil
}

func conformBool(v any) error {
	switch b := v.(type) {
	case bool:
		return nil
	case int, int64, float64:
		return nil
	case string:
		if _, err := strconv.ParseBool(b); err != nil {
			return fmt.Errorf("expected a boolean, got %q", b)
		}
		return nil
	default:
		return fmt.Errorf("expected a boolean, got %T", v)
	}
}

func conformDate(v any) error {
	switch d := v.(type) {
	case time.Time:
		return nil
	case string:
		for _, layout := range DateLayouts {
			if _, err := time.Parse(layout, d); err == nil {
				return nil
			}
		}
		return fmt.Errorf("expected a date, got %q", d)
	default:
		return fmt.Errorf("expected a date, got %T", v)
	}
}

func conformJSON(v any) error {
	switch j := v.(type) {
	case map[string]any, []any, json.RawMessage:
		return nil
	case string:
		if !json.Valid([]byte(j)) {
			return fmt.Errorf("expected valid JSON, got %q", j)
		}
		return nil
	default:
		// Anything marshalable is acceptable for a JSON column.
		if _, err := json.Marshal(v); err != nil {
			return fmt.Errorf("expected a JSON value, got %T", v)
		}
		return nil
	}
}
