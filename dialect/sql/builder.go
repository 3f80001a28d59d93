package sql

import (
	"strings"
)

// Builder is a low-level statement builder parameterized by dialect
// features. It quotes identifiers, renders bind placeholders in the
// dialect's style, and collects the positional argument values. Every
// value-bearing clause binds through a real placeholder; values are never
// spliced into the statement text.
type Builder struct {
	feat features
	sb   strings.Builder
	args []any
}

// Dialect returns a new Builder for the given dialect. It panics on an
// unsupported dialect name; use featuresOf via NewCompiler for a checked
// entry point.
func Dialect(name string) *Builder {
	f, err := featuresOf(name)
	if err != nil {
		panic(err)
	}
	return &Builder{feat: f}
}

func newBuilder(f features) *Builder { return &Builder{feat: f} }

// WriteString appends raw SQL text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder {
	b.sb.WriteByte(' ')
	return b
}

// Comma appends a comma separator.
func (b *Builder) Comma() *Builder {
	b.sb.WriteString(", ")
	return b
}

// Ident appends a quoted identifier. Dotted identifiers quote each part:
// employee.name renders as "employee"."name".
func (b *Builder) Ident(ident string) *Builder {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		if i > 0 {
			b.sb.WriteByte('.')
		}
		b.quote(p)
	}
	return b
}

// QualifiedIdent appends table.column with both parts quoted.
func (b *Builder) QualifiedIdent(table, column string) *Builder {
	b.quote(table)
	b.sb.WriteByte('.')
	b.quote(column)
	return b
}

// Alias appends a quoted alias verbatim, without splitting on dots.
// Relation columns alias as "relationTable.field" in a single identifier.
func (b *Builder) Alias(alias string) *Builder {
	b.quote(alias)
	return b
}

func (b *Builder) quote(ident string) {
	b.sb.WriteByte(b.feat.quoteOpen)
	b.sb.WriteString(ident)
	b.sb.WriteByte(b.feat.quoteClose)
}

// Arg appends a bind placeholder and records its value.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	b.sb.WriteString(b.feat.placeholder(len(b.args)))
	return b
}

// Args appends a comma-separated placeholder list for the given values.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(v)
	}
	return b
}

// Limit appends the dialect's pagination clause. For the OFFSET/FETCH
// style an ORDER BY clause must already be present; callers without one
// use OrderByNull first.
func (b *Builder) Limit(limit, offset int) *Builder {
	switch b.feat.pagination {
	case offsetFetch:
		b.Pad().WriteString("OFFSET ").Arg(offset).WriteString(" ROWS")
		b.WriteString(" FETCH NEXT ").Arg(limit).WriteString(" ROWS ONLY")
	default:
		b.Pad().WriteString("LIMIT ").Arg(limit)
		if offset > 0 {
			b.WriteString(" OFFSET ").Arg(offset)
		}
	}
	return b
}

// OrderByNull appends the neutral ORDER BY required before OFFSET/FETCH
// when the request carries no sort of its own.
func (b *Builder) OrderByNull() *Builder {
	b.Pad().WriteString("ORDER BY (SELECT NULL)")
	return b
}

// String returns the statement text built so far.
func (b *Builder) String() string { return b.sb.String() }

// Query returns the statement text and its positional arguments.
func (b *Builder) Query() (string, []any) { return b.sb.String(), b.args }
