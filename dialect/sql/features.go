package sql

import (
	"fmt"
	"strconv"

	"github.com/syssam/restql/dialect"
)

// paginationStyle selects the dialect's row-limiting syntax.
type paginationStyle int

const (
	// limitOffset emits LIMIT n OFFSET m.
	limitOffset paginationStyle = iota
	// offsetFetch emits OFFSET m ROWS FETCH NEXT n ROWS ONLY.
	offsetFetch
)

// features captures every dialect quirk the generic compiler needs:
// identifier quoting, bind-parameter style, pagination syntax, identity
// column syntax, and whether INSERT can return the generated key inline.
// Dialect differences live in this table, not in per-dialect compilers.
type features struct {
	quoteOpen  byte
	quoteClose byte
	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string
	pagination  paginationStyle
	// identity is the column suffix making an integer primary key
	// auto-generated.
	identity string
	// returning reports whether INSERT … RETURNING (or OUTPUT) is
	// available for reading back the generated key.
	returning bool
	// reserved holds identifiers that must always be quoted; all
	// identifiers are quoted regardless, the set is kept for
	// documentation and for callers that render unquoted fragments.
	reserved map[string]struct{}
}

func questionPlaceholder(int) string { return "?" }

var dialectFeatures = map[string]features{
	dialect.MySQL: {
		quoteOpen: '`', quoteClose: '`',
		placeholder: questionPlaceholder,
		pagination:  limitOffset,
		identity:    "AUTO_INCREMENT",
		reserved:    reservedWords("key", "order", "group", "table", "select", "index", "desc", "rank"),
	},
	dialect.Postgres: {
		quoteOpen: '"', quoteClose: '"',
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		pagination:  limitOffset,
		identity:    "GENERATED BY DEFAULT AS IDENTITY",
		returning:   true,
		reserved:    reservedWords("user", "order", "group", "table", "select", "desc", "limit", "offset"),
	},
	dialect.SQLite: {
		quoteOpen: '"', quoteClose: '"',
		placeholder: questionPlaceholder,
		pagination:  limitOffset,
		identity:    "AUTOINCREMENT",
		reserved:    reservedWords("order", "group", "table", "select", "index", "transaction"),
	},
	dialect.SQLServer: {
		quoteOpen: '[', quoteClose: ']',
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		pagination:  offsetFetch,
		identity:    "IDENTITY(1,1)",
		returning:   true,
		reserved:    reservedWords("user", "order", "group", "table", "select", "index", "key", "plan"),
	},
}

func reservedWords(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// featuresOf returns the feature table of the given dialect.
func featuresOf(name string) (features, error) {
	f, ok := dialectFeatures[name]
	if !ok {
		return features{}, fmt.Errorf("dialect/sql: unsupported dialect %q", name)
	}
	return f, nil
}
