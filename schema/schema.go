// Package schema defines the canonical, dialect-agnostic description of a
// relational table: its columns, primary key, and foreign-key relations.
//
// A Schema is produced by introspecting the target database catalog (see
// dialect/sql/inspect) and is the single source of truth for query
// validation, SQL compilation, and response reshaping. Column types are
// classified into a small canonical set (Type) so the rest of the system
// never deals with engine-native type names.
//
// Relations are stored bidirectionally: for every discovered foreign key
// child.fk → parent.pk, both the forward edge and its mirror are
// materialized, so a lookup by either endpoint succeeds.
package schema

// Column describes a single table column.
type Column struct {
	Field      string   `json:"field" msgpack:"field"`
	Type       Type     `json:"type" msgpack:"type"`
	Native     string   `json:"-" msgpack:"native"`
	Required   bool     `json:"required" msgpack:"required"`
	Nullable   bool     `json:"nullable" msgpack:"nullable"`
	PrimaryKey bool     `json:"primary_key" msgpack:"primary_key"`
	ForeignKey bool     `json:"foreign_key" msgpack:"foreign_key"`
	Unique     bool     `json:"unique" msgpack:"unique"`
	Default    any      `json:"default" msgpack:"default"`
	Length     int      `json:"-" msgpack:"length"`
	EnumValues []string `json:"-" msgpack:"enum_values"`
}

// Relation is a foreign-key edge between two tables. Table/Column name the
// related table and the local FK column; OrgTable/OrgColumn name the owning
// side the edge was discovered on. A Relation is directionless metadata;
// join direction is decided at compile time.
type Relation struct {
	Table     string `json:"table" msgpack:"table"`
	Column    string `json:"column" msgpack:"column"`
	OrgTable  string `json:"org_table" msgpack:"org_table"`
	OrgColumn string `json:"org_column" msgpack:"org_column"`
}

// Schema is the introspected structure of one table.
type Schema struct {
	Table      string     `json:"table" msgpack:"table"`
	Columns    []Column   `json:"columns" msgpack:"columns"`
	PrimaryKey string     `json:"primary_key,omitempty" msgpack:"primary_key"`
	Relations  []Relation `json:"relations" msgpack:"relations"`
}

// Column returns the column with the given field name.
func (s *Schema) Column(field string) (*Column, bool) {
	for i := range s.Columns {
		if s.Columns[i].Field == field {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the schema contains the given field.
func (s *Schema) HasColumn(field string) bool {
	_, ok := s.Column(field)
	return ok
}

// Relation returns the relation whose related table matches the given name.
func (s *Schema) Relation(table string) (*Relation, bool) {
	for i := range s.Relations {
		if s.Relations[i].Table == table {
			return &s.Relations[i], true
		}
	}
	return nil, false
}

// Fields returns the field names of all columns, in catalog order.
func (s *Schema) Fields() []string {
	fields := make([]string, len(s.Columns))
	for i := range s.Columns {
		fields[i] = s.Columns[i].Field
	}
	return fields
}

// UniqueColumns returns the columns flagged unique, excluding the primary key.
func (s *Schema) UniqueColumns() []Column {
	var cols []Column
	for _, c := range s.Columns {
		if c.Unique && !c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols
}
