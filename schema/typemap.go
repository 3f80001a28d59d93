package schema

import (
	"strings"

	"github.com/syssam/restql/dialect"
)

// typemap holds the native → canonical type mapping per dialect. Native
// names are matched on their base name: length and precision suffixes
// ("varchar(255)", "decimal(10,2)") are stripped before lookup. Unmapped
// names resolve to TypeUnknown, never to an error.

var mysqlTypes = map[string]Type{
	"tinyint": TypeNumber, "smallint": TypeNumber, "mediumint": TypeNumber,
	"int": TypeNumber, "integer": TypeNumber, "bigint": TypeNumber,
	"decimal": TypeNumber, "numeric": TypeNumber, "float": TypeNumber,
	"double": TypeNumber, "bit": TypeNumber, "year": TypeNumber,
	"char": TypeString, "varchar": TypeString, "tinytext": TypeString,
	"text": TypeString, "mediumtext": TypeString, "longtext": TypeString,
	"binary": TypeString, "varbinary": TypeString,
	"boolean": TypeBool, "bool": TypeBool,
	"date": TypeDate, "datetime": TypeDate, "timestamp": TypeDate, "time": TypeDate,
	"json": TypeJSON,
	"enum": TypeEnum, "set": TypeEnum,
}

var postgresTypes = map[string]Type{
	"smallint": TypeNumber, "integer": TypeNumber, "bigint": TypeNumber,
	"int2": TypeNumber, "int4": TypeNumber, "int8": TypeNumber,
	"decimal": TypeNumber, "numeric": TypeNumber, "real": TypeNumber,
	"double precision": TypeNumber, "float4": TypeNumber, "float8": TypeNumber,
	"smallserial": TypeNumber, "serial": TypeNumber, "bigserial": TypeNumber,
	"money": TypeNumber,
	"character varying": TypeString, "varchar": TypeString,
	"character": TypeString, "char": TypeString, "text": TypeString,
	"bytea": TypeString, "uuid": TypeString,
	"boolean": TypeBool, "bool": TypeBool,
	"date": TypeDate, "timestamp": TypeDate, "timestamptz": TypeDate,
	"timestamp without time zone": TypeDate, "timestamp with time zone": TypeDate,
	"time": TypeDate, "timetz": TypeDate,
	"time without time zone": TypeDate, "time with time zone": TypeDate,
	"json": TypeJSON, "jsonb": TypeJSON,
	"user-defined": TypeEnum,
}

var sqliteTypes = map[string]Type{
	"integer": TypeNumber, "int": TypeNumber, "real": TypeNumber,
	"numeric": TypeNumber, "decimal": TypeNumber, "float": TypeNumber,
	"double": TypeNumber, "bigint": TypeNumber, "smallint": TypeNumber,
	"tinyint": TypeNumber,
	"text": TypeString, "varchar": TypeString, "char": TypeString,
	"clob": TypeString, "blob": TypeString, "nvarchar": TypeString,
	"boolean": TypeBool, "bool": TypeBool,
	"date": TypeDate, "datetime": TypeDate, "timestamp": TypeDate,
	"json": TypeJSON,
}

var sqlserverTypes = map[string]Type{
	"tinyint": TypeNumber, "smallint": TypeNumber, "int": TypeNumber,
	"bigint": TypeNumber, "decimal": TypeNumber, "numeric": TypeNumber,
	"float": TypeNumber, "real": TypeNumber, "money": TypeNumber,
	"smallmoney": TypeNumber,
	"char": TypeString, "varchar": TypeString, "text": TypeString,
	"nchar": TypeString, "nvarchar": TypeString, "ntext": TypeString,
	"binary": TypeString, "varbinary": TypeString, "uniqueidentifier": TypeString,
	"bit": TypeBool,
	"date": TypeDate, "datetime": TypeDate, "datetime2": TypeDate,
	"smalldatetime": TypeDate, "datetimeoffset": TypeDate, "time": TypeDate,
	"json": TypeJSON,
}

var dialectTypes = map[string]map[string]Type{
	dialect.MySQL:     mysqlTypes,
	dialect.Postgres:  postgresTypes,
	dialect.SQLite:    sqliteTypes,
	dialect.SQLServer: sqlserverTypes,
}

// TypeOf maps a dialect's native column type name to its canonical type.
func TypeOf(dialectName, native string) Type {
	types, ok := dialectTypes[dialectName]
	if !ok {
		return TypeUnknown
	}
	// MySQL renders BOOLEAN columns as tinyint(1).
	if dialectName == dialect.MySQL && strings.HasPrefix(strings.ToLower(native), "tinyint(1)") {
		return TypeBool
	}
	name := baseTypeName(native)
	if t, ok := types[name]; ok {
		return t
	}
	return TypeUnknown
}

// baseTypeName normalizes a native type name for lookup: lowercase, with
// any length/precision suffix and "unsigned" qualifier removed.
func baseTypeName(native string) string {
	name := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexByte(name, '('); i > 0 {
		suffix := ""
		if j := strings.IndexByte(name, ')'); j > 0 && j < len(name)-1 {
			suffix = name[j+1:]
		}
		name = strings.TrimSpace(name[:i] + suffix)
	}
	name = strings.TrimSuffix(name, " unsigned")
	return name
}
