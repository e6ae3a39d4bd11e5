package driver

import "strings"

// TypeTag is the driver-independent classification of a result column.
// Downstream consumers depend on these tags instead of vendor type names.
type TypeTag string

const (
	TypeString    TypeTag = "string"
	TypeText      TypeTag = "text"
	TypeInt       TypeTag = "int"
	TypeBigInt    TypeTag = "bigint"
	TypeDouble    TypeTag = "double"
	TypeDecimal   TypeTag = "decimal"
	TypeBoolean   TypeTag = "boolean"
	TypeTimestamp TypeTag = "timestamp"
	TypeDate      TypeTag = "date"
	TypeTime      TypeTag = "time"
)

// TypeMapping is a per-adapter static table from native type names
// (lowercased) to generic tags. It is deterministic: the same native type
// always maps to the same tag.
type TypeMapping map[string]TypeTag

// Tag maps a native type name to its generic tag. Native types without a
// mapping pass through as their lowercased name, so consumers still see a
// stable, if vendor-flavored, tag rather than an error.
func (m TypeMapping) Tag(nativeType string) TypeTag {
	name := strings.ToLower(nativeType)
	if tag, ok := m[name]; ok {
		return tag
	}
	return TypeTag(name)
}

// Column is one result column with its generic type tag.
type Column struct {
	Name string
	Type TypeTag
}

// QueryResult is a fully materialized result: ordered columns with generic
// tags, and rows as maps keyed by column name.
type QueryResult struct {
	Columns []Column
	Rows    []map[string]any
}

// NativeColumn is column metadata as reported by the native client, before
// type mapping.
type NativeColumn struct {
	Name       string
	NativeType string
}

// NativeResult is what an adapter's Connection.Execute returns; the
// executor maps it into a QueryResult.
type NativeResult struct {
	Columns []NativeColumn
	Rows    []map[string]any
}
