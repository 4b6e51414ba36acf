// Package core holds the in-memory schema model: columns, indexes, the four
// table variants, the catalog and its checkpoint format. Everything here is
// plain data plus lookup helpers; SQL text emission lives in sqlgen.
package core

import "sync"

// ColumnType tags a column. The tag doubles as the serialized form.
type ColumnType string

const (
	TypeInt       ColumnType = "INT"
	TypeInteger   ColumnType = "INTEGER"
	TypeChar      ColumnType = "CHAR"
	TypeVarchar   ColumnType = "VARCHAR"
	TypeFloat     ColumnType = "FLOAT"
	TypeDouble    ColumnType = "DOUBLE"
	TypeBool      ColumnType = "BOOL"
	TypeBlob      ColumnType = "BLOB"
	TypeBit       ColumnType = "BIT"
	TypeDate      ColumnType = "DATE"
	TypeDatetime  ColumnType = "DATETIME"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeText      ColumnType = "TEXT"
	TypeGenerated ColumnType = "GENERATED"
)

// Column is one table column. The mutex serializes concurrent ALTERs and
// DROPs against the same column.
type Column struct {
	Name     string
	Type     ColumnType
	Length   int
	Nullable bool

	PrimaryKey    bool
	AutoIncrement bool
	Compressed    bool
	NotSecondary  bool

	// SubType is the concrete blob/text flavor (TINYBLOB ... LONGTEXT).
	SubType string

	// GenClause is the full generated clause starting at the inner type,
	// e.g. " INT GENERATED ALWAYS AS (i3+i4) STORED"; GenType is the inner
	// type it produces.
	GenClause string
	GenType   ColumnType

	mu sync.Mutex
}

// Lock serializes writes to this column's fields.
func (c *Column) Lock() { c.mu.Lock() }

// Unlock releases the column lock.
func (c *Column) Unlock() { c.mu.Unlock() }

// ValueType resolves GENERATED columns to the type their expression yields.
func (c *Column) ValueType() ColumnType {
	if c.Type == TypeGenerated {
		return c.GenType
	}
	return c.Type
}

// IsString reports whether values compare as text.
func (c *Column) IsString() bool {
	switch c.ValueType() {
	case TypeChar, TypeVarchar, TypeText:
		return true
	}
	return false
}

// IsNumber reports whether the column holds small or plain integers.
func (c *Column) IsNumber() bool {
	switch c.ValueType() {
	case TypeInt, TypeInteger:
		return true
	}
	return false
}

// Comparable reports whether range predicates make sense for the column.
func (c *Column) Comparable() bool {
	switch c.ValueType() {
	case TypeInt, TypeInteger, TypeFloat, TypeDouble,
		TypeChar, TypeVarchar, TypeText,
		TypeDate, TypeDatetime, TypeTimestamp:
		return true
	}
	return false
}

// IsBlobOrText covers the prefix-length rule for index keys, resolved
// through generated columns.
func (c *Column) IsBlobOrText() bool {
	switch c.ValueType() {
	case TypeBlob, TypeText:
		return true
	}
	return false
}

// ValidColumnType reports whether s is a known column type tag.
func ValidColumnType(s string) bool {
	switch ColumnType(s) {
	case TypeInt, TypeInteger, TypeChar, TypeVarchar, TypeFloat, TypeDouble,
		TypeBool, TypeBlob, TypeBit, TypeDate, TypeDatetime, TypeTimestamp,
		TypeText, TypeGenerated:
		return true
	}
	return false
}
