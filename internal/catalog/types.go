package catalog

import (
	"strings"
)

type Family int

const (
	FamilyOther Family = iota
	FamilyInteger
	FamilyDecimal
	FamilyChar
	FamilyEnum
	FamilyBoolean
	FamilyDateTime
	FamilyBinary
	FamilyJSON
)

var familyNames = [...]string{"other", "integer", "decimal", "char", "enum", "boolean", "datetime", "binary", "json"}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "other"
}

// SQLType is a column type as written in the schema.
type SQLType struct {
	// Name is the upper-cased base name, e.g. "VARCHAR" or "DOUBLE PRECISION".
	Name string
	// Args holds the parenthesised modifiers, e.g. ["10", "2"].
	Args   []string
	Array  bool
	Family Family
}

func (t SQLType) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	if len(t.Args) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(t.Args, ","))
		b.WriteByte(')')
	}
	if t.Array {
		b.WriteString("[]")
	}
	return b.String()
}

// Serial reports whether the type is an auto-incrementing pseudo type.
func (t SQLType) Serial() bool {
	return strings.HasSuffix(t.Name, "SERIAL") || strings.HasPrefix(t.Name, "SERIAL")
}

type Column struct {
	Name       string
	Type       SQLType
	Nullable   bool
	PrimaryKey bool
	Default    string
	HasDefault bool
}

type Table struct {
	Name    string
	Columns []*Column
}

// Column returns the column with the given name, ignoring case.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

type Enum struct {
	Name   string
	Values []string
}

type Source struct {
	Name string
	Text string
	// Dialect selects string literal quoting; see utils.TokenizeDialect.
	Dialect string
}
