package types

import (
	"fmt"
	"strings"
)

// Kind is the host-language neutral type of a parameter or result column.
type Kind int

const (
	Unknown Kind = iota
	Int
	Float
	String
	Bool
	DateTime
	Bytes
)

var kindNames = map[Kind]string{
	Unknown:  "unknown",
	Int:      "int",
	Float:    "float",
	String:   "string",
	Bool:     "bool",
	DateTime: "datetime",
	Bytes:    "bytes",
}

var kindAliases = map[string]Kind{
	"unknown":   Unknown,
	"mixed":     Unknown,
	"any":       Unknown,
	"int":       Int,
	"integer":   Int,
	"bigint":    Int,
	"smallint":  Int,
	"float":     Float,
	"double":    Float,
	"decimal":   Float,
	"numeric":   Float,
	"real":      Float,
	"string":    String,
	"text":      String,
	"varchar":   String,
	"bool":      Bool,
	"boolean":   Bool,
	"datetime":  DateTime,
	"timestamp": DateTime,
	"date":      DateTime,
	"time":      DateTime,
	"bytes":     Bytes,
	"binary":    Bytes,
	"blob":      Bytes,
	"bytea":     Bytes,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, ok := kindAliases[strings.ToLower(string(text))]
	if !ok {
		return fmt.Errorf("unknown type kind %q", text)
	}
	*k = kind
	return nil
}

// ResolvedType is a semantic kind plus nullability.
type ResolvedType struct {
	Kind     Kind `json:"kind" yaml:"kind"`
	Nullable bool `json:"nullable" yaml:"nullable"`
}

// UnknownNullable is what anything the resolver cannot see through degrades to.
var UnknownNullable = ResolvedType{Kind: Unknown, Nullable: true}

func (t ResolvedType) String() string {
	if t.Nullable {
		return t.Kind.String() + "?"
	}
	return t.Kind.String() + "!"
}

// ParseResolvedType reads an override written in query metadata, e.g.
// "int", "?string", "datetime?" or "decimal".
func ParseResolvedType(s string) (ResolvedType, error) {
	s = strings.TrimSpace(s)
	nullable := false
	if strings.HasPrefix(s, "?") {
		nullable = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "?") {
		nullable = true
		s = s[:len(s)-1]
	}
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return ResolvedType{}, fmt.Errorf("unknown type %q", s)
	}
	if kind == Unknown {
		nullable = true
	}
	return ResolvedType{Kind: kind, Nullable: nullable}, nil
}

// Widen returns the least common supertype of two kinds.
func Widen(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case (a == Int && b == Float) || (a == Float && b == Int):
		return Float
	default:
		return Unknown
	}
}

// Cardinality is the declared result shape of a statement.
type Cardinality int

const (
	One Cardinality = iota + 1
	Many
	Affected
)

var cardinalityByTag = map[string]Cardinality{
	"one":        One,
	"many":       Many,
	"affected":   Affected,
	"exec":       Affected,
	"execrows":   Affected,
	"execresult": Affected,
}

func ParseCardinality(tag string) (Cardinality, error) {
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), ":"))
	c, ok := cardinalityByTag[tag]
	if !ok {
		return 0, fmt.Errorf("unknown cardinality %q (want one, many or affected)", tag)
	}
	return c, nil
}

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	case Affected:
		return "affected"
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

func (c Cardinality) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cardinality) UnmarshalText(text []byte) error {
	v, err := ParseCardinality(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ReturnsRows reports whether statements of this cardinality project columns.
func (c Cardinality) ReturnsRows() bool {
	return c == One || c == Many
}
