package parser

import (
	"github.com/Rana718/bde/internal/types"
)

type DeclaredParam struct {
	Name string
	Type *types.ResolvedType
}

type ColumnOverride struct {
	Name string
	Type types.ResolvedType
}

// Unit is one annotated query as written in a query file.
type Unit struct {
	Name        string
	Cardinality types.Cardinality
	Description string
	Params      []DeclaredParam
	Columns     []ColumnOverride
	Entity      string
	// Nullable lists table aliases the author asserts are on the absent
	// side of an outer join.
	Nullable []string
	SQL      string
	File     string
	Line     int
	SQLLine  int
}

type StatementKind int

const (
	Select StatementKind = iota + 1
	Insert
	Update
	Delete
)

func (k StatementKind) String() string {
	switch k {
	case Select:
		return "select"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

type ColumnRef struct {
	// Table is the qualifier as written (table name or alias), "" if none.
	Table  string
	Column string
	Scope  *Scope
}

func (c *ColumnRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// TableRef is a table visible at one query level.
type TableRef struct {
	Name  string
	Alias string
	// Nullable marks refs on the absent side of an outer join.
	Nullable bool
	// SideKnown is false when the join structure around the ref could not
	// be determined.
	SideKnown bool
	// Subquery is set for CTE references and derived tables.
	Subquery []*Branch
	Derived  bool
}

// RefName is the name columns use to qualify this table.
func (t *TableRef) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Scope is the tables of one query level plus those of enclosing levels.
type Scope struct {
	Tables []*TableRef
	Parent *Scope
}

type ParameterRef struct {
	Name     string
	Position int
	Hint     *ColumnRef
	// Fixed is the type implied by the placeholder's position, e.g. LIMIT.
	Fixed    *types.ResolvedType
	Override *types.ResolvedType
}

type ResultColumnRef struct {
	OutputName string
	Source     *ColumnRef
	IsComputed bool
	// Wildcard is * or t.*; Source.Table holds the qualifier.
	Wildcard bool
}

// Branch is one SELECT of a compound statement, or the RETURNING list of
// a data-modifying one.
type Branch struct {
	Columns []*ResultColumnRef
	Scope   *Scope
}

type Statement struct {
	Name        string
	Description string
	File        string
	Line        int
	Kind        StatementKind
	Cardinality types.Cardinality
	// SQL is the statement text with placeholders rewritten to one style.
	SQL    string
	Params []*ParameterRef
	// Args holds the parameter position of every placeholder occurrence.
	Args      []int
	Branches  []*Branch
	Overrides []ColumnOverride
	Entity    string
}

// Columns returns the projection whose names the result takes.
func (s *Statement) Columns() []*ResultColumnRef {
	if len(s.Branches) == 0 {
		return nil
	}
	return s.Branches[0].Columns
}

type PlaceholderStyle string

const (
	PlaceholderNamed    PlaceholderStyle = "named"
	PlaceholderQuestion PlaceholderStyle = "question"
	PlaceholderDollar   PlaceholderStyle = "dollar"
)

func (s PlaceholderStyle) Valid() bool {
	switch s {
	case PlaceholderNamed, PlaceholderQuestion, PlaceholderDollar:
		return true
	}
	return false
}

type Options struct {
	Placeholders PlaceholderStyle
	// Dialect selects string literal quoting; see utils.TokenizeDialect.
	Dialect string
}
