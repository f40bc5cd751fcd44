package resolver

import (
	"fmt"
	"strings"

	"github.com/Rana718/bde/internal/catalog"
	"github.com/Rana718/bde/internal/parser"
	"github.com/Rana718/bde/internal/types"
)

type Param struct {
	Name     string
	Position int
	Type     types.ResolvedType
	// Table and Column name the schema column the type came from.
	Table  string
	Column string
}

type Column struct {
	Name string
	Type types.ResolvedType
	// Table and Column are empty for computed values and for columns whose
	// source differs between compound branches.
	Table  string
	Column string
}

func (c Column) Computed() bool {
	return c.Column == ""
}

// Statement is a parsed statement with every parameter and result column
// typed.
type Statement struct {
	Parsed      *parser.Statement
	Name        string
	Description string
	File        string
	Line        int
	Kind        parser.StatementKind
	Cardinality types.Cardinality
	SQL         string
	Params      []Param
	Args        []int
	Columns     []Column
	Entity      string
}

// SourceTable returns the schema table all result columns are read from,
// or "" when they come from several tables or from expressions.
func (s *Statement) SourceTable() string {
	table := ""
	for _, c := range s.Columns {
		if c.Computed() || c.Table == "" {
			return ""
		}
		if table == "" {
			table = c.Table
		} else if !strings.EqualFold(table, c.Table) {
			return ""
		}
	}
	return table
}

type binding struct {
	typ    types.ResolvedType
	table  string
	column string
	// forced is set when the ref sits where rows may be absent.
	forced bool
}

type resolver struct {
	cat     *catalog.Catalog
	stmt    *parser.Statement
	derived map[*parser.Branch][]Column
}

// Resolve types the parameters and result columns of stmt against cat.
// Columns that cannot be resolved degrade to unknown; only a wildcard over
// a table missing from cat and a contradicting cardinality fail.
func Resolve(stmt *parser.Statement, cat *catalog.Catalog) (*Statement, error) {
	r := &resolver{cat: cat, stmt: stmt, derived: make(map[*parser.Branch][]Column)}

	columns, err := r.branches(stmt.Branches)
	if err != nil {
		return nil, err
	}
	dedupeNames(columns)
	if err := r.applyOverrides(columns); err != nil {
		return nil, err
	}

	switch {
	case stmt.Cardinality.ReturnsRows() && len(columns) == 0,
		stmt.Cardinality == types.Affected && len(columns) > 0:
		return nil, &CardinalityMismatchError{Statement: stmt.Name, Cardinality: stmt.Cardinality, Columns: len(columns)}
	}

	params := make([]Param, len(stmt.Params))
	for i, p := range stmt.Params {
		params[i] = r.param(p)
	}

	return &Statement{
		Parsed:      stmt,
		Name:        stmt.Name,
		Description: stmt.Description,
		File:        stmt.File,
		Line:        stmt.Line,
		Kind:        stmt.Kind,
		Cardinality: stmt.Cardinality,
		SQL:         stmt.SQL,
		Params:      params,
		Args:        stmt.Args,
		Columns:     columns,
		Entity:      stmt.Entity,
	}, nil
}

func (r *resolver) syntaxError(format string, args ...any) error {
	return &parser.SyntaxError{
		Statement: r.stmt.Name,
		File:      r.stmt.File,
		Line:      r.stmt.Line,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (r *resolver) param(p *parser.ParameterRef) Param {
	out := Param{Name: p.Name, Position: p.Position, Type: types.UnknownNullable}
	switch {
	case p.Override != nil:
		out.Type = *p.Override
	case p.Fixed != nil:
		out.Type = *p.Fixed
	case p.Hint != nil:
		// parameters take the column's own nullability, joins do not apply
		if b, ok := r.lookup(p.Hint); ok {
			out.Type, out.Table, out.Column = b.typ, b.table, b.column
		}
	}
	return out
}

// branches resolves every branch and folds them into one column list.
func (r *resolver) branches(branches []*parser.Branch) ([]Column, error) {
	if len(branches) == 0 {
		return nil, nil
	}
	first, err := r.branch(branches[0])
	if err != nil {
		return nil, err
	}
	columns := append([]Column(nil), first...)
	for _, b := range branches[1:] {
		other, err := r.branch(b)
		if err != nil {
			return nil, err
		}
		if len(other) != len(columns) {
			return nil, r.syntaxError("compound query branches have different column counts (%d and %d)", len(columns), len(other))
		}
		for i, c := range other {
			merged := &columns[i]
			kind := types.Widen(merged.Type.Kind, c.Type.Kind)
			merged.Type = types.ResolvedType{
				Kind: kind,
				// kinds that do not widen lose what nullability they had
				Nullable: merged.Type.Nullable || c.Type.Nullable || (kind == types.Unknown && merged.Type.Kind != c.Type.Kind),
			}
			if !strings.EqualFold(merged.Table, c.Table) || !strings.EqualFold(merged.Column, c.Column) {
				merged.Table, merged.Column = "", ""
			}
		}
	}
	return columns, nil
}

func (r *resolver) branch(b *parser.Branch) ([]Column, error) {
	columns := make([]Column, 0, len(b.Columns))
	for _, col := range b.Columns {
		switch {
		case col.Wildcard:
			expanded, err := r.expand(col.Source, b.Scope)
			if err != nil {
				return nil, err
			}
			columns = append(columns, expanded...)
		case col.IsComputed || col.Source == nil:
			columns = append(columns, Column{Name: col.OutputName, Type: types.UnknownNullable})
		default:
			out := Column{Name: col.OutputName, Type: types.UnknownNullable}
			if bind, ok := r.lookup(col.Source); ok {
				out.Type, out.Table, out.Column = bind.typ, bind.table, bind.column
				if bind.forced {
					out.Type.Nullable = true
				}
			}
			columns = append(columns, out)
		}
	}
	return columns, nil
}

// expand lists the columns behind * or t.*.
func (r *resolver) expand(src *parser.ColumnRef, scope *parser.Scope) ([]Column, error) {
	if src.Table == "" {
		if scope == nil || len(scope.Tables) == 0 {
			return nil, r.syntaxError("* used without a FROM clause")
		}
		var out []Column
		for _, t := range scope.Tables {
			cols, err := r.tableColumns(t)
			if err != nil {
				return nil, err
			}
			out = append(out, cols...)
		}
		return out, nil
	}
	for sc := scope; sc != nil; sc = sc.Parent {
		if t := findTable(sc, src.Table); t != nil {
			return r.tableColumns(t)
		}
	}
	return nil, r.unknownTable(src.Table)
}

func (r *resolver) unknownTable(name string) error {
	return &catalog.UnknownTableError{Table: name, Available: r.cat.TableNames()}
}

func (r *resolver) tableColumns(t *parser.TableRef) ([]Column, error) {
	forced := t.Nullable || !t.SideKnown
	var out []Column
	switch {
	case t.Subquery != nil:
		cols, err := r.subquery(t.Subquery)
		if err != nil {
			return nil, err
		}
		out = append(out, cols...)
	case t.Derived:
		return nil, r.unknownTable(t.Name)
	default:
		table, err := r.cat.LookupTable(t.Name)
		if err != nil {
			return nil, err
		}
		for _, c := range table.Columns {
			out = append(out, Column{Name: c.Name, Type: columnType(c), Table: table.Name, Column: c.Name})
		}
	}
	if forced {
		for i := range out {
			out[i].Type.Nullable = true
		}
	}
	return out, nil
}

// subquery resolves the columns of a derived table or CTE once.
func (r *resolver) subquery(branches []*parser.Branch) ([]Column, error) {
	key := branches[0]
	if cols, ok := r.derived[key]; ok {
		return cols, nil
	}
	cols, err := r.branches(branches)
	if err != nil {
		return nil, err
	}
	r.derived[key] = cols
	return cols, nil
}

// findTable matches a qualifier against the refs of one level, aliases
// first.
func findTable(sc *parser.Scope, qualifier string) *parser.TableRef {
	for _, t := range sc.Tables {
		if t.Alias != "" && strings.EqualFold(t.Alias, qualifier) {
			return t
		}
	}
	for _, t := range sc.Tables {
		if t.Alias == "" && strings.EqualFold(t.Name, qualifier) {
			return t
		}
	}
	return nil
}

// lookup finds the column ref points at, walking outwards through the
// enclosing query levels. An unqualified name must match exactly one table
// of the first level where it matches at all.
func (r *resolver) lookup(ref *parser.ColumnRef) (binding, bool) {
	for sc := ref.Scope; sc != nil; sc = sc.Parent {
		if ref.Table != "" {
			t := findTable(sc, ref.Table)
			if t == nil {
				continue
			}
			return r.columnOf(t, ref.Column)
		}

		var hits []binding
		for _, t := range sc.Tables {
			if b, ok := r.columnOf(t, ref.Column); ok {
				hits = append(hits, b)
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], true
		default:
			return binding{}, false
		}
	}
	return binding{}, false
}

func (r *resolver) columnOf(t *parser.TableRef, name string) (binding, bool) {
	b := binding{forced: t.Nullable || !t.SideKnown}
	switch {
	case t.Subquery != nil:
		cols, err := r.subquery(t.Subquery)
		if err != nil {
			return binding{}, false
		}
		for _, c := range cols {
			if strings.EqualFold(c.Name, name) {
				b.typ, b.table, b.column = c.Type, c.Table, c.Column
				return b, true
			}
		}
		return binding{}, false
	case t.Derived:
		return binding{}, false
	}
	c, err := r.cat.LookupColumn(t.Name, name)
	if err != nil {
		return binding{}, false
	}
	table, _ := r.cat.LookupTable(t.Name)
	b.typ, b.table, b.column = columnType(c), table.Name, c.Name
	return b, true
}

func (r *resolver) applyOverrides(columns []Column) error {
	for _, o := range r.stmt.Overrides {
		found := false
		for i := range columns {
			if strings.EqualFold(columns[i].Name, o.Name) {
				columns[i].Type = o.Type
				found = true
				break
			}
		}
		if !found {
			return r.syntaxError("column override %q matches no result column", o.Name)
		}
	}
	return nil
}

// dedupeNames renames repeated output names: the second "id" becomes
// "id2", the third "id3".
func dedupeNames(columns []Column) {
	used := make(map[string]bool, len(columns))
	count := make(map[string]int, len(columns))
	for i := range columns {
		base := columns[i].Name
		key := strings.ToLower(base)
		count[key]++
		if !used[key] {
			used[key] = true
			continue
		}
		n := count[key]
		name := fmt.Sprintf("%s%d", base, n)
		for used[strings.ToLower(name)] {
			n++
			name = fmt.Sprintf("%s%d", base, n)
		}
		used[strings.ToLower(name)] = true
		columns[i].Name = name
	}
}
