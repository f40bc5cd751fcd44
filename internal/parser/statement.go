package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/bde/internal/types"
	"github.com/Rana718/bde/internal/utils"
)

type occurrence struct {
	tok   utils.Token
	hint  *ColumnRef
	fixed *types.ResolvedType
	// name is what the placeholder would be called when the author gave
	// it no name, e.g. "created_at_start" or "limit".
	name string
}

type stmtParser struct {
	unit     *Unit
	toks     []utils.Token
	ctes     map[string][]*Branch
	occ      map[int]*occurrence
	parsed   map[int]bool
	nullable map[string]bool
	// anchor is the recursive CTE whose body is being parsed. Its first
	// branch becomes the shape its self-references see.
	anchor *cteAnchor
}

type cteAnchor struct {
	key     string
	columns []string
	// pos identifies the body by its first token.
	pos int
}

// Parse turns one unit into a statement with its placeholders, table
// references and projection identified.
func Parse(u *Unit, opts Options) (*Statement, error) {
	style := opts.Placeholders
	if style == "" {
		style = PlaceholderNamed
	}
	if !style.Valid() {
		return nil, fmt.Errorf("unknown placeholder style %q", style)
	}

	p := &stmtParser{
		unit:     u,
		ctes:     make(map[string][]*Branch),
		occ:      make(map[int]*occurrence),
		parsed:   make(map[int]bool),
		nullable: make(map[string]bool, len(u.Nullable)),
	}
	for _, alias := range u.Nullable {
		p.nullable[strings.ToLower(alias)] = true
	}

	tokens, err := utils.TokenizeDialect(u.SQL, opts.Dialect)
	if err != nil {
		var se *utils.ScanError
		if errors.As(err, &se) {
			return nil, p.errorAt(se.Line, "%s", se.Message)
		}
		return nil, err
	}
	if err := utils.CheckBalanced(tokens); err != nil {
		var se *utils.ScanError
		errors.As(err, &se)
		return nil, p.errorAt(se.Line, "unbalanced parentheses: %s", se.Message)
	}
	stmts := utils.SplitStatements(tokens)
	switch {
	case len(stmts) == 0:
		return nil, p.errorAt(1, "empty statement")
	case len(stmts) > 1:
		return nil, p.errorAt(stmts[1][0].Line, "query contains %d statements, only one is allowed", len(stmts))
	}
	p.toks = stmts[0]

	kind, branches, err := p.parseQuery(p.toks, nil)
	if err != nil {
		return nil, err
	}
	params, args, err := p.bindParams()
	if err != nil {
		return nil, err
	}

	return &Statement{
		Name:        u.Name,
		Description: u.Description,
		File:        u.File,
		Line:        u.Line,
		Kind:        kind,
		Cardinality: u.Cardinality,
		SQL:         p.normalize(style, params, args),
		Params:      params,
		Args:        args,
		Branches:    branches,
		Overrides:   u.Columns,
		Entity:      u.Entity,
	}, nil
}

func (p *stmtParser) errorAt(line int, format string, args ...any) error {
	abs := p.unit.Line
	if p.unit.SQLLine > 0 {
		abs = p.unit.SQLLine + line - 1
	}
	return &SyntaxError{
		Statement: p.unit.Name,
		File:      p.unit.File,
		Line:      abs,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (p *stmtParser) errorf(tok utils.Token, format string, args ...any) error {
	return p.errorAt(max(tok.Line, 1), format, args...)
}

func at(toks []utils.Token, i int) utils.Token {
	if i < 0 || i >= len(toks) {
		return utils.Token{}
	}
	return toks[i]
}

func isQueryStart(t utils.Token) bool {
	return t.Is("SELECT") || t.Is("WITH")
}

// parseQuery parses one query level: an optional WITH clause followed by
// a SELECT (possibly compound) or a data-modifying statement.
func (p *stmtParser) parseQuery(toks []utils.Token, parent *Scope) (StatementKind, []*Branch, error) {
	if len(toks) == 0 {
		return 0, nil, p.errorAt(1, "empty query")
	}
	p.parsed[toks[0].Pos] = true

	if toks[0].Is("WITH") {
		next, err := p.parseWith(toks, parent)
		if err != nil {
			return 0, nil, err
		}
		if next >= len(toks) {
			return 0, nil, p.errorf(toks[len(toks)-1], "WITH clause is not followed by a query")
		}
		toks = toks[next:]
	}

	first := toks[0]
	switch {
	case first.Is("SELECT") || first.IsPunct("("):
		branches, err := p.parseCompound(toks, parent)
		return Select, branches, err
	case first.Is("INSERT") || first.Is("REPLACE"):
		branches, err := p.parseInsert(toks, parent)
		return Insert, branches, err
	case first.Is("UPDATE"):
		branches, err := p.parseUpdate(toks, parent)
		return Update, branches, err
	case first.Is("DELETE"):
		branches, err := p.parseDelete(toks, parent)
		return Delete, branches, err
	}
	return 0, nil, p.errorf(first, "unsupported statement %q, expected SELECT, INSERT, UPDATE or DELETE", first.Text)
}

func (p *stmtParser) parseWith(toks []utils.Token, parent *Scope) (int, error) {
	i := 1
	recursive := at(toks, i).Is("RECURSIVE")
	if recursive {
		i++
	}
	for {
		nameTok := at(toks, i)
		if !nameTok.IsName() {
			return 0, p.errorf(nameTok, "expected a CTE name after WITH")
		}
		i++
		var columns []string
		if at(toks, i).IsPunct("(") {
			end := utils.Closing(toks, i)
			for _, part := range utils.SplitCommas(toks[i+1 : end]) {
				if len(part) > 0 {
					columns = append(columns, part[0].Value)
				}
			}
			i = end + 1
		}
		if !at(toks, i).Is("AS") {
			return 0, p.errorf(at(toks, i), "expected AS after CTE %s", nameTok.Value)
		}
		i++
		if at(toks, i).Is("NOT") {
			i++
		}
		if at(toks, i).Is("MATERIALIZED") {
			i++
		}
		if !at(toks, i).IsPunct("(") {
			return 0, p.errorf(at(toks, i), "expected ( after AS in CTE %s", nameTok.Value)
		}
		end := utils.Closing(toks, i)
		key := strings.ToLower(nameTok.Value)
		outer := p.anchor
		if recursive && end > i+1 {
			// a self-reference ahead of the anchor branch has no known shape
			p.ctes[key] = nil
			p.anchor = &cteAnchor{key: key, columns: columns, pos: toks[i+1].Pos}
		}
		_, branches, err := p.parseQuery(toks[i+1:end], parent)
		p.anchor = outer
		if err != nil {
			return 0, err
		}
		if len(columns) > 0 {
			branches = renameBranches(branches, columns)
		}
		p.ctes[key] = branches
		i = end + 1
		if !at(toks, i).IsPunct(",") {
			return i, nil
		}
		i++
	}
}

func renameBranches(branches []*Branch, names []string) []*Branch {
	out := make([]*Branch, 0, len(branches))
	for _, b := range branches {
		cols := make([]*ResultColumnRef, len(b.Columns))
		for i, c := range b.Columns {
			cp := *c
			if i < len(names) && !c.Wildcard {
				cp.OutputName = names[i]
			}
			cols[i] = &cp
		}
		out = append(out, &Branch{Columns: cols, Scope: b.Scope})
	}
	return out
}

// registerAnchor publishes the anchor branches of a recursive CTE once the
// compound that forms its body has parsed them.
func (p *stmtParser) registerAnchor(toks []utils.Token, anchor []*Branch) {
	a := p.anchor
	if a == nil || len(toks) == 0 || toks[0].Pos != a.pos {
		return
	}
	if len(a.columns) > 0 {
		anchor = renameBranches(anchor, a.columns)
	}
	p.ctes[a.key] = anchor
}

func isSetOperator(t utils.Token) bool {
	return t.Is("UNION") || t.Is("INTERSECT") || t.Is("EXCEPT") || t.Is("MINUS")
}

func (p *stmtParser) parseCompound(toks []utils.Token, parent *Scope) ([]*Branch, error) {
	var branches []*Branch
	for n, part := range utils.SplitTopLevel(toks, isSetOperator) {
		if n == 1 {
			p.registerAnchor(toks, branches)
		}
		if len(part) > 0 && (part[0].Is("ALL") || part[0].Is("DISTINCT")) {
			part = part[1:]
		}
		if len(part) == 0 {
			return nil, p.errorf(at(toks, 0), "empty branch in compound query")
		}

		if part[0].IsPunct("(") {
			end := utils.Closing(part, 0)
			inner := part[1:end]
			// trailing ORDER BY / LIMIT apply to the whole compound
			if err := p.checkClauses(part[end+1:]); err != nil {
				return nil, err
			}
			if err := p.scanLevel(part[end+1:], &Scope{Parent: parent}); err != nil {
				return nil, err
			}
			_, nested, err := p.parseQuery(inner, parent)
			if err != nil {
				return nil, err
			}
			branches = append(branches, nested...)
			continue
		}
		if !part[0].Is("SELECT") {
			return nil, p.errorf(part[0], "expected SELECT, found %q", part[0].Text)
		}
		branch, err := p.parseSelect(part, parent)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}

	for _, b := range branches[1:] {
		if hasWildcard(b.Columns) || hasWildcard(branches[0].Columns) {
			continue
		}
		if len(b.Columns) != len(branches[0].Columns) {
			return nil, p.errorf(toks[0], "compound query branches have different column counts (%d and %d)",
				len(branches[0].Columns), len(b.Columns))
		}
	}
	return branches, nil
}

func hasWildcard(cols []*ResultColumnRef) bool {
	for _, c := range cols {
		if c.Wildcard {
			return true
		}
	}
	return false
}

var selectModifiers = []string{
	"ALL", "DISTINCT", "DISTINCTROW", "SQL_CALC_FOUND_ROWS", "HIGH_PRIORITY",
	"STRAIGHT_JOIN", "SQL_NO_CACHE", "SQL_CACHE", "SQL_SMALL_RESULT", "SQL_BIG_RESULT",
}

// clause keywords that end a FROM list
var fromEnd = []string{"WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "WINDOW", "OFFSET", "FETCH", "FOR", "RETURNING"}

func (p *stmtParser) parseSelect(toks []utils.Token, parent *Scope) (*Branch, error) {
	i := 1
	for {
		t := at(toks, i)
		matched := false
		for _, m := range selectModifiers {
			if t.Is(m) {
				matched = true
			}
		}
		if !matched {
			break
		}
		i++
		if t.Is("DISTINCT") && at(toks, i).Is("ON") && at(toks, i+1).IsPunct("(") {
			i = utils.Closing(toks, i+1) + 1
		}
	}

	projEnd := utils.IndexKeyword(toks, i, "FROM", "INTO", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "WINDOW", "OFFSET", "FETCH", "FOR")
	if projEnd < 0 {
		projEnd = len(toks)
	}
	if projEnd == i {
		return nil, p.errorf(at(toks, i-1), "SELECT has no result columns")
	}

	scope := &Scope{Parent: parent}
	fromAt := -1
	switch {
	case at(toks, projEnd).Is("FROM"):
		fromAt = projEnd
	case at(toks, projEnd).Is("INTO"):
		fromAt = utils.IndexKeyword(toks, projEnd, "FROM")
	}
	if fromAt >= 0 {
		end := utils.IndexKeyword(toks, fromAt+1, fromEnd...)
		if end < 0 {
			end = len(toks)
		}
		if end == fromAt+1 {
			return nil, p.errorf(toks[fromAt], "FROM is missing a table")
		}
		tables, err := p.parseFrom(toks[fromAt+1:end], scope)
		if err != nil {
			return nil, err
		}
		scope.Tables = tables
	}

	cols, err := p.parseProjection(toks[i:projEnd], scope)
	if err != nil {
		return nil, err
	}
	if err := p.checkClauses(toks); err != nil {
		return nil, err
	}
	if err := p.scanLevel(toks, scope); err != nil {
		return nil, err
	}
	return &Branch{Columns: cols, Scope: scope}, nil
}

// clauses that must be followed by an expression
var clauseBodies = []string{"WHERE", "HAVING", "ON", "BY", "LIMIT", "OFFSET", "SET"}

// keywords that start the next clause
var clauseStarts = []string{
	"FROM", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET", "WINDOW", "FETCH",
	"FOR", "RETURNING", "UNION", "INTERSECT", "EXCEPT", "SET", "ON", "USING", "JOIN",
	"INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL",
}

// checkClauses rejects a top-level clause keyword with nothing after it,
// such as a trailing WHERE or "WHERE ORDER BY id".
func (p *stmtParser) checkClauses(toks []utils.Token) error {
	depth := 0
	for i, t := range toks {
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case depth == 0 && isKeyword(t, clauseBodies...):
			next := at(toks, i+1)
			if next.Kind != 0 && !isKeyword(next, clauseStarts...) {
				continue
			}
			clause := strings.ToUpper(t.Text)
			if clause == "BY" {
				clause = strings.ToUpper(at(toks, i-1).Text) + " BY"
			}
			return p.errorf(t, "%s is not followed by an expression", clause)
		}
	}
	return nil
}

func isKeyword(t utils.Token, words ...string) bool {
	for _, w := range words {
		if t.Is(w) {
			return true
		}
	}
	return false
}

func (p *stmtParser) parseReturning(toks []utils.Token, scope *Scope) ([]*Branch, error) {
	retAt := utils.IndexKeyword(toks, 0, "RETURNING")
	if retAt < 0 {
		return nil, nil
	}
	if retAt == len(toks)-1 {
		return nil, p.errorf(toks[retAt], "RETURNING has no result columns")
	}
	cols, err := p.parseProjection(toks[retAt+1:], scope)
	if err != nil {
		return nil, err
	}
	return []*Branch{{Columns: cols, Scope: scope}}, nil
}

func (p *stmtParser) skipWords(toks []utils.Token, i int, words ...string) int {
	for {
		t := at(toks, i)
		found := false
		for _, w := range words {
			if t.Is(w) {
				found = true
				break
			}
		}
		if !found {
			return i
		}
		i++
	}
}

func (p *stmtParser) parseInsert(toks []utils.Token, parent *Scope) ([]*Branch, error) {
	i := p.skipWords(toks, 1, "IGNORE", "LOW_PRIORITY", "DELAYED", "HIGH_PRIORITY", "OR", "REPLACE", "ROLLBACK", "ABORT", "FAIL")
	if at(toks, i).Is("INTO") {
		i++
	}
	name, next, ok := readName(toks, i)
	if !ok {
		return nil, p.errorf(at(toks, i), "INSERT is missing a table name")
	}
	i = next
	target := &TableRef{Name: name, SideKnown: true}
	if at(toks, i).Is("AS") && at(toks, i+1).IsName() {
		target.Alias = toks[i+1].Value
		i += 2
	}
	scope := &Scope{Tables: []*TableRef{target}, Parent: parent}

	var columns []string
	if at(toks, i).IsPunct("(") && !isQueryStart(at(toks, i+1)) {
		end := utils.Closing(toks, i)
		for _, part := range utils.SplitCommas(toks[i+1 : end]) {
			if len(part) == 0 {
				return nil, p.errorf(toks[i], "empty column in INSERT column list")
			}
			columns = append(columns, part[len(part)-1].Value)
		}
		i = end + 1
	}

	switch t := at(toks, i); {
	case t.Is("VALUES") || t.Is("VALUE"):
		i++
		if !at(toks, i).IsPunct("(") {
			return nil, p.errorf(t, "VALUES has no rows")
		}
		for at(toks, i).IsPunct("(") {
			end := utils.Closing(toks, i)
			if end == i+1 {
				return nil, p.errorf(toks[i], "empty row in VALUES")
			}
			values := utils.SplitCommas(toks[i+1 : end])
			if len(columns) > 0 && len(values) != len(columns) {
				return nil, p.errorf(toks[i], "INSERT has %d columns but %d values", len(columns), len(values))
			}
			for k, v := range values {
				if k < len(columns) && len(v) == 1 && v[0].Kind == utils.Placeholder {
					p.record(v[0])
					p.setHint(v[0], &ColumnRef{Table: target.RefName(), Column: columns[k], Scope: scope}, "")
				}
			}
			i = end + 1
			if !at(toks, i).IsPunct(",") {
				break
			}
			i++
		}
	case isQueryStart(t) || t.IsPunct("("):
		end := insertSelectEnd(toks, i)
		if _, _, err := p.parseQuery(toks[i:end], scope); err != nil {
			return nil, err
		}
	case t.Is("DEFAULT") || t.Is("SET"):
	default:
		return nil, p.errorf(t, "expected VALUES or SELECT in INSERT")
	}

	if err := p.checkClauses(toks); err != nil {
		return nil, err
	}
	branches, err := p.parseReturning(toks, scope)
	if err != nil {
		return nil, err
	}
	return branches, p.scanLevel(toks, scope)
}

// insertSelectEnd finds where the SELECT of INSERT ... SELECT stops.
func insertSelectEnd(toks []utils.Token, from int) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth == 0 && t.Is("RETURNING"):
			return i
		case depth == 0 && t.Is("ON") && (at(toks, i+1).Is("CONFLICT") || at(toks, i+1).Is("DUPLICATE")):
			return i
		}
	}
	return len(toks)
}

func (p *stmtParser) parseUpdate(toks []utils.Token, parent *Scope) ([]*Branch, error) {
	i := p.skipWords(toks, 1, "LOW_PRIORITY", "IGNORE", "ONLY")
	setAt := utils.IndexKeyword(toks, i, "SET")
	if setAt < 0 {
		return nil, p.errorf(toks[0], "UPDATE is missing SET")
	}
	if setAt == i {
		return nil, p.errorf(toks[setAt], "UPDATE is missing a table name")
	}
	scope := &Scope{Parent: parent}
	refs, err := p.parseFrom(toks[i:setAt], scope)
	if err != nil {
		return nil, err
	}
	scope.Tables = refs
	if fromAt := utils.IndexKeyword(toks, setAt, "FROM"); fromAt >= 0 {
		end := utils.IndexKeyword(toks, fromAt+1, fromEnd...)
		if end < 0 {
			end = len(toks)
		}
		more, err := p.parseFrom(toks[fromAt+1:end], scope)
		if err != nil {
			return nil, err
		}
		scope.Tables = append(scope.Tables, more...)
	}

	if err := p.checkClauses(toks); err != nil {
		return nil, err
	}
	branches, err := p.parseReturning(toks, scope)
	if err != nil {
		return nil, err
	}
	return branches, p.scanLevel(toks, scope)
}

func (p *stmtParser) parseDelete(toks []utils.Token, parent *Scope) ([]*Branch, error) {
	i := p.skipWords(toks, 1, "LOW_PRIORITY", "QUICK", "IGNORE")
	fromAt := i
	if !at(toks, i).Is("FROM") {
		fromAt = utils.IndexKeyword(toks, i, "FROM")
		if fromAt < 0 {
			return nil, p.errorf(toks[0], "DELETE is missing FROM")
		}
	}
	end := utils.IndexKeyword(toks, fromAt+1, "USING", "WHERE", "RETURNING", "ORDER", "LIMIT")
	if end < 0 {
		end = len(toks)
	}
	if end == fromAt+1 {
		return nil, p.errorf(toks[fromAt], "DELETE is missing a table name")
	}
	scope := &Scope{Parent: parent}
	refs, err := p.parseFrom(toks[fromAt+1:end], scope)
	if err != nil {
		return nil, err
	}
	scope.Tables = refs
	if at(toks, end).Is("USING") {
		usingEnd := utils.IndexKeyword(toks, end+1, "WHERE", "RETURNING")
		if usingEnd < 0 {
			usingEnd = len(toks)
		}
		more, err := p.parseFrom(toks[end+1:usingEnd], scope)
		if err != nil {
			return nil, err
		}
		scope.Tables = append(scope.Tables, more...)
	}

	if err := p.checkClauses(toks); err != nil {
		return nil, err
	}
	branches, err := p.parseReturning(toks, scope)
	if err != nil {
		return nil, err
	}
	return branches, p.scanLevel(toks, scope)
}
