package parser

import (
	"strings"

	"github.com/Rana718/bde/internal/utils"
)

type joinKind int

const (
	joinInner joinKind = iota
	joinLeft
	joinRight
	joinFull
)

func isJoinStart(t utils.Token) bool {
	for _, kw := range []string{"JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL", "STRAIGHT_JOIN"} {
		if t.Is(kw) {
			return true
		}
	}
	return false
}

// readJoin reads "[NATURAL] [INNER|CROSS|LEFT|RIGHT|FULL] [OUTER] JOIN"
// and returns the index after JOIN, or -1.
func readJoin(toks []utils.Token, i int) (joinKind, int) {
	kind := joinInner
	if at(toks, i).Is("NATURAL") {
		i++
	}
	switch t := at(toks, i); {
	case t.Is("STRAIGHT_JOIN"):
		return joinInner, i + 1
	case t.Is("LEFT"):
		kind = joinLeft
		i++
	case t.Is("RIGHT"):
		kind = joinRight
		i++
	case t.Is("FULL"):
		kind = joinFull
		i++
	case t.Is("INNER") || t.Is("CROSS"):
		i++
	}
	if at(toks, i).Is("OUTER") {
		i++
	}
	if !at(toks, i).Is("JOIN") {
		return kind, -1
	}
	return kind, i + 1
}

// parseFrom reads a FROM list into table refs, marking the refs that sit
// on the absent side of outer joins.
func (p *stmtParser) parseFrom(toks []utils.Token, scope *Scope) ([]*TableRef, error) {
	refs, i, err := p.readFactor(toks, 0, scope)
	if err != nil {
		return nil, err
	}
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.IsPunct(","):
			group, next, err := p.readFactor(toks, i+1, scope)
			if err != nil {
				return nil, err
			}
			refs = append(refs, group...)
			i = next
		case isJoinStart(t):
			kind, next := readJoin(toks, i)
			if next < 0 {
				return nil, p.errorf(t, "expected JOIN after %s", t.Text)
			}
			group, next, err := p.readFactor(toks, next, scope)
			if err != nil {
				return nil, err
			}
			switch kind {
			case joinLeft:
				markNullable(group)
			case joinRight:
				markNullable(refs)
			case joinFull:
				markNullable(refs)
				markNullable(group)
			}
			refs = append(refs, group...)
			i = next
			switch {
			case at(toks, i).Is("ON"):
				i = skipCondition(toks, i+1)
			case at(toks, i).Is("USING") && at(toks, i+1).IsPunct("("):
				i = utils.Closing(toks, i+1) + 1
			}
		default:
			// index hints and other dialect extras
			i++
		}
	}
	for _, ref := range refs {
		if p.nullable[strings.ToLower(ref.RefName())] || p.nullable[strings.ToLower(ref.Name)] {
			ref.Nullable = true
		}
	}
	return refs, nil
}

func markNullable(refs []*TableRef) {
	for _, r := range refs {
		r.Nullable = true
	}
}

func skipCondition(toks []utils.Token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth == 0 && (t.IsPunct(",") || isJoinStart(t)):
			return i
		}
	}
	return i
}

func (p *stmtParser) readFactor(toks []utils.Token, i int, scope *Scope) ([]*TableRef, int, error) {
	i = p.skipWords(toks, i, "LATERAL", "ONLY")
	t := at(toks, i)
	switch {
	case t.IsPunct("("):
		end := utils.Closing(toks, i)
		inner := toks[i+1 : end]
		if len(inner) == 0 {
			return nil, 0, p.errorf(t, "empty parentheses in FROM")
		}
		if isQueryStart(inner[0]) || inner[0].IsPunct("(") {
			_, branches, err := p.parseQuery(inner, scope)
			if err != nil {
				return nil, 0, err
			}
			alias, next, err := p.readAlias(toks, end+1)
			if err != nil {
				return nil, 0, err
			}
			if at(toks, next).IsPunct("(") {
				closeAt := utils.Closing(toks, next)
				var names []string
				for _, part := range utils.SplitCommas(toks[next+1 : closeAt]) {
					if len(part) > 0 {
						names = append(names, part[0].Value)
					}
				}
				branches = renameBranches(branches, names)
				next = closeAt + 1
			}
			ref := &TableRef{Name: alias, Alias: alias, Derived: true, Subquery: branches, SideKnown: true}
			return []*TableRef{ref}, next, nil
		}
		// a parenthesised join: sides inside are not tracked
		group, err := p.parseFrom(inner, scope)
		if err != nil {
			return nil, 0, err
		}
		for _, r := range group {
			r.SideKnown = false
		}
		_, next, err := p.readAlias(toks, end+1)
		if err != nil {
			return nil, 0, err
		}
		return group, next, nil

	case t.IsName():
		name, next, _ := readName(toks, i)
		ref := &TableRef{Name: name, SideKnown: true}
		if at(toks, next).IsPunct("(") {
			// table function such as generate_series(...) or unnest(...)
			next = utils.Closing(toks, next) + 1
			ref.Derived = true
		} else if branches, ok := p.ctes[strings.ToLower(name)]; ok {
			ref.Derived = true
			ref.Subquery = branches
		}
		alias, next, err := p.readAlias(toks, next)
		if err != nil {
			return nil, 0, err
		}
		ref.Alias = alias
		return []*TableRef{ref}, next, nil
	}
	if t.Kind == 0 {
		return nil, 0, p.errorf(at(toks, i-1), "expected a table name")
	}
	return nil, 0, p.errorf(t, "expected a table name, found %q", t.Text)
}

func (p *stmtParser) readAlias(toks []utils.Token, i int) (string, int, error) {
	if as := at(toks, i); as.Is("AS") {
		if t := at(toks, i+1); t.IsName() {
			return t.Value, i + 2, nil
		}
		return "", 0, p.errorf(as, "AS is not followed by an alias")
	}
	if t := at(toks, i); t.IsName() {
		return t.Value, i + 1, nil
	}
	return "", i, nil
}

// readName reads a possibly schema-qualified name and keeps its last part.
func readName(toks []utils.Token, i int) (string, int, bool) {
	if !at(toks, i).IsName() {
		return "", i, false
	}
	name := toks[i].Value
	i++
	for at(toks, i).IsPunct(".") && at(toks, i+1).IsName() {
		name = toks[i+1].Value
		i += 2
	}
	return name, i, true
}
