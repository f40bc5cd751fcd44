package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Rana718/bde/internal/types"
	"github.com/Rana718/bde/internal/utils"
)

var fixedInt = types.ResolvedType{Kind: types.Int}

// scanLevel records the placeholders of one query level and infers the
// column each one is compared with or assigned to. Nested subqueries
// are parsed as their own levels.
func (p *stmtParser) scanLevel(toks []utils.Token, scope *Scope) error {
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct("("):
			end := utils.Closing(toks, i)
			inner := toks[i+1 : end]
			if len(inner) == 0 && at(toks, i-1).Is("IN") {
				return p.errorf(t, "IN list is empty")
			}
			if len(inner) > 0 && isQueryStart(inner[0]) {
				if !p.parsed[inner[0].Pos] {
					if _, _, err := p.parseQuery(inner, scope); err != nil {
						return err
					}
				}
				i = end
				continue
			}
			if ref := p.inListColumn(toks, i, scope); ref != nil {
				for _, v := range utils.SplitCommas(inner) {
					if len(v) == 1 && v[0].Kind == utils.Placeholder {
						p.record(v[0])
						p.setHint(v[0], ref, "")
					}
				}
			}
			if err := p.scanLevel(inner, scope); err != nil {
				return err
			}
			i = end
		case t.Kind == utils.Placeholder:
			p.record(t)
			p.inferAt(toks, i, scope)
		}
	}
	return nil
}

func (p *stmtParser) record(t utils.Token) *occurrence {
	occ, ok := p.occ[t.Pos]
	if !ok {
		occ = &occurrence{tok: t}
		p.occ[t.Pos] = occ
	}
	return occ
}

func (p *stmtParser) setHint(t utils.Token, ref *ColumnRef, suffix string) {
	occ := p.record(t)
	if occ.hint != nil || occ.fixed != nil || ref == nil {
		return
	}
	occ.hint = ref
	occ.name = ref.Column + suffix
}

func (p *stmtParser) setFixed(t utils.Token, name string) {
	occ := p.record(t)
	if occ.hint != nil || occ.fixed != nil {
		return
	}
	fixed := fixedInt
	occ.fixed = &fixed
	occ.name = name
}

func isComparison(t utils.Token) bool {
	switch {
	case t.Kind == utils.Operator:
		switch t.Text {
		case "=", "==", "<>", "!=", "<", ">", "<=", ">=":
			return true
		}
	case t.Is("LIKE") || t.Is("ILIKE"):
		return true
	}
	return false
}

// inferAt looks at the tokens around the placeholder at toks[i].
func (p *stmtParser) inferAt(toks []utils.Token, i int, scope *Scope) {
	t := toks[i]
	prev, next := at(toks, i-1), at(toks, i+1)

	switch {
	case prev.Is("LIMIT") && next.IsPunct(",") && at(toks, i+2).Kind == utils.Placeholder:
		// LIMIT offset, count
		p.setFixed(t, "offset")
		p.setFixed(toks[i+2], "limit")
	case prev.Is("LIMIT"), (prev.Is("FIRST") || prev.Is("NEXT")) && at(toks, i-2).Is("FETCH"):
		p.setFixed(t, "limit")
	case prev.Is("OFFSET"):
		p.setFixed(t, "offset")

	case prev.Is("BETWEEN"):
		k := i - 2
		if at(toks, k).Is("NOT") {
			k--
		}
		p.setHint(t, columnEndingAt(toks, k, scope), "_start")
	case prev.Is("AND") && at(toks, i-3).Is("BETWEEN"):
		k := i - 4
		if at(toks, k).Is("NOT") {
			k--
		}
		p.setHint(t, columnEndingAt(toks, k, scope), "_end")

	case isComparison(prev):
		k := i - 2
		if (prev.Is("LIKE") || prev.Is("ILIKE")) && at(toks, k).Is("NOT") {
			k--
		}
		p.setHint(t, columnEndingAt(toks, k, scope), "")
		if p.occ[t.Pos].hint == nil && isComparison(next) {
			p.setHint(t, columnStartingAt(toks, i+2, scope), "")
		}
	case isComparison(next) && isBoundary(prev):
		p.setHint(t, columnStartingAt(toks, i+2, scope), "")
	}
}

// inListColumn returns the column of "col [NOT] IN (" when toks[open]
// is that parenthesis.
func (p *stmtParser) inListColumn(toks []utils.Token, open int, scope *Scope) *ColumnRef {
	if !at(toks, open-1).Is("IN") {
		return nil
	}
	k := open - 2
	if at(toks, k).Is("NOT") {
		k--
	}
	return columnEndingAt(toks, k, scope)
}

// isBoundary reports whether t can precede the start of an operand.
func isBoundary(t utils.Token) bool {
	switch t.Kind {
	case 0:
		return true
	case utils.Punct:
		return t.Text == "(" || t.Text == ","
	case utils.Ident:
		return utils.IsReserved(t.Text)
	}
	return false
}

// columnEndingAt reads a bare column reference that ends at toks[j] and
// is not part of a larger expression.
func columnEndingAt(toks []utils.Token, j int, scope *Scope) *ColumnRef {
	t := at(toks, j)
	if !t.IsName() {
		return nil
	}
	ref := &ColumnRef{Column: t.Value, Scope: scope}
	k := j - 1
	if at(toks, k).IsPunct(".") {
		if !at(toks, k-1).IsName() {
			return nil
		}
		ref.Table = toks[k-1].Value
		k -= 2
		if at(toks, k).IsPunct(".") && at(toks, k-1).IsName() {
			k -= 2
		}
	}
	if !isBoundary(at(toks, k)) {
		return nil
	}
	return ref
}

func columnStartingAt(toks []utils.Token, j int, scope *Scope) *ColumnRef {
	t := at(toks, j)
	if !t.IsName() {
		return nil
	}
	ref := &ColumnRef{Column: t.Value, Scope: scope}
	k := j + 1
	for at(toks, k).IsPunct(".") && at(toks, k+1).IsName() {
		ref.Table = ref.Column
		ref.Column = toks[k+1].Value
		k += 2
	}
	after := at(toks, k)
	if after.Kind == utils.Operator || after.IsPunct("(") || after.IsPunct(".") || after.IsPunct("[") {
		return nil
	}
	return ref
}

// bindParams turns the recorded placeholder occurrences into parameters.
// Positions follow first occurrence.
func (p *stmtParser) bindParams() ([]*ParameterRef, []int, error) {
	occs := make([]*occurrence, 0, len(p.occ))
	for _, o := range p.occ {
		occs = append(occs, o)
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].tok.Pos < occs[j].tok.Pos })

	declared := p.unit.Params
	seen := make(map[string][]int, len(declared))
	for i, d := range declared {
		seen[d.Name] = append(seen[d.Name], i)
	}
	for _, d := range declared {
		if positions := seen[d.Name]; len(positions) > 1 {
			return nil, nil, &DuplicateParameterError{Statement: p.unit.Name, Name: d.Name, Positions: positions}
		}
	}

	if len(occs) == 0 {
		if len(declared) > 0 {
			return nil, nil, p.errorAt(1, "declared parameter %q is not used in the query", declared[0].Name)
		}
		return nil, nil, nil
	}
	style := occs[0].tok.Style
	for _, o := range occs[1:] {
		if o.tok.Style != style {
			return nil, nil, p.errorf(o.tok, "mixed placeholder styles: %q and %q", occs[0].tok.Text, o.tok.Text)
		}
	}

	var (
		params []*ParameterRef
		args   = make([]int, 0, len(occs))
		firsts []*occurrence
		keys   = make(map[string]*ParameterRef)
	)
	for _, o := range occs {
		key := o.tok.Value
		if style == utils.Question {
			key = strconv.Itoa(o.tok.Pos)
		}
		param, ok := keys[key]
		if !ok {
			param = &ParameterRef{Position: len(params)}
			if style == utils.Named {
				param.Name = o.tok.Value
			}
			keys[key] = param
			params = append(params, param)
			firsts = append(firsts, o)
		}
		if param.Hint == nil && param.Fixed == nil {
			param.Hint, param.Fixed = o.hint, o.fixed
			firsts[param.Position] = o
		}
		args = append(args, param.Position)
	}

	switch style {
	case utils.Named:
		for _, d := range declared {
			param, ok := keys[d.Name]
			if !ok {
				return nil, nil, p.errorAt(1, "declared parameter %q is not used in the query", d.Name)
			}
			param.Override = d.Type
		}
	case utils.Dollar:
		for i, d := range declared {
			param, ok := keys[strconv.Itoa(i+1)]
			if !ok {
				return nil, nil, p.errorAt(1, "declared parameter %q has no $%d placeholder", d.Name, i+1)
			}
			param.Name, param.Override = d.Name, d.Type
		}
	case utils.Question:
		if len(declared) > len(params) {
			return nil, nil, p.errorAt(1, "%d parameters declared but the query has %d placeholders", len(declared), len(params))
		}
		for i, d := range declared {
			params[i].Name, params[i].Override = d.Name, d.Type
		}
	}

	used := make(map[string]bool, len(params))
	for _, param := range params {
		if param.Name != "" {
			used[param.Name] = true
		}
	}
	for _, param := range params {
		if param.Name != "" {
			continue
		}
		base := firsts[param.Position].name
		if base == "" {
			base = fmt.Sprintf("param%d", param.Position+1)
		}
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s%d", base, n)
		}
		used[name] = true
		param.Name = name
	}
	return params, args, nil
}

// normalize rewrites every placeholder in the configured style.
func (p *stmtParser) normalize(style PlaceholderStyle, params []*ParameterRef, args []int) string {
	src := p.unit.SQL
	start, end := p.toks[0].Pos, p.toks[len(p.toks)-1].End

	occs := make([]*occurrence, 0, len(p.occ))
	for _, o := range p.occ {
		occs = append(occs, o)
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].tok.Pos < occs[j].tok.Pos })

	var b strings.Builder
	b.Grow(end - start)
	last := start
	for i, o := range occs {
		b.WriteString(src[last:o.tok.Pos])
		param := params[args[i]]
		switch style {
		case PlaceholderQuestion:
			b.WriteByte('?')
		case PlaceholderDollar:
			fmt.Fprintf(&b, "$%d", param.Position+1)
		default:
			b.WriteByte(':')
			b.WriteString(param.Name)
		}
		last = o.tok.End
	}
	b.WriteString(src[last:end])
	return b.String()
}
