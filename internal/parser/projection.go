package parser

import (
	"fmt"
	"strings"

	"github.com/Rana718/bde/internal/utils"
)

func (p *stmtParser) parseProjection(toks []utils.Token, scope *Scope) ([]*ResultColumnRef, error) {
	items := utils.SplitCommas(toks)
	cols := make([]*ResultColumnRef, 0, len(items))
	for idx, item := range items {
		if len(item) == 0 {
			return nil, p.errorf(at(toks, 0), "empty result column at position %d", idx+1)
		}
		col, err := p.parseResultColumn(item, idx, scope)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (p *stmtParser) parseResultColumn(item []utils.Token, idx int, scope *Scope) (*ResultColumnRef, error) {
	if len(item) == 1 && item[0].IsOp("*") {
		return &ResultColumnRef{OutputName: "*", Wildcard: true, Source: &ColumnRef{Scope: scope}}, nil
	}
	if n := len(item); n >= 3 && item[n-1].IsOp("*") && item[n-2].IsPunct(".") && item[n-3].IsName() {
		return &ResultColumnRef{
			OutputName: "*",
			Wildcard:   true,
			Source:     &ColumnRef{Table: item[n-3].Value, Scope: scope},
		}, nil
	}

	if last := item[len(item)-1]; last.Is("AS") {
		return nil, p.errorf(last, "AS in result column %d is not followed by an alias", idx+1)
	}
	expr, alias := splitAlias(item)
	if len(expr) == 0 {
		return nil, p.errorf(item[0], "result column %d has an alias but no expression", idx+1)
	}
	col := &ResultColumnRef{}
	if ref := bareColumn(expr); ref != nil {
		ref.Scope = scope
		col.Source = ref
		col.OutputName = ref.Column
	} else {
		col.IsComputed = true
		col.OutputName = derivedName(expr, idx)
	}
	if alias != "" {
		col.OutputName = alias
	}
	return col, nil
}

// splitAlias separates "expr [AS] alias".
func splitAlias(item []utils.Token) ([]utils.Token, string) {
	depth, caseDepth, asAt := 0, 0, -1
	for i, t := range item {
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case depth == 0 && t.Is("CASE"):
			caseDepth++
		case depth == 0 && t.Is("END"):
			caseDepth--
		case depth == 0 && caseDepth == 0 && t.Is("AS"):
			asAt = i
		}
	}
	if asAt >= 0 && asAt == len(item)-2 {
		return item[:asAt], item[asAt+1].Value
	}

	n := len(item)
	if n < 2 {
		return item, ""
	}
	last, prev := item[n-1], item[n-2]
	if !last.IsName() {
		return item, ""
	}
	if endsOperand(prev) {
		return item[:n-1], last.Value
	}
	return item, ""
}

// endsOperand reports whether an expression can end with t, so that a
// following name is an implicit alias.
func endsOperand(t utils.Token) bool {
	switch t.Kind {
	case utils.Number, utils.String, utils.QuotedIdent, utils.Placeholder:
		return true
	case utils.Punct:
		return t.Text == ")" || t.Text == "]"
	case utils.Ident:
		if !utils.IsReserved(t.Text) {
			return true
		}
		return t.Is("END") || t.Is("NULL") || t.Is("TRUE") || t.Is("FALSE")
	}
	return false
}

// bareColumn recognises "col", "t.col" and "schema.t.col".
func bareColumn(expr []utils.Token) *ColumnRef {
	switch {
	case len(expr) == 1 && expr[0].IsName():
		return &ColumnRef{Column: expr[0].Value}
	case len(expr) == 3 && expr[0].IsName() && expr[1].IsPunct(".") && expr[2].IsName():
		return &ColumnRef{Table: expr[0].Value, Column: expr[2].Value}
	case len(expr) == 5 && expr[0].IsName() && expr[1].IsPunct(".") && expr[2].IsName() &&
		expr[3].IsPunct(".") && expr[4].IsName():
		return &ColumnRef{Table: expr[2].Value, Column: expr[4].Value}
	}
	return nil
}

// derivedName names a computed column that has no alias.
func derivedName(expr []utils.Token, idx int) string {
	if expr[0].Kind == utils.Ident && at(expr, 1).IsPunct("(") {
		return strings.ToLower(expr[0].Text)
	}
	if cast := castOperand(expr); cast != nil {
		return cast.Column
	}
	return fmt.Sprintf("column%d", idx+1)
}

func castOperand(expr []utils.Token) *ColumnRef {
	for i, t := range expr {
		if t.IsOp("::") {
			return bareColumn(expr[:i])
		}
	}
	return nil
}
