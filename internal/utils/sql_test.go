package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func texts(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	sql := "SELECT a::int, 'it''s', \"q\"\"x\", :name, $1, ? FROM t -- note\n/* block\ncomment */ WHERE x >= 1.5e3"
	toks, err := Tokenize(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SELECT", "a", "::", "int", ",", "'it''s'", ",", `"q""x"`, ",", ":name", ",", "$1", ",", "?",
		"FROM", "t", "WHERE", "x", ">=", "1.5e3",
	}, texts(toks))
	assert.Equal(t, []TokenKind{
		Ident, Ident, Operator, Ident, Punct, String, Punct, QuotedIdent, Punct, Placeholder, Punct, Placeholder, Punct, Placeholder,
		Ident, Ident, Ident, Ident, Operator, Number,
	}, kinds(toks))

	assert.Equal(t, "it's", toks[5].Value)
	assert.Equal(t, `q"x`, toks[7].Value)
	assert.Equal(t, Named, toks[9].Style)
	assert.Equal(t, "name", toks[9].Value)
	assert.Equal(t, Dollar, toks[11].Style)
	assert.Equal(t, "1", toks[11].Value)
	assert.Equal(t, Question, toks[13].Style)

	where := toks[16]
	assert.Equal(t, 3, where.Line)
	assert.Equal(t, "WHERE", sql[where.Pos:where.End])
}

func TestTokenizeQuoting(t *testing.T) {
	toks, err := TokenizeDialect("SELECT 'a\\'b', `tick`, $$ body 'x' $$, $tag$ y $tag$", "mysql")
	require.NoError(t, err)
	require.Len(t, toks, 8)
	assert.Equal(t, "a'b", toks[1].Value)
	assert.Equal(t, QuotedIdent, toks[3].Kind)
	assert.Equal(t, "tick", toks[3].Value)
	assert.Equal(t, String, toks[5].Kind)
	assert.Equal(t, " body 'x' ", toks[5].Value)
	assert.Equal(t, " y ", toks[7].Value)
}

func TestTokenizeBackslashes(t *testing.T) {
	toks, err := Tokenize(`SELECT id FROM users WHERE name = 'a\' AND bio = E'it\'s'`)
	require.NoError(t, err)
	require.Len(t, toks, 12)
	assert.Equal(t, `a\`, toks[7].Value)
	assert.Equal(t, String, toks[11].Kind)
	assert.Equal(t, "it's", toks[11].Value)
	assert.Equal(t, `E'it\'s'`, toks[11].Text)

	for _, dialect := range []string{"postgresql", "sqlite"} {
		toks, err := TokenizeDialect(`'a\'`, dialect)
		require.NoError(t, err, dialect)
		assert.Equal(t, `a\`, toks[0].Value, dialect)
	}

	_, err = TokenizeDialect(`SELECT 'a\'`, "mysql")
	var se *ScanError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "unterminated string literal", se.Message)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		msg  string
		line int
	}{
		{"string", "SELECT\n'abc", "unterminated string literal", 2},
		{"identifier", `SELECT "abc`, "unterminated quoted identifier", 1},
		{"comment", "SELECT 1 /* never closed", "unterminated block comment", 1},
		{"dollar", "SELECT $q$ open", "unterminated dollar-quoted string", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.sql)
			var se *ScanError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.msg, se.Message)
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestCheckBalanced(t *testing.T) {
	ok, _ := Tokenize("SELECT (a + (b)) FROM t WHERE x IN (1, 2) AND y[1] = 2")
	assert.NoError(t, CheckBalanced(ok))

	unclosed, _ := Tokenize("SELECT (a FROM t")
	assert.EqualError(t, CheckBalanced(unclosed), `line 1: unclosed "("`)

	stray, _ := Tokenize("SELECT a) FROM t")
	assert.EqualError(t, CheckBalanced(stray), `line 1: unexpected ")"`)

	crossed, _ := Tokenize("SELECT a[1) FROM t")
	assert.Error(t, CheckBalanced(crossed))
}

func TestSplitting(t *testing.T) {
	toks, err := Tokenize("SELECT f(a, b), c FROM t; ; SELECT 2;")
	require.NoError(t, err)

	stmts := SplitStatements(toks)
	require.Len(t, stmts, 2)
	assert.Equal(t, "SELECT f(a, b), c FROM t", Join(stmts[0]))
	assert.Equal(t, "SELECT 2", Join(stmts[1]))

	items := SplitCommas(stmts[0][1:9])
	require.Len(t, items, 2)
	assert.Equal(t, "f(a, b)", Join(items[0]))
	assert.Equal(t, "c", Join(items[1]))

	assert.Equal(t, 6, Closing(toks, 2))
	assert.Equal(t, -1, Closing(toks[:5], 2))

	assert.Equal(t, 9, IndexKeyword(toks, 0, "FROM"))
	assert.Equal(t, -1, IndexKeyword(toks, 3, "f"))
	assert.Equal(t, -1, IndexKeyword(toks[:9], 0, "FROM"))
}

func TestTokenHelpers(t *testing.T) {
	toks, err := Tokenize(`select "select", users`)
	require.NoError(t, err)
	assert.True(t, toks[0].Is("SELECT"))
	assert.False(t, toks[0].IsName())
	assert.True(t, toks[1].IsName())
	assert.False(t, toks[1].Is("select"))
	assert.True(t, toks[2].IsPunct(","))
	assert.True(t, toks[3].IsName())

	assert.True(t, IsReserved("where"))
	assert.False(t, IsReserved("users"))
	assert.True(t, ValidIdentifier("user_id2"))
	assert.False(t, ValidIdentifier("2user"))
	assert.False(t, ValidIdentifier("a b"))
}
