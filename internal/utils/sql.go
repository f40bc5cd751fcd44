package utils

import (
	"fmt"
	"regexp"
	"strings"
)

type TokenKind int

const (
	Ident TokenKind = iota + 1
	QuotedIdent
	String
	Number
	Placeholder
	Operator
	Punct
)

func (k TokenKind) String() string {
	switch k {
	case Ident:
		return "identifier"
	case QuotedIdent:
		return "quoted identifier"
	case String:
		return "string"
	case Number:
		return "number"
	case Placeholder:
		return "placeholder"
	case Operator:
		return "operator"
	case Punct:
		return "punctuation"
	}
	return "token"
}

// PlaceholderStyle of a single placeholder token.
type PlaceholderStyle int

const (
	Named PlaceholderStyle = iota + 1
	Question
	Dollar
)

type Token struct {
	Kind TokenKind
	// Text is the token exactly as written.
	Text string
	// Value is the unquoted identifier, string contents or placeholder
	// name ("" for ?, the digits for $N).
	Value string
	Style PlaceholderStyle
	Pos   int
	End   int
	Line  int
}

// Is reports whether the token is the unquoted keyword kw.
func (t Token) Is(kw string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, kw)
}

func (t Token) IsPunct(p string) bool {
	return t.Kind == Punct && t.Text == p
}

func (t Token) IsOp(op string) bool {
	return t.Kind == Operator && t.Text == op
}

// IsName reports whether the token can name a table, column or alias.
func (t Token) IsName() bool {
	return t.Kind == QuotedIdent || (t.Kind == Ident && !IsReserved(t.Text))
}

type ScanError struct {
	Line    int
	Pos     int
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

var multiCharOps = []string{"->>", "#>>", "::", "<=", ">=", "<>", "!=", "||", "->", "#>", "@>", "<@", "==", "<<", ">>"}

// Tokenize splits SQL into tokens, dropping whitespace and comments. String
// literals follow standard SQL quoting: a quote is escaped only by doubling it.
func Tokenize(sql string) ([]Token, error) {
	return TokenizeDialect(sql, "")
}

// TokenizeDialect is Tokenize with the quoting rules of dialect. Under
// "mysql" a backslash escapes the next character in a string literal;
// elsewhere only E'...' strings treat backslashes that way.
func TokenizeDialect(sql, dialect string) ([]Token, error) {
	backslash := strings.EqualFold(dialect, "mysql")
	tokens := make([]Token, 0, len(sql)/4)
	line := 1
	i := 0
	for i < len(sql) {
		ch := sql[i]
		switch {
		case ch == '\n':
			line++
			i++
			continue
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f':
			i++
			continue
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			continue
		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, &ScanError{Line: line, Pos: i, Message: "unterminated block comment"}
			}
			line += strings.Count(sql[i:i+2+end], "\n")
			i += end + 4
			continue
		}

		start, startLine := i, line
		tok := Token{Pos: start, Line: startLine}
		switch {
		case ch == '\'' || ((ch == 'E' || ch == 'e') && i+1 < len(sql) && sql[i+1] == '\''):
			quote, escapes := i, backslash
			if ch != '\'' {
				quote, escapes = i+1, true
			}
			value, next, err := scanQuoted(sql, quote, '\'', escapes)
			if err != nil {
				return nil, &ScanError{Line: startLine, Pos: start, Message: "unterminated string literal"}
			}
			tok.Kind, tok.Value = String, value
			i = next
		case ch == '"' || ch == '`':
			value, next, err := scanQuoted(sql, i, ch, false)
			if err != nil {
				return nil, &ScanError{Line: startLine, Pos: start, Message: "unterminated quoted identifier"}
			}
			tok.Kind, tok.Value = QuotedIdent, value
			i = next
		case ch == '$' && i+1 < len(sql) && isDigit(sql[i+1]):
			i++
			for i < len(sql) && isDigit(sql[i]) {
				i++
			}
			tok.Kind, tok.Style, tok.Value = Placeholder, Dollar, sql[start+1:i]
		case ch == '$':
			tag := dollarTag(sql, i)
			if tag == "" {
				tok.Kind = Operator
				i++
				break
			}
			end := strings.Index(sql[i+len(tag):], tag)
			if end < 0 {
				return nil, &ScanError{Line: startLine, Pos: start, Message: "unterminated dollar-quoted string"}
			}
			tok.Kind, tok.Value = String, sql[i+len(tag):i+len(tag)+end]
			i += len(tag) + end + len(tag)
		case ch == '?':
			tok.Kind, tok.Style = Placeholder, Question
			i++
		case ch == ':' && i+1 < len(sql) && isIdentStart(sql[i+1]) && !(i > 0 && sql[i-1] == ':'):
			i++
			for i < len(sql) && isAlphaNum(sql[i]) {
				i++
			}
			tok.Kind, tok.Style, tok.Value = Placeholder, Named, sql[start+1:i]
		case isDigit(ch) || (ch == '.' && i+1 < len(sql) && isDigit(sql[i+1])):
			i = scanNumber(sql, i)
			tok.Kind = Number
		case isIdentStart(ch):
			for i < len(sql) && (isAlphaNum(sql[i]) || sql[i] == '$') {
				i++
			}
			tok.Kind, tok.Value = Ident, sql[start:i]
		case strings.IndexByte("(),;.[]", ch) >= 0:
			tok.Kind = Punct
			i++
		default:
			tok.Kind = Operator
			i++
			for _, op := range multiCharOps {
				if strings.HasPrefix(sql[start:], op) {
					i = start + len(op)
					break
				}
			}
		}
		line += strings.Count(sql[start:i], "\n")
		tok.Text = sql[start:i]
		tok.End = i
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func scanQuoted(sql string, i int, quote byte, backslash bool) (string, int, error) {
	var b strings.Builder
	for j := i + 1; j < len(sql); j++ {
		switch c := sql[j]; {
		case backslash && c == '\\' && j+1 < len(sql):
			b.WriteByte(sql[j+1])
			j++
		case c == quote && j+1 < len(sql) && sql[j+1] == quote:
			b.WriteByte(quote)
			j++
		case c == quote:
			return b.String(), j + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated")
}

// dollarTag returns "$tag$" when sql[i:] opens a dollar-quoted string.
func dollarTag(sql string, i int) string {
	j := i + 1
	for j < len(sql) && isAlphaNum(sql[j]) {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1]
	}
	return ""
}

func scanNumber(sql string, i int) int {
	for i < len(sql) && (isDigit(sql[i]) || sql[i] == '.') {
		i++
	}
	if i < len(sql) && (sql[i] == 'e' || sql[i] == 'E') {
		j := i + 1
		if j < len(sql) && (sql[j] == '+' || sql[j] == '-') {
			j++
		}
		if j < len(sql) && isDigit(sql[j]) {
			i = j
			for i < len(sql) && isDigit(sql[i]) {
				i++
			}
		}
	}
	return i
}

// SplitTopLevel cuts tokens at every separator that is not nested in
// parentheses or brackets. Empty pieces are kept.
func SplitTopLevel(tokens []Token, sep func(Token) bool) [][]Token {
	var parts [][]Token
	depth, start := 0, 0
	for i, t := range tokens {
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case depth == 0 && sep(t):
			parts = append(parts, tokens[start:i])
			start = i + 1
		}
	}
	return append(parts, tokens[start:])
}

func SplitCommas(tokens []Token) [][]Token {
	return SplitTopLevel(tokens, func(t Token) bool { return t.IsPunct(",") })
}

// SplitStatements cuts at top-level semicolons and drops empty statements.
func SplitStatements(tokens []Token) [][]Token {
	var out [][]Token
	for _, part := range SplitTopLevel(tokens, func(t Token) bool { return t.IsPunct(";") }) {
		if len(part) > 0 {
			out = append(out, part)
		}
	}
	return out
}

// CheckBalanced verifies parentheses and brackets pair up.
func CheckBalanced(tokens []Token) error {
	var stack []Token
	for _, t := range tokens {
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			stack = append(stack, t)
		case t.IsPunct(")") || t.IsPunct("]"):
			want := "("
			if t.Text == "]" {
				want = "["
			}
			if len(stack) == 0 || stack[len(stack)-1].Text != want {
				return &ScanError{Line: t.Line, Pos: t.Pos, Message: fmt.Sprintf("unexpected %q", t.Text)}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return &ScanError{Line: open.Line, Pos: open.Pos, Message: fmt.Sprintf("unclosed %q", open.Text)}
	}
	return nil
}

// Closing returns the index of the token closing the parenthesis at
// tokens[open], or -1.
func Closing(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct("("):
			depth++
		case tokens[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// IndexKeyword finds the first top-level keyword at or after from.
func IndexKeyword(tokens []Token, from int, keywords ...string) int {
	depth := 0
	for i := from; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case depth == 0 && t.Kind == Ident:
			for _, kw := range keywords {
				if t.Is(kw) {
					return i
				}
			}
		}
	}
	return -1
}

// Join renders tokens back to SQL with single spaces where the source
// had any gap.
func Join(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && t.Pos > tokens[i-1].End {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func isAlphaNum(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Reserved words that can never be an implicit alias or a table name.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true, "INNER": true,
	"LEFT": true, "RIGHT": true, "FULL": true, "OUTER": true, "CROSS": true,
	"NATURAL": true, "ON": true, "USING": true, "AND": true,
	"OR": true, "NOT": true, "IN": true, "LIKE": true, "ILIKE": true, "BETWEEN": true,
	"IS": true, "NULL": true, "GROUP": true, "BY": true, "HAVING": true,
	"ORDER": true, "ASC": true, "DESC": true, "LIMIT": true, "OFFSET": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true,
	"DELETE": true, "CREATE": true, "DROP": true, "ALTER": true, "TABLE": true,
	"AS": true, "DISTINCT": true, "ALL": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "WITH": true, "RECURSIVE": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "RETURNING": true,
	"TRUE": true, "FALSE": true, "WINDOW": true, "FETCH": true, "FOR": true,
	"LATERAL": true, "DEFAULT": true, "CONFLICT": true, "DUPLICATE": true,
	"USE": true, "FORCE": true, "IGNORE": true, "PARTITION": true, "TABLESAMPLE": true,
	"STRAIGHT_JOIN": true, "ONLY": true,
}

func IsReserved(word string) bool {
	return sqlKeywords[strings.ToUpper(word)]
}

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether name can be interpolated into SQL unquoted.
func ValidIdentifier(name string) bool {
	return identifierRegex.MatchString(name)
}
