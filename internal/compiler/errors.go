package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/bde/internal/parser"
)

const snippetWidth = 72

// StatementError locates a failure in one query so it can be fixed at
// its annotation.
type StatementError struct {
	Statement string
	File      string
	Line      int
	Snippet   string
	Err       error
}

func (e *StatementError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	if e.Statement != "" {
		fmt.Fprintf(&b, "%s: ", e.Statement)
	}
	b.WriteString(e.Reason())
	return b.String()
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// Reason is the underlying message without location.
func (e *StatementError) Reason() string {
	var se *parser.SyntaxError
	if errors.As(e.Err, &se) {
		return se.Message
	}
	msg := e.Err.Error()
	return strings.TrimPrefix(msg, e.Statement+": ")
}

func wrap(u *parser.Unit, err error) *StatementError {
	se := &StatementError{Statement: u.Name, File: u.File, Line: u.Line, Snippet: snippet(u.SQL), Err: err}
	var syn *parser.SyntaxError
	if errors.As(err, &syn) && syn.Line > 0 {
		se.Line = syn.Line
	}
	return se
}

func snippet(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if runes := []rune(line); len(runes) > snippetWidth {
			return string(runes[:snippetWidth-3]) + "..."
		}
		return line
	}
	return ""
}

// AsStatementErrors returns every StatementError in err, looking through
// errors.Join.
func AsStatementErrors(err error) []*StatementError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*StatementError
		for _, e := range joined.Unwrap() {
			out = append(out, AsStatementErrors(e)...)
		}
		return out
	}
	var se *StatementError
	if errors.As(err, &se) {
		return []*StatementError{se}
	}
	return nil
}
