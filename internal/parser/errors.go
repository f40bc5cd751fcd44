package parser

import (
	"fmt"
	"strings"
)

type SyntaxError struct {
	Statement string
	File      string
	Line      int
	Message   string
}

func (e *SyntaxError) Error() string {
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
	b.WriteString(e.Message)
	return b.String()
}

// DuplicateParameterError is returned when one declared parameter name is
// bound to more than one position.
type DuplicateParameterError struct {
	Statement string
	Name      string
	Positions []int
}

func (e *DuplicateParameterError) Error() string {
	return fmt.Sprintf("%s: parameter %q is declared at positions %v", e.Statement, e.Name, e.Positions)
}

type DuplicateStatementNameError struct {
	Name      string
	File      string
	Line      int
	FirstFile string
	FirstLine int
}

func (e *DuplicateStatementNameError) Error() string {
	return fmt.Sprintf("query %q is already defined at %s:%d", e.Name, e.FirstFile, e.FirstLine)
}
