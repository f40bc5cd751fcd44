package catalog

import (
	"fmt"
	"strings"
)

// SchemaError reports schema text that could not be loaded. It is fatal
// for a whole run.
type SchemaError struct {
	File    string
	Line    int
	Table   string
	Column  string
	Message string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	switch {
	case e.Table != "" && e.Column != "":
		fmt.Fprintf(&b, "%s.%s: ", e.Table, e.Column)
	case e.Table != "":
		fmt.Fprintf(&b, "table %s: ", e.Table)
	}
	b.WriteString(e.Message)
	return b.String()
}

type UnknownTableError struct {
	Table string
	// Available lists the catalog's tables to help fix typos.
	Available []string
}

func (e *UnknownTableError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("table %q does not exist in schema", e.Table)
	}
	return fmt.Sprintf("table %q does not exist in schema (available: %s)", e.Table, strings.Join(e.Available, ", "))
}

type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column %q does not exist in table %q", e.Column, e.Table)
}
