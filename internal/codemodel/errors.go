package codemodel

import (
	"fmt"
	"strings"
)

// EntityShapeConflictError is returned when a query asks for a named
// entity that already exists with different fields.
type EntityShapeConflictError struct {
	Entity    string
	Statement string
	Existing  []Field
	Requested []Field
}

func (e *EntityShapeConflictError) Error() string {
	return fmt.Sprintf("%s: entity %s is already defined as (%s), query returns (%s)",
		e.Statement, e.Entity, describe(e.Existing), describe(e.Requested))
}

// ReservedEntityNameError is returned when a query asks for an entity name
// that cannot be generated as its own class.
type ReservedEntityNameError struct {
	Entity    string
	Statement string
	Reason    string
}

func (e *ReservedEntityNameError) Error() string {
	return fmt.Sprintf("%s: entity name %s cannot be used: %s", e.Statement, e.Entity, e.Reason)
}

func describe(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + " " + f.Type.String()
	}
	return strings.Join(parts, ", ")
}
