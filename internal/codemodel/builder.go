package codemodel

import (
	"errors"
	"strings"
	"sync"

	"github.com/Rana718/bde/internal/naming"
	"github.com/Rana718/bde/internal/resolver"
	"github.com/Rana718/bde/internal/types"
)

// Builder turns resolved statements into a CodeModel. Statements are added
// one at a time in declaration order.
type Builder struct {
	mu       sync.Mutex
	registry *Registry
	queries  []*Query
}

// NewBuilder returns a builder whose entities never take a reserved name,
// such as the class that holds the query methods.
func NewBuilder(reserved ...string) *Builder {
	return &Builder{registry: NewRegistry(reserved...)}
}

// Add appends the query for stmt, attaching the entity its rows map to.
func (b *Builder) Add(stmt *resolver.Statement) (*Query, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := &Query{
		Name:        stmt.Name,
		Method:      naming.Camel(stmt.Name),
		Description: stmt.Description,
		File:        stmt.File,
		Line:        stmt.Line,
		Kind:        stmt.Kind.String(),
		Cardinality: stmt.Cardinality,
		SQL:         stmt.SQL,
		Params:      make([]Param, len(stmt.Params)),
		Args:        append([]int(nil), stmt.Args...),
	}
	for i, p := range stmt.Params {
		q.Params[i] = Param{Name: p.Name, Property: naming.Camel(p.Name), Position: p.Position, Type: p.Type}
	}

	if stmt.Cardinality != types.Affected {
		q.Columns = make([]Column, len(stmt.Columns))
		fields := make([]Field, len(stmt.Columns))
		for i, c := range stmt.Columns {
			prop := naming.Camel(c.Name)
			q.Columns[i] = Column{Name: c.Name, Property: prop, Type: c.Type, Table: c.Table, Column: c.Column}
			fields[i] = Field{Name: c.Name, Property: prop, Type: c.Type}
		}

		var entity *Entity
		if stmt.Entity != "" {
			e, err := b.registry.Named(stmt.Entity, stmt.Name, fields)
			if err != nil {
				return nil, err
			}
			entity = e
			if !strings.EqualFold(e.Name, stmt.Entity) {
				q.RequestedEntity = stmt.Entity
			}
		} else {
			table := stmt.SourceTable()
			base := naming.Pascal(stmt.Name) + "Row"
			if table != "" {
				base = naming.Class(table)
			}
			entity = b.registry.Shaped(base, table, fields)
		}
		q.Entity, q.EntityName = entity, entity.Name
	}

	b.queries = append(b.queries, q)
	return q, nil
}

// Build returns the model of every query added so far.
func (b *Builder) Build() *CodeModel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &CodeModel{
		Entities: b.registry.Entities(),
		Queries:  append([]*Query(nil), b.queries...),
	}
}

// Build builds a model from stmts, which must be in declaration order.
// All entity conflicts are reported together and no model is returned.
func Build(stmts []*resolver.Statement) (*CodeModel, error) {
	b := NewBuilder()
	var errs []error
	for _, s := range stmts {
		if _, err := b.Add(s); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return b.Build(), nil
}
