package codemodel

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Rana718/bde/internal/naming"
)

// Registry holds the entities created during one build and deduplicates
// them by shape. It is owned by a Builder.
type Registry struct {
	mu       sync.Mutex
	entities []*Entity
	byShape  map[string]*Entity
	byName   map[string]*Entity
	reserved map[string]bool
}

// NewRegistry returns an empty registry that never hands out any of the
// reserved names, compared case-insensitively.
func NewRegistry(reserved ...string) *Registry {
	r := &Registry{
		byShape:  make(map[string]*Entity),
		byName:   make(map[string]*Entity),
		reserved: make(map[string]bool, len(reserved)),
	}
	for _, name := range reserved {
		r.reserved[strings.ToLower(name)] = true
	}
	return r
}

// shapeKey compares column names exactly: rows are read by the names the
// driver reports, so "id" and "ID" are different shapes.
func shapeKey(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Name)
		b.WriteByte(' ')
		b.WriteString(f.Type.String())
		b.WriteByte(',')
	}
	return b.String()
}

func sameShape(a, b []Field) bool {
	return shapeKey(a) == shapeKey(b)
}

// Named returns the entity for a query that requested a name.
func (r *Registry) Named(name, statement string, fields []Field) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reserved[strings.ToLower(name)] {
		return nil, &ReservedEntityNameError{Entity: name, Statement: statement, Reason: "it is the query class name"}
	}
	if naming.IsReservedClass(name) {
		return nil, &ReservedEntityNameError{Entity: name, Statement: statement, Reason: "it is a PHP reserved word"}
	}
	if e, ok := r.byName[strings.ToLower(name)]; ok {
		if !sameShape(e.Fields, fields) {
			return nil, &EntityShapeConflictError{Entity: e.Name, Statement: statement, Existing: e.Fields, Requested: fields}
		}
		return e, nil
	}
	if e, ok := r.byShape[shapeKey(fields)]; ok {
		return e, nil
	}
	return r.create(name, "", fields), nil
}

// Shaped returns the entity with the given fields, creating one named
// after base when none exists yet. A taken name gets a numeric suffix.
func (r *Registry) Shaped(base, table string, fields []Field) *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byShape[shapeKey(fields)]; ok {
		return e
	}
	name := base
	for n := 2; r.taken(name); n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}
	return r.create(name, table, fields)
}

func (r *Registry) taken(name string) bool {
	key := strings.ToLower(name)
	return r.byName[key] != nil || r.reserved[key]
}

func (r *Registry) create(name, table string, fields []Field) *Entity {
	e := &Entity{
		ID:     len(r.entities) + 1,
		Name:   name,
		Table:  table,
		Fields: fields,
	}
	r.entities = append(r.entities, e)
	r.byShape[shapeKey(fields)] = e
	r.byName[strings.ToLower(name)] = e
	return e
}

// Entities returns the entities in creation order.
func (r *Registry) Entities() []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Entity(nil), r.entities...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}
