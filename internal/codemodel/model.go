package codemodel

import (
	"strings"

	"github.com/Rana718/bde/internal/types"
)

type Field struct {
	Name     string             `json:"name" yaml:"name"`
	Property string             `json:"property" yaml:"property"`
	Type     types.ResolvedType `json:"type" yaml:"type"`
}

// Entity is a generated row type. Entities with the same field sequence
// are the same entity.
type Entity struct {
	ID     int     `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Table  string  `json:"table,omitempty" yaml:"table,omitempty"`
	Fields []Field `json:"fields" yaml:"fields"`
}

type Param struct {
	Name     string             `json:"name" yaml:"name"`
	Property string             `json:"property" yaml:"property"`
	Position int                `json:"position" yaml:"position"`
	Type     types.ResolvedType `json:"type" yaml:"type"`
}

type Column struct {
	Name     string             `json:"name" yaml:"name"`
	Property string             `json:"property" yaml:"property"`
	Type     types.ResolvedType `json:"type" yaml:"type"`
	Table    string             `json:"table,omitempty" yaml:"table,omitempty"`
	Column   string             `json:"column,omitempty" yaml:"column,omitempty"`
}

type Query struct {
	Name        string            `json:"name" yaml:"name"`
	Method      string            `json:"method" yaml:"method"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	File        string            `json:"file,omitempty" yaml:"file,omitempty"`
	Line        int               `json:"line,omitempty" yaml:"line,omitempty"`
	Kind        string            `json:"kind" yaml:"kind"`
	Cardinality types.Cardinality `json:"cardinality" yaml:"cardinality"`
	SQL         string            `json:"sql" yaml:"sql"`
	Params      []Param           `json:"params" yaml:"params"`
	// Args holds the position of the parameter bound to each placeholder.
	Args    []int    `json:"args" yaml:"args"`
	Columns []Column `json:"columns" yaml:"columns"`
	Entity  *Entity  `json:"-" yaml:"-"`
	// EntityName mirrors Entity for serialized models.
	EntityName string `json:"entity,omitempty" yaml:"entity,omitempty"`
	// RequestedEntity is the name asked for with "-- entity:" when an
	// entity of the same shape already existed under EntityName.
	RequestedEntity string `json:"requested_entity,omitempty" yaml:"requested_entity,omitempty"`
}

func (q *Query) One() bool      { return q.Cardinality == types.One }
func (q *Query) Many() bool     { return q.Cardinality == types.Many }
func (q *Query) Affected() bool { return q.Cardinality == types.Affected }

// Lines returns the SQL split into lines for templates that indent it.
func (q *Query) Lines() []string {
	return strings.Split(q.SQL, "\n")
}

// CodeModel is everything a renderer needs: entities in creation order,
// queries in declaration order.
type CodeModel struct {
	Entities []*Entity `json:"entities" yaml:"entities"`
	Queries  []*Query  `json:"queries" yaml:"queries"`
}

// Entity returns the entity with the given name, or nil.
func (m *CodeModel) Entity(name string) *Entity {
	for _, e := range m.Entities {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

func (m *CodeModel) Query(name string) *Query {
	for _, q := range m.Queries {
		if q.Name == name {
			return q
		}
	}
	return nil
}
