package catalog

import (
	"fmt"
	"os"
	"strings"
)

// Catalog maps table names to their columns. It is never modified after
// construction, so concurrent readers need no locking.
type Catalog struct {
	tables  []*Table
	enums   []*Enum
	index   map[string]*Table
	columns map[string]map[string]*Column
}

// New builds a catalog from already described tables, e.g. ones read from
// a live database.
func New(tables []*Table) (*Catalog, error) {
	b := newBuilder()
	for _, t := range tables {
		if err := b.addTable(t, 0); err != nil {
			return nil, err
		}
	}
	return b.catalog(), nil
}

// Load parses every source and builds one catalog from all of them, in order.
func Load(sources ...Source) (*Catalog, error) {
	b := newBuilder()
	for _, src := range sources {
		if err := b.parse(src); err != nil {
			return nil, err
		}
	}
	return b.catalog(), nil
}

// LoadFiles reads and loads schema files in the given order.
func LoadFiles(paths ...string) (*Catalog, error) {
	return LoadDialectFiles("", paths...)
}

// LoadDialectFiles is LoadFiles with the string quoting rules of dialect.
func LoadDialectFiles(dialect string, paths ...string) (*Catalog, error) {
	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
		}
		sources = append(sources, Source{Name: path, Text: string(content), Dialect: dialect})
	}
	return Load(sources...)
}

func (c *Catalog) LookupTable(name string) (*Table, error) {
	if t, ok := c.index[strings.ToLower(name)]; ok {
		return t, nil
	}
	return nil, &UnknownTableError{Table: name, Available: c.TableNames()}
}

func (c *Catalog) LookupColumn(table, column string) (*Column, error) {
	key := strings.ToLower(table)
	cols, ok := c.columns[key]
	if !ok {
		return nil, &UnknownTableError{Table: table, Available: c.TableNames()}
	}
	col, ok := cols[strings.ToLower(column)]
	if !ok {
		return nil, &UnknownColumnError{Table: c.index[key].Name, Column: column}
	}
	return col, nil
}

// Tables returns the tables in declaration order.
func (c *Catalog) Tables() []*Table {
	return c.tables
}

func (c *Catalog) Enums() []*Enum {
	return c.enums
}

func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for _, t := range c.tables {
		names = append(names, t.Name)
	}
	return names
}

func (c *Catalog) Len() int {
	return len(c.tables)
}
