// Package database reads table definitions from a live database.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/bde/internal/catalog"
)

// Introspector describes the tables of a connected database.
type Introspector interface {
	Connect(ctx context.Context, url string) error
	Close() error
	// Tables returns every base table with its columns in declaration order.
	Tables(ctx context.Context) ([]*catalog.Table, error)
}

var ErrNotConnected = errors.New("database is not connected")

func NewIntrospector(provider string) (Introspector, error) {
	switch strings.ToLower(provider) {
	case "postgresql", "postgres":
		return NewPostgres(), nil
	case "mysql":
		return NewMySQL(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported database provider: %s", provider)
	}
}

type conn struct {
	db *sql.DB
}

func (c *conn) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *conn) ready() error {
	if c.db == nil {
		return ErrNotConnected
	}
	return nil
}

// columnRow is one column as reported by the database catalog.
type columnRow struct {
	table    string
	name     string
	typ      string
	nullable bool
	primary  bool
	def      sql.NullString
}

// collect groups rows, which arrive ordered by table, into tables.
func collect(rows []columnRow) []*catalog.Table {
	var tables []*catalog.Table
	index := make(map[string]*catalog.Table)
	for _, r := range rows {
		t, ok := index[r.table]
		if !ok {
			t = &catalog.Table{Name: r.table}
			index[r.table] = t
			tables = append(tables, t)
		}
		// constraint joins can repeat a column
		if t.Column(r.name) != nil {
			continue
		}
		col := &catalog.Column{
			Name:       r.name,
			Type:       catalog.ParseSQLType(r.typ),
			Nullable:   r.nullable && !r.primary,
			PrimaryKey: r.primary,
		}
		if r.def.Valid && r.def.String != "" && !strings.EqualFold(r.def.String, "NULL") {
			col.Default, col.HasDefault = r.def.String, true
		}
		t.Columns = append(t.Columns, col)
	}
	return tables
}
