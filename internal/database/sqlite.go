package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Rana718/bde/internal/catalog"
)

type SQLite struct {
	conn
	qb squirrel.StatementBuilderType
}

func NewSQLite() *SQLite {
	return &SQLite{qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)}
}

// NewSQLiteWithDB wraps an already open connection.
func NewSQLiteWithDB(db *sql.DB) *SQLite {
	s := NewSQLite()
	s.db = db
	return s
}

func (s *SQLite) Connect(ctx context.Context, url string) error {
	dbPath := strings.TrimPrefix(url, "sqlite://")
	if !strings.Contains(dbPath, "?") {
		dbPath += "?mode=ro"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLite) Tables(ctx context.Context) ([]*catalog.Table, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	var columns []columnRow
	for _, name := range names {
		cols, err := s.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, cols...)
	}
	return collect(columns), nil
}

func (s *SQLite) tableNames(ctx context.Context) ([]string, error) {
	query, args, err := s.qb.
		Select("name").
		From("sqlite_master").
		Where(squirrel.Eq{"type": "table"}).
		Where(squirrel.NotLike{"name": "sqlite_%"}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLite) tableColumns(ctx context.Context, table string) ([]columnRow, error) {
	// PRAGMA takes no bind parameters
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []columnRow
	for rows.Next() {
		var (
			cid, notNull, pk int
			r                = columnRow{table: table}
		)
		if err := rows.Scan(&cid, &r.name, &r.typ, &notNull, &r.def, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		r.nullable = notNull == 0
		r.primary = pk > 0
		if r.typ == "" {
			// columns declared without a type have BLOB affinity
			r.typ = "BLOB"
		}
		columns = append(columns, r)
	}
	return columns, rows.Err()
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
