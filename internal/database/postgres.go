package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Rana718/bde/internal/catalog"
)

type Postgres struct {
	conn
	qb squirrel.StatementBuilderType
	// Schema is the namespace introspected, "public" unless set.
	Schema string
}

func NewPostgres() *Postgres {
	return &Postgres{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		Schema: "public",
	}
}

// NewPostgresWithDB wraps an already open connection.
func NewPostgresWithDB(db *sql.DB) *Postgres {
	p := NewPostgres()
	p.db = db
	return p
}

func (p *Postgres) Connect(ctx context.Context, url string) error {
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	p.db = db
	return nil
}

const postgresPrimaryKeys = `(
	SELECT kcu.table_name, kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = ?
) pk ON c.table_name = pk.table_name AND c.column_name = pk.column_name`

func (p *Postgres) Tables(ctx context.Context) ([]*catalog.Table, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	query, args, err := p.qb.
		Select(
			"c.table_name", "c.column_name", "c.data_type", "c.udt_name", "c.is_nullable", "c.column_default",
			"c.character_maximum_length", "c.numeric_precision", "c.numeric_scale",
			"pk.column_name IS NOT NULL AS is_primary",
		).
		From("information_schema.columns c").
		Join("information_schema.tables t ON t.table_name = c.table_name AND t.table_schema = c.table_schema").
		LeftJoin(postgresPrimaryKeys, p.Schema).
		Where(squirrel.Eq{"c.table_schema": p.Schema, "t.table_type": "BASE TABLE"}).
		OrderBy("c.table_name", "c.ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema: %w", err)
	}
	defer rows.Close()

	var columns []columnRow
	for rows.Next() {
		var (
			r                               columnRow
			dataType, udtName, isNullable   string
			length, precision, numericScale sql.NullInt64
		)
		if err := rows.Scan(&r.table, &r.name, &dataType, &udtName, &isNullable, &r.def,
			&length, &precision, &numericScale, &r.primary); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.nullable = isNullable == "YES"
		r.typ = postgresType(dataType, udtName, length, precision, numericScale, r.def.String)
		if strings.Contains(r.def.String, "nextval(") {
			r.def = sql.NullString{}
		}
		columns = append(columns, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return collect(columns), nil
}

func postgresType(dataType, udtName string, length, precision, scale sql.NullInt64, def string) string {
	serial := strings.Contains(def, "nextval(")
	switch dataType {
	case "integer":
		if serial {
			return "SERIAL"
		}
		return "INTEGER"
	case "bigint":
		if serial {
			return "BIGSERIAL"
		}
		return "BIGINT"
	case "smallint":
		if serial {
			return "SMALLSERIAL"
		}
		return "SMALLINT"
	case "character varying":
		if length.Valid {
			return fmt.Sprintf("VARCHAR(%d)", length.Int64)
		}
		return "VARCHAR"
	case "character":
		if length.Valid {
			return fmt.Sprintf("CHAR(%d)", length.Int64)
		}
		return "CHAR"
	case "numeric":
		if precision.Valid && scale.Valid {
			return fmt.Sprintf("NUMERIC(%d,%d)", precision.Int64, scale.Int64)
		} else if precision.Valid {
			return fmt.Sprintf("NUMERIC(%d)", precision.Int64)
		}
		return "NUMERIC"
	case "ARRAY":
		return strings.ToUpper(strings.TrimPrefix(udtName, "_")) + "[]"
	case "USER-DEFINED":
		return udtName
	default:
		return strings.ToUpper(dataType)
	}
}
