package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/bde/internal/catalog"
	"github.com/Rana718/bde/internal/parser"
	"github.com/Rana718/bde/internal/types"
)

const schema = `
CREATE TABLE Users (
    id INT NOT NULL,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    name TEXT NULL
);

CREATE TABLE posts (
    id SERIAL PRIMARY KEY,
    user_id INT NOT NULL,
    title VARCHAR(255) NOT NULL,
    score DOUBLE PRECISION,
    tags TEXT[],
    meta JSON NOT NULL,
    body BYTEA,
    published BOOLEAN NOT NULL DEFAULT FALSE
);
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(catalog.Source{Name: "schema.sql", Text: schema})
	require.NoError(t, err)
	return cat
}

func resolve(t *testing.T, text string) (*Statement, error) {
	t.Helper()
	units, err := parser.ParseUnits("queries.sql", text)
	require.NoError(t, err)
	require.Len(t, units, 1)
	stmt, err := parser.Parse(units[0], parser.Options{})
	require.NoError(t, err)
	return Resolve(stmt, testCatalog(t))
}

func mustResolve(t *testing.T, text string) *Statement {
	t.Helper()
	stmt, err := resolve(t, text)
	require.NoError(t, err)
	return stmt
}

func columnTypes(s *Statement) []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name + ":" + c.Type.String()
	}
	return out
}

func paramTypes(s *Statement) []string {
	out := make([]string, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Name + ":" + p.Type.String()
	}
	return out
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		sqlType string
		want    types.Kind
	}{
		{"int", types.Int},
		{"BIGINT UNSIGNED", types.Int},
		{"serial", types.Int},
		{"numeric(10,2)", types.Float},
		{"double precision", types.Float},
		{"varchar(20)", types.String},
		{"text", types.String},
		{"enum('a','b')", types.String},
		{"boolean", types.Bool},
		{"timestamp with time zone", types.DateTime},
		{"date", types.DateTime},
		{"bytea", types.Bytes},
		{"jsonb", types.Unknown},
		{"text[]", types.Unknown},
		{"geometry", types.Unknown},
		{"interval", types.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.sqlType, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(catalog.ParseSQLType(tt.sqlType)))
		})
	}
	assert.Equal(t, types.String, KindOf(catalog.SQLType{Name: "MOOD", Family: catalog.FamilyEnum}))
}

func TestResolveScenarioA(t *testing.T) {
	stmt := mustResolve(t, `
-- name: GetUser :one
-- param: id int
SELECT id, username, email, created_at, name FROM Users WHERE id = :id;
`)
	assert.Equal(t, []string{"id:int!"}, paramTypes(stmt))
	assert.Equal(t, []string{
		"id:int!", "username:string!", "email:string!", "created_at:datetime!", "name:string?",
	}, columnTypes(stmt))
	assert.Equal(t, "Users", stmt.SourceTable())
	assert.Equal(t, "Users", stmt.Columns[0].Table)
}

func TestResolveUnknownKindKeepsNullability(t *testing.T) {
	stmt := mustResolve(t, `
-- name: PostMeta :many
SELECT tags, meta FROM posts WHERE meta = :meta
`)
	assert.Equal(t, []string{"tags:unknown?", "meta:unknown!"}, columnTypes(stmt))
	assert.Equal(t, []string{"meta:unknown!"}, paramTypes(stmt))
}

func TestResolveRecursiveCTE(t *testing.T) {
	stmt := mustResolve(t, `
-- name: Chain :many
WITH RECURSIVE chain AS (
    SELECT id, username FROM Users WHERE id = :root
    UNION ALL
    SELECT * FROM chain
)
SELECT * FROM chain
`)
	assert.Equal(t, []string{"id:int!", "username:string!"}, columnTypes(stmt))
	assert.Equal(t, []string{"root:int!"}, paramTypes(stmt))
}

func TestResolveScenarioC(t *testing.T) {
	stmt := mustResolve(t, `
-- name: DeleteUser :affected
DELETE FROM Users WHERE id = :id
`)
	assert.Empty(t, stmt.Columns)
	assert.Equal(t, []string{"id:int!"}, paramTypes(stmt))
	assert.Equal(t, "Users", stmt.Params[0].Table)
	assert.Equal(t, "id", stmt.Params[0].Column)
}

func TestResolveScenarioD(t *testing.T) {
	stmt := mustResolve(t, `
-- name: CountUsers :one
SELECT COUNT(*) AS total FROM Users
`)
	require.Len(t, stmt.Columns, 1)
	assert.Equal(t, "total", stmt.Columns[0].Name)
	assert.Equal(t, types.UnknownNullable, stmt.Columns[0].Type)
	assert.True(t, stmt.Columns[0].Computed())
	assert.Equal(t, "", stmt.SourceTable())
}

func TestResolveJoinNullability(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "inner join keeps NOT NULL",
			sql:  "SELECT u.username, p.title FROM Users u JOIN posts p ON p.user_id = u.id",
			want: []string{"username:string!", "title:string!"},
		},
		{
			name: "left join makes the joined side nullable",
			sql:  "SELECT u.username, p.title FROM Users u LEFT JOIN posts p ON p.user_id = u.id",
			want: []string{"username:string!", "title:string?"},
		},
		{
			name: "right join makes the preceding side nullable",
			sql:  "SELECT u.username, p.title FROM posts p RIGHT OUTER JOIN Users u ON p.user_id = u.id",
			want: []string{"username:string!", "title:string?"},
		},
		{
			name: "full join makes both sides nullable",
			sql:  "SELECT u.username, p.title FROM Users u FULL JOIN posts p ON p.user_id = u.id",
			want: []string{"username:string?", "title:string?"},
		},
		{
			name: "unknown join side is nullable",
			sql:  "SELECT u.username, p.title FROM (Users u JOIN posts p ON p.user_id = u.id)",
			want: []string{"username:string?", "title:string?"},
		},
		{
			name: "wildcard over the nullable side",
			sql:  "SELECT p.* FROM Users u LEFT JOIN posts p ON p.user_id = u.id",
			want: []string{
				"id:int?", "user_id:int?", "title:string?", "score:float?",
				"tags:unknown?", "meta:unknown?", "body:bytes?", "published:bool?",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := mustResolve(t, "-- name: Q :many\n"+tt.sql)
			assert.Equal(t, tt.want, columnTypes(stmt))
		})
	}
}

func TestResolveDeclaredNullableAlias(t *testing.T) {
	stmt := mustResolve(t, `
-- name: UserPosts :many
-- nullable: p
SELECT u.id, p.title FROM Users u, posts p WHERE p.user_id = u.id
`)
	assert.Equal(t, []string{"id:int!", "title:string?"}, columnTypes(stmt))
}

func TestResolveUnresolvableColumns(t *testing.T) {
	stmt := mustResolve(t, `
-- name: Odd :many
SELECT id, nope, u.missing, x.id FROM Users u JOIN posts p ON p.user_id = u.id
`)
	// id is ambiguous, the rest do not exist
	for _, c := range stmt.Columns {
		assert.Equal(t, types.UnknownNullable, c.Type, c.Name)
	}
}

func TestResolveWildcard(t *testing.T) {
	stmt := mustResolve(t, `
-- name: AllUsers :many
SELECT * FROM Users
`)
	assert.Equal(t, []string{
		"id:int!", "username:string!", "email:string!", "created_at:datetime!", "name:string?",
	}, columnTypes(stmt))

	_, err := resolve(t, "-- name: Missing :many\nSELECT * FROM missing")
	var ute *catalog.UnknownTableError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "missing", ute.Table)

	_, err = resolve(t, "-- name: Series :many\nSELECT * FROM generate_series(1, 10) g")
	require.ErrorAs(t, err, &ute)
}

func TestResolveDuplicateOutputNames(t *testing.T) {
	stmt := mustResolve(t, `
-- name: Pairs :many
SELECT u.id, p.id, p.id FROM Users u JOIN posts p ON p.user_id = u.id
`)
	assert.Equal(t, []string{"id:int!", "id2:int!", "id3:int!"}, columnTypes(stmt))
}

func TestResolveCompound(t *testing.T) {
	stmt := mustResolve(t, `
-- name: Numbers :many
SELECT id AS v FROM Users
UNION ALL
SELECT score FROM posts
`)
	assert.Equal(t, []string{"v:float?"}, columnTypes(stmt))
	assert.Empty(t, stmt.Columns[0].Table)

	stmt = mustResolve(t, `
-- name: Mixed :many
SELECT username, id FROM Users UNION SELECT title, user_id FROM posts
`)
	assert.Equal(t, []string{"username:string!", "id:int!"}, columnTypes(stmt))

	stmt = mustResolve(t, `
-- name: Clash :many
SELECT username FROM Users UNION SELECT id FROM posts
`)
	assert.Equal(t, []string{"username:unknown?"}, columnTypes(stmt))

	_, err := resolve(t, `
-- name: Arity :many
SELECT * FROM Users UNION SELECT id FROM posts
`)
	var se *parser.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "different column counts")
}

func TestResolveSubqueries(t *testing.T) {
	stmt := mustResolve(t, `
-- name: Recent :many
WITH recent AS (SELECT id, title FROM posts)
SELECT r.title, x.n FROM recent r, (SELECT COUNT(*) AS n FROM posts) x
`)
	assert.Equal(t, []string{"title:string!", "n:unknown?"}, columnTypes(stmt))
	assert.Equal(t, "posts", stmt.Columns[0].Table)

	stmt = mustResolve(t, `
-- name: RecentAll :many
WITH recent (post_id, heading) AS (SELECT id, title FROM posts)
SELECT * FROM recent
`)
	assert.Equal(t, []string{"post_id:int!", "heading:string!"}, columnTypes(stmt))

	stmt = mustResolve(t, `
-- name: Authors :many
SELECT u.id FROM Users u
WHERE EXISTS (SELECT 1 FROM posts p WHERE p.user_id = u.id AND p.title = :title)
`)
	assert.Equal(t, []string{"title:string!"}, paramTypes(stmt))
}

func TestResolveParams(t *testing.T) {
	stmt := mustResolve(t, `
-- name: UpdatePost :affected
UPDATE posts SET title = :title, score = :score WHERE id = :id
`)
	assert.Equal(t, []string{"title:string!", "score:float?", "id:int!"}, paramTypes(stmt))

	stmt = mustResolve(t, `
-- name: Page :many
SELECT id FROM Users WHERE lower(username) = :q ORDER BY id LIMIT :limit OFFSET :offset
`)
	assert.Equal(t, []string{"q:unknown?", "limit:int!", "offset:int!"}, paramTypes(stmt))

	// join side does not affect what may be passed in
	stmt = mustResolve(t, `
-- name: Search :many
SELECT u.id FROM Users u LEFT JOIN posts p ON p.user_id = u.id WHERE p.title = :title
`)
	assert.Equal(t, []string{"title:string!"}, paramTypes(stmt))

	stmt = mustResolve(t, `
-- name: CreatePost :one
-- param: title string?
INSERT INTO posts (user_id, title) VALUES (:user_id, :title) RETURNING id
`)
	assert.Equal(t, []string{"user_id:int!", "title:string?"}, paramTypes(stmt))
	assert.Equal(t, []string{"id:int!"}, columnTypes(stmt))
}

func TestResolveColumnOverrides(t *testing.T) {
	stmt := mustResolve(t, `
-- name: CountPosts :one
-- column: total int
SELECT COUNT(*) AS total, MAX(score) FROM posts
`)
	assert.Equal(t, []string{"total:int!", "max:unknown?"}, columnTypes(stmt))

	_, err := resolve(t, `
-- name: BadOverride :one
-- column: nothing int
SELECT COUNT(*) AS total FROM posts
`)
	var se *parser.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "BadOverride", se.Statement)
}

func TestResolveCardinality(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"one without columns", "-- name: A :one\nDELETE FROM Users WHERE id = :id", true},
		{"many without columns", "-- name: A :many\nUPDATE Users SET name = :name", true},
		{"affected with returning", "-- name: A :affected\nDELETE FROM Users WHERE id = :id RETURNING id", true},
		{"affected with select", "-- name: A :exec\nSELECT id FROM Users", true},
		{"many with returning", "-- name: A :many\nDELETE FROM posts WHERE user_id = :user_id RETURNING id", false},
		{"affected update", "-- name: A :execrows\nUPDATE Users SET name = :name WHERE id = :id", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, tt.text)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cme *CardinalityMismatchError
			require.True(t, errors.As(err, &cme), "got %v", err)
			assert.Equal(t, "A", cme.Statement)
		})
	}
}
