package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/bde/internal/codemodel"
	"github.com/Rana718/bde/internal/parser"
	"github.com/Rana718/bde/internal/types"
)

var (
	intT    = types.ResolvedType{Kind: types.Int}
	stringN = types.ResolvedType{Kind: types.String, Nullable: true}
)

func sampleModel() *codemodel.CodeModel {
	users := &codemodel.Entity{
		ID:    1,
		Name:  "Users",
		Table: "Users",
		Fields: []codemodel.Field{
			{Name: "id", Property: "id", Type: intT},
			{Name: "name", Property: "name", Type: stringN},
		},
	}
	return &codemodel.CodeModel{
		Entities: []*codemodel.Entity{users},
		Queries: []*codemodel.Query{{
			Name:        "GetUser",
			Method:      "getUser",
			Description: "Fetch one user.",
			Kind:        "select",
			Cardinality: types.One,
			SQL:         "SELECT id, name FROM Users WHERE id = :id",
			Params:      []codemodel.Param{{Name: "id", Property: "id", Type: intT}},
			Args:        []int{0},
			Entity:      users,
			EntityName:  "Users",
		}},
	}
}

const wantEntity = `<?php

declare(strict_types=1);

namespace App\Db;

final class Users
{
    /** @var int */
    public int $id;

    /** @var ?string */
    public ?string $name;

    /**
     * @param array<string, mixed> $row
     */
    public static function fromRow(array $row): self
    {
        $entity = new self();
        $entity->id = (int) $row['id'];
        $entity->name = $row['name'] === null ? null : (string) $row['name'];

        return $entity;
    }
}
`

const wantQueries = `<?php

declare(strict_types=1);

namespace App\Db;

final class Queries
{
    public function __construct(private \PDO $pdo)
    {
    }

    /**
     * Fetch one user.
     *
     * @param int $id
     * @return ?Users
     */
    public function getUser(int $id): ?Users
    {
        $stmt = $this->pdo->prepare(<<<'SQL'
            SELECT id, name FROM Users WHERE id = :id
            SQL);
        $stmt->execute(['id' => $id]);
        $row = $stmt->fetch(\PDO::FETCH_ASSOC);

        return $row === false ? null : Users::fromRow($row);
    }
}
`

func TestRender(t *testing.T) {
	r, err := New(Options{Namespace: `App\Db`})
	require.NoError(t, err)

	files, err := r.Render(sampleModel())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "Users.php", files[0].Path)
	assert.Equal(t, wantEntity, string(files[0].Content))
	assert.Equal(t, "Queries.php", files[1].Path)
	assert.Equal(t, wantQueries, string(files[1].Content))
}

func TestRenderFileClash(t *testing.T) {
	r, err := New(Options{QueriesClass: "Users"})
	require.NoError(t, err)
	_, err = r.Render(sampleModel())
	assert.EqualError(t, err, "entity Users and query class Users would both be written to Users.php")

	model := sampleModel()
	model.Entities = append(model.Entities, &codemodel.Entity{ID: 2, Name: "USERS"})
	r, err = New(Options{})
	require.NoError(t, err)
	_, err = r.Render(model)
	assert.EqualError(t, err, "entity Users and entity USERS would both be written to USERS.php")
}

func TestRenderCardinalities(t *testing.T) {
	model := sampleModel()
	users := model.Entities[0]
	created := types.ResolvedType{Kind: types.DateTime}
	model.Queries = append(model.Queries,
		&codemodel.Query{
			Name: "ListUsers", Method: "listUsers", Cardinality: types.Many,
			SQL: "SELECT id, name FROM Users\nORDER BY id", Entity: users,
		},
		&codemodel.Query{
			Name: "Touch", Method: "touch", Cardinality: types.Affected,
			SQL:    "UPDATE Users SET seen_at = ? WHERE id = ? OR parent_id = ?",
			Params: []codemodel.Param{{Name: "seen_at", Property: "seenAt", Type: created}, {Name: "id", Property: "id", Position: 1, Type: intT}},
			Args:   []int{0, 1, 1},
		},
	)

	r, err := New(Options{QueriesClass: "UserQueries", Placeholders: parser.PlaceholderQuestion})
	require.NoError(t, err)
	files, err := r.Render(model)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "UserQueries.php", files[1].Path)

	out := string(files[1].Content)
	assert.NotContains(t, out, "namespace")
	assert.Contains(t, out, "final class UserQueries\n")
	assert.Contains(t, out, "     * @return list<Users>\n")
	assert.Contains(t, out, "    public function listUsers(): array\n")
	assert.Contains(t, out, "            SELECT id, name FROM Users\n            ORDER BY id\n            SQL);\n")
	assert.Contains(t, out, "return array_map([Users::class, 'fromRow'], $stmt->fetchAll(\\PDO::FETCH_ASSOC));")
	assert.Contains(t, out, "    public function touch(\\DateTimeImmutable $seenAt, int $id): int\n")
	assert.Contains(t, out, "$stmt->execute([$seenAt->format('Y-m-d H:i:s'), $id, $id]);")
	assert.Contains(t, out, "        return $stmt->rowCount();\n    }\n}\n")
	// positional binding for the first query too
	assert.Contains(t, out, "$stmt->execute([$id]);")
}

func TestTypeFuncsAreTotal(t *testing.T) {
	kinds := []types.Kind{types.Unknown, types.Int, types.Float, types.String, types.Bool, types.DateTime, types.Bytes}
	for _, k := range kinds {
		for _, nullable := range []bool{false, true} {
			rt := types.ResolvedType{Kind: k, Nullable: nullable}
			assert.NotEmpty(t, phpType(rt), rt.String())
			assert.NotEmpty(t, docType(rt), rt.String())
			assert.Contains(t, cast(rt, "$v"), "$v", rt.String())
			assert.Contains(t, bind(rt, "$v"), "$v", rt.String())
		}
	}
	assert.Equal(t, "mixed", phpType(types.UnknownNullable))
	assert.Equal(t, "?int", phpType(types.ResolvedType{Kind: types.Int, Nullable: true}))
	assert.Equal(t, `?\DateTimeImmutable`, phpType(types.ResolvedType{Kind: types.DateTime, Nullable: true}))
	assert.Equal(t, "$v", cast(types.UnknownNullable, "$v"))
	assert.Equal(t, `$v === null ? null : new \DateTimeImmutable($v)`, cast(types.ResolvedType{Kind: types.DateTime, Nullable: true}, "$v"))
	assert.Equal(t, "(float) $v", cast(types.ResolvedType{Kind: types.Float}, "$v"))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "created_at", prop("created_at"))
	assert.Equal(t, "firstName", prop("first name"))
	assert.Equal(t, "_2fa", prop("2fa"))
	assert.Equal(t, `'it\'s'`, phpStr("it's"))
	assert.Equal(t, "  a\n\n  b", indent(2, "a\n\nb"))
}

func TestTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entity.php.tmpl"), []byte("{{ .Entity.Name }}:{{ len .Entity.Fields }}\n"), 0o644))

	r, err := New(Options{TemplateDir: dir})
	require.NoError(t, err)
	files, err := r.Render(sampleModel())
	require.NoError(t, err)
	assert.Equal(t, "Users:2\n", string(files[0].Content))
	// not overridden
	assert.Contains(t, string(files[1].Content), "final class Queries")

	_, err = New(Options{TemplateDir: filepath.Join(dir, "missing")})
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries.php.tmpl"), []byte("{{ .Broken "), 0o644))
	_, err = New(Options{TemplateDir: dir})
	assert.Error(t, err)
}
