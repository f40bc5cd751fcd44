package pull

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/bde/internal/catalog"
)

const schema = `
CREATE TABLE users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) NOT NULL,
    nickname TEXT,
    balance DECIMAL(10, 2) NOT NULL DEFAULT 0,
    status ENUM('active', 'it''s banned') NOT NULL DEFAULT 'active',
    tags TEXT[],
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE "order items" (
    order_id INT NOT NULL,
    line INT NOT NULL,
    "select" VARCHAR(20),
    PRIMARY KEY (order_id, line)
);
`

func loadTables(t *testing.T, text string) []*catalog.Table {
	t.Helper()
	cat, err := catalog.Load(catalog.Source{Name: "schema.sql", Text: text})
	require.NoError(t, err)
	return cat.Tables()
}

func TestWriteDDLRoundTrip(t *testing.T) {
	want := loadTables(t, schema)
	for _, provider := range []string{"postgresql", "mysql", "sqlite"} {
		t.Run(provider, func(t *testing.T) {
			var b strings.Builder
			require.NoError(t, WriteDDL(&b, want, provider))
			got := loadTables(t, b.String())
			assert.Equal(t, want, got, b.String())
		})
	}
}

func TestWriteDDLQuoting(t *testing.T) {
	tables := loadTables(t, schema)

	var b strings.Builder
	require.NoError(t, WriteDDL(&b, tables, "postgresql"))
	out := b.String()
	assert.Contains(t, out, `CREATE TABLE "users" (`)
	assert.Contains(t, out, `    "id" SERIAL PRIMARY KEY,`)
	assert.Contains(t, out, `    "status" ENUM('active','it''s banned') NOT NULL DEFAULT 'active',`)
	assert.Contains(t, out, `    PRIMARY KEY ("order_id", "line")`)

	b.Reset()
	require.NoError(t, WriteDDL(&b, tables, "mysql"))
	assert.Contains(t, b.String(), "CREATE TABLE `order items` (")
}

type fakeIntrospector struct {
	tables []*catalog.Table
	err    error
	closed bool
}

func (f *fakeIntrospector) Connect(context.Context, string) error { return nil }
func (f *fakeIntrospector) Close() error                          { f.closed = true; return nil }
func (f *fakeIntrospector) Tables(context.Context) ([]*catalog.Table, error) {
	return f.tables, f.err
}

func TestServicePull(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeIntrospector{tables: loadTables(t, schema)}
	svc := NewService(fake, "postgresql", dir)

	res, err := svc.Pull(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schema.sql"), res.Path)
	assert.Equal(t, 2, res.Tables)
	assert.False(t, res.Unchanged)
	assert.FileExists(t, res.Path)

	res, err = svc.Pull(context.Background(), Options{Backup: true})
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Empty(t, res.Backup)

	require.NoError(t, os.WriteFile(res.Path, []byte("-- old\n"), 0o644))
	res, err = svc.Pull(context.Background(), Options{Backup: true})
	require.NoError(t, err)
	assert.Equal(t, res.Path+".backup", res.Backup)
	backup, err := os.ReadFile(res.Backup)
	require.NoError(t, err)
	assert.Equal(t, "-- old\n", string(backup))

	require.NoError(t, svc.Close())
	assert.True(t, fake.closed)
}

func TestServicePullErrors(t *testing.T) {
	dir := t.TempDir()

	svc := NewService(&fakeIntrospector{err: errors.New("boom")}, "mysql", dir)
	_, err := svc.Pull(context.Background(), Options{})
	assert.ErrorContains(t, err, "boom")

	svc = NewService(&fakeIntrospector{}, "mysql", dir)
	res, err := svc.Pull(context.Background(), Options{OutputPath: filepath.Join(dir, "custom.sql")})
	require.NoError(t, err)
	assert.Zero(t, res.Tables)
	assert.NoFileExists(t, filepath.Join(dir, "custom.sql"))
}
