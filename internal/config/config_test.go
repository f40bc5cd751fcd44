package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/bde/internal/parser"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "postgresql", cfg.Dialect)
	assert.Equal(t, "db/schema", cfg.SchemaDir)
	assert.Equal(t, "db/queries/", cfg.Queries)
	assert.Equal(t, parser.PlaceholderNamed, cfg.PlaceholderStyle())
	assert.Equal(t, "bde_gen", cfg.Output.Dir)
	assert.Equal(t, "Queries", cfg.Output.Class)
	assert.Equal(t, "postgresql", cfg.Database.Provider)
	assert.Equal(t, "DATABASE_URL", cfg.Database.URLEnv)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "dialect": "mysql",
  "placeholders": "question",
  "workers": 2,
  "output": {"dir": "src/Db", "namespace": "App\\Db"},
  "database": {"url_env": "MY_DB"}
}`), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Engine())
	assert.Equal(t, "mysql", cfg.Provider())
	assert.Equal(t, parser.PlaceholderQuestion, cfg.PlaceholderStyle())
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "src/Db", cfg.Output.Dir)
	assert.Equal(t, `App\Db`, cfg.Output.Namespace)
	assert.Equal(t, "Queries", cfg.Output.Class)
	assert.Equal(t, "MY_DB", cfg.Database.URLEnv)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"sqlite3 alias", func(c *Config) { c.Dialect, c.Database.Provider = "sqlite3", "sqlite3" }, true},
		{"bad dialect", func(c *Config) { c.Dialect = "oracle" }, false},
		{"bad provider", func(c *Config) { c.Database.Provider = "mongodb" }, false},
		{"bad placeholders", func(c *Config) { c.Placeholders = "colon" }, false},
		{"empty output", func(c *Config) { c.Output.Dir = "" }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("postgresql")
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSchemaAndQueryFiles(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema")
	queries := filepath.Join(dir, "queries")
	require.NoError(t, os.MkdirAll(schema, 0o755))
	require.NoError(t, os.MkdirAll(queries, 0o755))
	for _, name := range []string{"002_posts.sql", "001_users.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(schema, name), []byte("--"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(queries, "users.sql"), []byte("--"), 0o644))

	cfg := DefaultConfig("sqlite")
	cfg.SchemaDir = schema
	cfg.Queries = queries

	files, err := cfg.GetSchemaFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(schema, "001_users.sql"), filepath.Join(schema, "002_posts.sql")}, files)

	files, err = cfg.GetQueryFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(queries, "users.sql")}, files)

	cfg.Queries = filepath.Join(queries, "users.sql")
	files, err = cfg.GetQueryFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.Queries}, files)

	cfg.SchemaDir = queries + "-missing"
	_, err = cfg.GetSchemaFiles()
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	cfg.SchemaDir = empty
	_, err = cfg.GetSchemaFiles()
	assert.ErrorContains(t, err, "no .sql files")
}

func TestWriteAndIsInitialized(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	assert.False(t, IsInitialized(dir))

	cfg := DefaultConfig("mysql")
	cfg.Output.Namespace = `App\Db`
	require.NoError(t, cfg.Write(filepath.Join(dir, FileName)))
	assert.True(t, IsInitialized(dir))

	viper.SetConfigFile(filepath.Join(dir, FileName))
	require.NoError(t, viper.ReadInConfig())
	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetDatabaseURL(t *testing.T) {
	cfg := DefaultConfig("postgresql")
	cfg.Database.URLEnv = "BDE_TEST_DATABASE_URL"

	t.Setenv("BDE_TEST_DATABASE_URL", "")
	_, err := cfg.GetDatabaseURL()
	assert.Error(t, err)

	t.Setenv("BDE_TEST_DATABASE_URL", "postgres://localhost/app")
	url, err := cfg.GetDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", url)
}

func TestFingerprint(t *testing.T) {
	a := DefaultConfig("postgresql")
	b := DefaultConfig("mysql")
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Output.Namespace = "App"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
