package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/Rana718/bde/internal/parser"
)

const FileName = "bde.config.json"

type Config struct {
	Version      string   `json:"version" mapstructure:"version"`
	Dialect      string   `json:"dialect" mapstructure:"dialect"`
	SchemaDir    string   `json:"schema_dir" mapstructure:"schema_dir"` // folder containing .sql schema files
	Queries      string   `json:"queries" mapstructure:"queries"`
	Placeholders string   `json:"placeholders" mapstructure:"placeholders"`
	Output       Output   `json:"output" mapstructure:"output"`
	Templates    string   `json:"templates,omitempty" mapstructure:"templates"`
	Workers      int      `json:"workers,omitempty" mapstructure:"workers"`
	Database     Database `json:"database" mapstructure:"database"`
}

type Output struct {
	Dir       string `json:"dir" mapstructure:"dir"`
	Namespace string `json:"namespace,omitempty" mapstructure:"namespace"`
	Class     string `json:"class,omitempty" mapstructure:"class"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
}

var supportedProviders = []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}

// DefaultConfig returns the configuration written by bde init.
func DefaultConfig(dialect string) *Config {
	cfg := &Config{Dialect: dialect}
	cfg.applyDefaults()
	return cfg
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Dialect == "" {
		c.Dialect = "postgresql"
	}
	if c.SchemaDir == "" {
		c.SchemaDir = "db/schema"
	}
	if c.Queries == "" {
		c.Queries = "db/queries/"
	}
	if c.Placeholders == "" {
		c.Placeholders = string(parser.PlaceholderNamed)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "bde_gen"
	}
	if c.Output.Class == "" {
		c.Output.Class = "Queries"
	}
	if c.Database.Provider == "" {
		c.Database.Provider = c.Dialect
	}
	if c.Database.URLEnv == "" {
		c.Database.URLEnv = "DATABASE_URL"
	}
}

// Engine normalizes the dialect name.
func (c *Config) Engine() string {
	return normalize(c.Dialect)
}

// Provider normalizes the database provider name.
func (c *Config) Provider() string {
	return normalize(c.Database.Provider)
}

func normalize(name string) string {
	switch strings.ToLower(name) {
	case "postgresql", "postgres":
		return "postgresql"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(name)
	}
}

func (c *Config) PlaceholderStyle() parser.PlaceholderStyle {
	return parser.PlaceholderStyle(c.Placeholders)
}

func (c *Config) Validate() error {
	if !supported(c.Dialect) {
		return fmt.Errorf("unsupported dialect: %s. Supported dialects: %v", c.Dialect, supportedProviders)
	}
	if !supported(c.Database.Provider) {
		return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}
	if !c.PlaceholderStyle().Valid() {
		return fmt.Errorf("unsupported placeholder style: %s. Use named, question or dollar", c.Placeholders)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	return nil
}

func supported(name string) bool {
	for _, p := range supportedProviders {
		if strings.EqualFold(name, p) {
			return true
		}
	}
	return false
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.SchemaDir,
		c.Queries,
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetSchemaFiles returns all .sql files in the schema directory, sorted by
// name so numbered files load in order.
func (c *Config) GetSchemaFiles() ([]string, error) {
	return sqlFiles(c.SchemaDir, "schema")
}

// GetQueryFiles returns the query files. Queries may name a directory or a
// single file.
func (c *Config) GetQueryFiles() ([]string, error) {
	if info, err := os.Stat(c.Queries); err == nil && !info.IsDir() {
		return []string{c.Queries}, nil
	}
	return sqlFiles(c.Queries, "queries")
}

func sqlFiles(dir, what string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s directory %s: %w", what, dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql files found in %s directory %s", what, dir)
	}
	return files, nil
}

// Write saves the configuration as indented JSON.
func (c *Config) Write(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Fingerprint serializes the settings that affect generated output.
func (c *Config) Fingerprint() []byte {
	data, _ := json.Marshal(struct {
		Placeholders string
		Output       Output
		Templates    string
	}{c.Placeholders, c.Output, c.Templates})
	return data
}

// IsInitialized reports whether dir holds a config file.
func IsInitialized(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
