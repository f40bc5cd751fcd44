// Package pull writes the schema of a live database as DDL the catalog can
// load.
package pull

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Rana718/bde/internal/catalog"
	"github.com/Rana718/bde/internal/database"
)

type Options struct {
	Backup     bool
	OutputPath string
}

type Result struct {
	Path   string
	Tables int
	// Unchanged is set when the file already held the pulled schema.
	Unchanged bool
	Backup    string
}

type Service struct {
	introspector database.Introspector
	provider     string
	schemaDir    string
}

func NewService(introspector database.Introspector, provider, schemaDir string) *Service {
	return &Service{introspector: introspector, provider: provider, schemaDir: schemaDir}
}

func (s *Service) Close() error {
	return s.introspector.Close()
}

// Pull introspects the database and writes its tables to one schema file.
func (s *Service) Pull(ctx context.Context, opts Options) (*Result, error) {
	path := opts.OutputPath
	if path == "" {
		path = filepath.Join(s.schemaDir, "schema.sql")
	}

	tables, err := s.introspector.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pull database schema: %w", err)
	}
	res := &Result{Path: path, Tables: len(tables)}
	if len(tables) == 0 {
		return res, nil
	}

	var buf bytes.Buffer
	if err := WriteDDL(&buf, tables, s.provider); err != nil {
		return nil, err
	}
	// the written schema must be one generate can read
	if _, err := catalog.Load(catalog.Source{Name: path, Text: buf.String()}); err != nil {
		return nil, fmt.Errorf("pulled schema does not load: %w", err)
	}

	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, buf.Bytes()) {
		res.Unchanged = true
		return res, nil
	}

	if opts.Backup && err == nil {
		res.Backup = path + ".backup"
		if err := os.WriteFile(res.Backup, existing, 0644); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write schema file: %w", err)
	}
	return res, nil
}
