package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/Rana718/bde/internal/catalog"
	"github.com/Rana718/bde/internal/codemodel"
	"github.com/Rana718/bde/internal/compiler"
	"github.com/Rana718/bde/internal/config"
	"github.com/Rana718/bde/internal/gencommon"
)

// project is a loaded configuration with its input files resolved.
type project struct {
	cfg         *config.Config
	schemaFiles []string
	queryFiles  []string
}

func loadProject() (*project, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	schemaFiles, err := cfg.GetSchemaFiles()
	if err != nil {
		return nil, err
	}
	queryFiles, err := cfg.GetQueryFiles()
	if err != nil {
		return nil, err
	}
	if verbose {
		for _, f := range schemaFiles {
			color.White("  schema  %s", f)
		}
		for _, f := range queryFiles {
			color.White("  queries %s", f)
		}
	}
	return &project{cfg: cfg, schemaFiles: schemaFiles, queryFiles: queryFiles}, nil
}

// compile loads the schema and compiles every query. Errors from reading
// query files and from compiling are reported together.
func (p *project) compile(ctx context.Context) (*codemodel.CodeModel, error) {
	cat, err := catalog.LoadDialectFiles(p.cfg.Engine(), p.schemaFiles...)
	if err != nil {
		return nil, err
	}
	if verbose {
		color.White("  %d tables in schema", cat.Len())
	}

	units, loadErr := compiler.LoadUnits(p.queryFiles...)
	c := compiler.New(cat, compiler.Options{
		Workers:      p.cfg.Workers,
		Placeholders: p.cfg.PlaceholderStyle(),
		Dialect:      p.cfg.Engine(),
		QueriesClass: p.cfg.Output.Class,
	})
	model, err := c.Compile(ctx, units)
	if loadErr != nil || err != nil {
		return nil, errors.Join(loadErr, err)
	}
	return model, nil
}

// checksums hashes the inputs that decide the generated output.
func (p *project) checksums() (schema, cfg string, queries map[string]string, err error) {
	schema, err = gencommon.ComputeFilesChecksum(p.schemaFiles)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to hash schema: %w", err)
	}

	queries = make(map[string]string, len(p.queryFiles))
	for _, f := range p.queryFiles {
		hash, err := gencommon.ComputeFileChecksum(f)
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to hash %s: %w", f, err)
		}
		queries[f] = hash
	}

	fingerprint := p.cfg.Fingerprint()
	if p.cfg.Templates != "" {
		templates, _ := filepath.Glob(filepath.Join(p.cfg.Templates, "*.tmpl"))
		hash, err := gencommon.ComputeFilesChecksum(templates)
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to hash templates: %w", err)
		}
		fingerprint = append(fingerprint, hash...)
	}
	return schema, gencommon.ComputeChecksum(fingerprint), queries, nil
}

// reportErrors prints each query failure at its location and returns a
// summary error. Other errors are returned as they are.
func reportErrors(err error) error {
	stmtErrs := compiler.AsStatementErrors(err)
	if len(stmtErrs) == 0 {
		var schemaErr *catalog.SchemaError
		if errors.As(err, &schemaErr) {
			color.Red("❌ %v", schemaErr)
			return fmt.Errorf("schema could not be loaded")
		}
		return err
	}

	faint := color.New(color.Faint)
	for _, se := range stmtErrs {
		location := se.File
		if se.Line > 0 {
			location = fmt.Sprintf("%s:%d", se.File, se.Line)
		}
		if se.Statement != "" {
			color.Red("❌ %s (%s)", se.Statement, location)
		} else {
			color.Red("❌ %s", location)
		}
		fmt.Printf("   %s\n", se.Reason())
		if verbose && se.Snippet != "" {
			faint.Printf("   %s\n", se.Snippet)
		}
	}
	if len(stmtErrs) == 1 {
		return fmt.Errorf("1 query failed to compile")
	}
	return fmt.Errorf("%d queries failed to compile", len(stmtErrs))
}
