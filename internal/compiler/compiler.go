// Package compiler runs the query pipeline over a batch of annotated
// units: parse, resolve and build the code model.
package compiler

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Rana718/bde/internal/catalog"
	"github.com/Rana718/bde/internal/codemodel"
	"github.com/Rana718/bde/internal/parser"
	"github.com/Rana718/bde/internal/resolver"
)

type Options struct {
	// Workers bounds how many units are parsed and resolved at once.
	Workers      int
	Placeholders parser.PlaceholderStyle
	Dialect      string
	// QueriesClass is the generated class holding the query methods; no
	// entity is given its name.
	QueriesClass string
}

type Compiler struct {
	cat  *catalog.Catalog
	opts Options
}

func New(cat *catalog.Catalog, opts Options) *Compiler {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Placeholders == "" {
		opts.Placeholders = parser.PlaceholderNamed
	}
	if opts.QueriesClass == "" {
		opts.QueriesClass = "Queries"
	}
	return &Compiler{cat: cat, opts: opts}
}

// Compile returns the model of units, or every per-query error joined.
// A failing unit does not stop the others from being checked.
func (c *Compiler) Compile(ctx context.Context, units []*parser.Unit) (*codemodel.CodeModel, error) {
	failures := make([]error, len(units))
	first := make(map[string]*parser.Unit, len(units))
	for i, u := range units {
		if prev, ok := first[u.Name]; ok {
			failures[i] = wrap(u, &parser.DuplicateStatementNameError{
				Name:      u.Name,
				File:      u.File,
				Line:      u.Line,
				FirstFile: prev.File,
				FirstLine: prev.Line,
			})
			continue
		}
		first[u.Name] = u
	}

	resolved := make([]*resolver.Statement, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, u := range units {
		if failures[i] != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stmt, err := c.compileUnit(u)
			if err != nil {
				failures[i] = wrap(u, err)
				return nil
			}
			resolved[i] = stmt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var errs []error
	b := codemodel.NewBuilder(c.opts.QueriesClass)
	for i, stmt := range resolved {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := b.Add(stmt); err != nil {
			errs = append(errs, wrap(units[i], err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b.Build(), nil
}

func (c *Compiler) compileUnit(u *parser.Unit) (*resolver.Statement, error) {
	stmt, err := parser.Parse(u, parser.Options{Placeholders: c.opts.Placeholders, Dialect: c.opts.Dialect})
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(stmt, c.cat)
}

// LoadUnits reads query files in order. Units that fail to split are
// reported as StatementErrors; the rest are returned.
func LoadUnits(paths ...string) ([]*parser.Unit, error) {
	var (
		units []*parser.Unit
		errs  []error
	)
	for _, path := range paths {
		got, err := parser.ParseFile(path)
		units = append(units, got...)
		if err != nil {
			errs = append(errs, locate(err)...)
		}
	}
	return units, errors.Join(errs...)
}

func locate(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, locate(e)...)
		}
		return out
	}
	var syn *parser.SyntaxError
	if errors.As(err, &syn) {
		return []error{&StatementError{Statement: syn.Statement, File: syn.File, Line: syn.Line, Err: err}}
	}
	return []error{err}
}
