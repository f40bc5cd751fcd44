// Package render turns a code model into PHP source files through
// text/template.
package render

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Rana718/bde/internal/codemodel"
	"github.com/Rana718/bde/internal/gencommon"
	"github.com/Rana718/bde/internal/parser"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	entityTemplate  = "entity.php.tmpl"
	queriesTemplate = "queries.php.tmpl"
)

type Options struct {
	// TemplateDir holds *.tmpl files that replace the built-in templates
	// of the same name.
	TemplateDir  string
	Namespace    string
	QueriesClass string
	Placeholders parser.PlaceholderStyle
}

type File = gencommon.File

type Renderer struct {
	tmpl *template.Template
	opts Options
}

func New(opts Options) (*Renderer, error) {
	if opts.QueriesClass == "" {
		opts.QueriesClass = "Queries"
	}
	if opts.Placeholders == "" {
		opts.Placeholders = parser.PlaceholderNamed
	}

	tmpl, err := template.New("bde").Funcs(funcMap()).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in templates: %w", err)
	}
	if opts.TemplateDir != "" {
		pattern := filepath.Join(opts.TemplateDir, "*.tmpl")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid template directory %s: %w", opts.TemplateDir, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(opts.TemplateDir); err != nil {
				return nil, fmt.Errorf("template directory %s: %w", opts.TemplateDir, err)
			}
		} else if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
			return nil, fmt.Errorf("failed to parse templates in %s: %w", opts.TemplateDir, err)
		}
	}
	return &Renderer{tmpl: tmpl, opts: opts}, nil
}

type entityView struct {
	Namespace string
	Entity    *codemodel.Entity
}

type queryView struct {
	*codemodel.Query
	DescriptionLines []string
	Signature        string
	Bind             string
	Return           string
	ReturnDoc        string
}

type queriesView struct {
	Namespace string
	Class     string
	Queries   []queryView
}

// Render produces one class per entity and one class holding every query.
// Two classes that would share a file name, compared case-insensitively as
// on macOS and Windows, are an error.
func (r *Renderer) Render(model *codemodel.CodeModel) ([]File, error) {
	files := make([]File, 0, len(model.Entities)+1)
	owners := make(map[string]string, len(model.Entities)+1)
	claim := func(path, owner string) error {
		key := strings.ToLower(path)
		if prev, ok := owners[key]; ok {
			return fmt.Errorf("%s and %s would both be written to %s", prev, owner, path)
		}
		owners[key] = owner
		return nil
	}
	for _, e := range model.Entities {
		if err := claim(e.Name+".php", "entity "+e.Name); err != nil {
			return nil, err
		}
		content, err := r.execute(entityTemplate, entityView{Namespace: r.opts.Namespace, Entity: e})
		if err != nil {
			return nil, fmt.Errorf("failed to render entity %s: %w", e.Name, err)
		}
		files = append(files, File{Path: e.Name + ".php", Content: content})
	}

	if err := claim(r.opts.QueriesClass+".php", "query class "+r.opts.QueriesClass); err != nil {
		return nil, err
	}
	view := queriesView{Namespace: r.opts.Namespace, Class: r.opts.QueriesClass}
	for _, q := range model.Queries {
		view.Queries = append(view.Queries, r.queryView(q))
	}
	content, err := r.execute(queriesTemplate, view)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", r.opts.QueriesClass, err)
	}
	files = append(files, File{Path: r.opts.QueriesClass + ".php", Content: content})
	return files, nil
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	b := gencommon.GetBuilder()
	defer gencommon.PutBuilder(b)
	if err := r.tmpl.ExecuteTemplate(b, name, data); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func (r *Renderer) queryView(q *codemodel.Query) queryView {
	v := queryView{Query: q}
	if d := strings.TrimSpace(q.Description); d != "" {
		v.DescriptionLines = strings.Split(d, "\n")
	}

	sig := make([]string, len(q.Params))
	for i, p := range q.Params {
		sig[i] = phpType(p.Type) + " $" + p.Property
	}
	v.Signature = strings.Join(sig, ", ")

	if r.opts.Placeholders == parser.PlaceholderNamed {
		pairs := make([]string, len(q.Params))
		for i, p := range q.Params {
			pairs[i] = phpStr(p.Name) + " => " + bind(p.Type, "$"+p.Property)
		}
		v.Bind = "[" + strings.Join(pairs, ", ") + "]"
	} else {
		values := make([]string, len(q.Args))
		for i, pos := range q.Args {
			p := q.Params[pos]
			values[i] = bind(p.Type, "$"+p.Property)
		}
		v.Bind = "[" + strings.Join(values, ", ") + "]"
	}

	switch {
	case q.One():
		v.Return, v.ReturnDoc = "?"+q.Entity.Name, "?"+q.Entity.Name
	case q.Many():
		v.Return, v.ReturnDoc = "array", "list<"+q.Entity.Name+">"
	default:
		v.Return, v.ReturnDoc = "int", "int"
	}
	return v
}
