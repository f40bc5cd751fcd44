package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Rana718/bde/internal/naming"
	"github.com/Rana718/bde/internal/types"
	"github.com/Rana718/bde/internal/utils"
)

const phpDateFormat = "Y-m-d H:i:s"

var phpTypes = map[types.Kind]string{
	types.Unknown:  "mixed",
	types.Int:      "int",
	types.Float:    "float",
	types.String:   "string",
	types.Bool:     "bool",
	types.DateTime: `\DateTimeImmutable`,
	types.Bytes:    "string",
}

// phpType is the declaration type. mixed already admits null.
func phpType(t types.ResolvedType) string {
	name, ok := phpTypes[t.Kind]
	if !ok {
		name = "mixed"
	}
	if t.Nullable && name != "mixed" {
		return "?" + name
	}
	return name
}

func docType(t types.ResolvedType) string {
	return phpType(t)
}

// cast converts a fetched column value to the property type.
func cast(t types.ResolvedType, expr string) string {
	var conv string
	switch t.Kind {
	case types.Int:
		conv = "(int) " + expr
	case types.Float:
		conv = "(float) " + expr
	case types.String, types.Bytes:
		conv = "(string) " + expr
	case types.Bool:
		conv = "(bool) " + expr
	case types.DateTime:
		conv = `new \DateTimeImmutable(` + expr + ")"
	default:
		return expr
	}
	if t.Nullable {
		return expr + " === null ? null : " + conv
	}
	return conv
}

// bind converts a parameter for PDO.
func bind(t types.ResolvedType, expr string) string {
	switch t.Kind {
	case types.DateTime:
		if t.Nullable {
			return fmt.Sprintf("%s?->format('%s')", expr, phpDateFormat)
		}
		return fmt.Sprintf("%s->format('%s')", expr, phpDateFormat)
	case types.Bool:
		if t.Nullable {
			return expr + " === null ? null : (int) " + expr
		}
		return "(int) " + expr
	}
	return expr
}

// prop makes a column name usable as a PHP property.
func prop(name string) string {
	if utils.ValidIdentifier(name) {
		return name
	}
	if p := naming.Camel(name); p != "" && utils.ValidIdentifier(p) {
		return p
	}
	return "_" + naming.Snake(name)
}

// phpStr quotes s as a single-quoted PHP string.
func phpStr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"phpType": phpType,
		"docType": docType,
		"cast":    cast,
		"bind":    bind,
		"prop":    prop,
		"phpStr":  phpStr,
		"indent":  indent,
		"pascal":  naming.Pascal,
		"camel":   naming.Camel,
		"snake":   naming.Snake,
	}
}
