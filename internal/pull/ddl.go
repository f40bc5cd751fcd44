package pull

import (
	"fmt"
	"io"
	"strings"

	"github.com/lib/pq"

	"github.com/Rana718/bde/internal/catalog"
)

// WriteDDL writes one CREATE TABLE statement per table in the provider's
// identifier quoting. The output loads back through catalog.Load with the
// same columns, types, nullability, keys and defaults.
func WriteDDL(w io.Writer, tables []*catalog.Table, provider string) error {
	quote := quoter(provider)
	for i, t := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, createTable(t, quote)); err != nil {
			return err
		}
	}
	return nil
}

func quoter(provider string) func(string) string {
	switch strings.ToLower(provider) {
	case "mysql":
		return func(name string) string {
			return "`" + strings.ReplaceAll(name, "`", "``") + "`"
		}
	case "postgresql", "postgres":
		return pq.QuoteIdentifier
	default:
		return func(name string) string {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
	}
}

func createTable(t *catalog.Table, quote func(string) string) string {
	var keys []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			keys = append(keys, quote(c.Name))
		}
	}

	lines := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		lines = append(lines, "    "+columnDef(c, quote, len(keys) == 1))
	}
	if len(keys) > 1 {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quote(t.Name))
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);\n")
	return b.String()
}

func columnDef(c *catalog.Column, quote func(string) string, inlineKey bool) string {
	parts := []string{quote(c.Name), typeText(c.Type)}
	if c.PrimaryKey && inlineKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !c.Nullable && !c.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if c.HasDefault {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	return strings.Join(parts, " ")
}

// typeText renders a type, quoting enum members the catalog keeps bare.
func typeText(t catalog.SQLType) string {
	if (t.Name != "ENUM" && t.Name != "SET") || len(t.Args) == 0 {
		return t.String()
	}
	values := make([]string, len(t.Args))
	for i, v := range t.Args {
		values[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(values, ","))
}
