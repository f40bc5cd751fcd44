package parser

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Rana718/bde/internal/types"
)

var (
	nameLineRegex = regexp.MustCompile(`^--\s*name\s*:\s*(\S+)(?:\s+(\S+))?\s*$`)
	metaLineRegex = regexp.MustCompile(`^--\s*(param|column|entity|nullable)\s*:\s*(.*)$`)
	identRegex    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseFile reads an annotated query file.
func ParseFile(path string) ([]*Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file %s: %w", path, err)
	}
	return ParseUnits(path, string(content))
}

// ParseUnits splits an annotated query file into units. Every unit starts
// with a "-- name: <Name> :<cardinality>" line; the comment lines right
// after it carry metadata and description. Units that cannot be read are
// reported together and left out of the result.
func ParseUnits(file, text string) ([]*Unit, error) {
	var (
		units   []*Unit
		errs    []error
		current *Unit
		body    []string
		desc    []string
		inBody  bool
		bad     bool
		stray   bool
	)

	fail := func(line int, stmt, format string, args ...any) {
		errs = append(errs, &SyntaxError{Statement: stmt, File: file, Line: line, Message: fmt.Sprintf(format, args...)})
	}

	flush := func() {
		if current == nil {
			return
		}
		current.SQL = strings.TrimSpace(strings.Join(body, "\n"))
		current.Description = strings.Join(desc, "\n")
		switch {
		case bad:
		case current.SQL == "":
			fail(current.Line, current.Name, "query has no SQL")
		default:
			units = append(units, current)
		}
		current, body, desc, inBody, bad = nil, nil, nil, false, false
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if m := nameLineRegex.FindStringSubmatch(line); m != nil {
			flush()
			stray = false
			current = &Unit{Name: m[1], File: file, Line: lineNo}
			if !identRegex.MatchString(m[1]) {
				fail(lineNo, m[1], "invalid query name %q", m[1])
				bad = true
			}
			if m[2] == "" {
				fail(lineNo, m[1], "missing cardinality (want :one, :many or :affected)")
				bad = true
			} else if c, err := types.ParseCardinality(m[2]); err != nil {
				fail(lineNo, m[1], "%v", err)
				bad = true
			} else {
				current.Cardinality = c
			}
			continue
		}

		if current == nil {
			if line != "" && !strings.HasPrefix(line, "--") && !stray {
				fail(lineNo, "", "SQL outside of a named query")
				stray = true
			}
			continue
		}

		if !inBody && strings.HasPrefix(line, "--") {
			if err := applyMeta(current, line); err != nil {
				if err != errNotMeta {
					fail(lineNo, current.Name, "%v", err)
					bad = true
				} else if d := strings.TrimSpace(strings.TrimPrefix(line, "--")); d != "" {
					desc = append(desc, d)
				}
			}
			continue
		}
		if line == "" && !inBody {
			continue
		}
		if current.SQLLine == 0 {
			current.SQLLine = lineNo
		}
		inBody = true
		body = append(body, raw)
	}
	flush()
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("failed to read %s: %w", file, err))
	}
	return units, errors.Join(errs...)
}

var errNotMeta = errors.New("not a metadata line")

func applyMeta(u *Unit, line string) error {
	m := metaLineRegex.FindStringSubmatch(line)
	if m == nil {
		return errNotMeta
	}
	value := strings.TrimSpace(m[2])
	switch m[1] {
	case "param":
		fields := strings.Fields(value)
		if len(fields) == 0 || !identRegex.MatchString(fields[0]) {
			return fmt.Errorf("invalid parameter declaration %q", value)
		}
		p := DeclaredParam{Name: fields[0]}
		if len(fields) > 1 {
			t, err := types.ParseResolvedType(strings.Join(fields[1:], ""))
			if err != nil {
				return fmt.Errorf("parameter %s: %w", fields[0], err)
			}
			p.Type = &t
		}
		u.Params = append(u.Params, p)
	case "column":
		fields := strings.Fields(value)
		if len(fields) < 2 {
			return fmt.Errorf("column override %q needs a name and a type", value)
		}
		t, err := types.ParseResolvedType(strings.Join(fields[1:], ""))
		if err != nil {
			return fmt.Errorf("column %s: %w", fields[0], err)
		}
		u.Columns = append(u.Columns, ColumnOverride{Name: fields[0], Type: t})
	case "entity":
		if !identRegex.MatchString(value) {
			return fmt.Errorf("invalid entity name %q", value)
		}
		u.Entity = value
	case "nullable":
		for _, alias := range strings.Split(value, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				u.Nullable = append(u.Nullable, alias)
			}
		}
	}
	return nil
}
