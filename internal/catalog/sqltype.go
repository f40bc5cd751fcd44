package catalog

import (
	"strings"

	"github.com/Rana718/bde/internal/utils"
)

var families = map[string]Family{
	"INT": FamilyInteger, "INTEGER": FamilyInteger, "SMALLINT": FamilyInteger,
	"TINYINT": FamilyInteger, "MEDIUMINT": FamilyInteger, "BIGINT": FamilyInteger,
	"INT2": FamilyInteger, "INT4": FamilyInteger, "INT8": FamilyInteger,
	"SERIAL": FamilyInteger, "SMALLSERIAL": FamilyInteger, "BIGSERIAL": FamilyInteger,
	"SERIAL2": FamilyInteger, "SERIAL4": FamilyInteger, "SERIAL8": FamilyInteger,

	"DECIMAL": FamilyDecimal, "NUMERIC": FamilyDecimal, "DEC": FamilyDecimal,
	"REAL": FamilyDecimal, "FLOAT": FamilyDecimal, "FLOAT4": FamilyDecimal,
	"FLOAT8": FamilyDecimal, "DOUBLE": FamilyDecimal, "DOUBLE PRECISION": FamilyDecimal,
	"MONEY": FamilyDecimal,

	"CHAR": FamilyChar, "VARCHAR": FamilyChar, "CHARACTER": FamilyChar,
	"CHARACTER VARYING": FamilyChar, "NCHAR": FamilyChar, "NVARCHAR": FamilyChar,
	"TEXT": FamilyChar, "TINYTEXT": FamilyChar, "MEDIUMTEXT": FamilyChar,
	"LONGTEXT": FamilyChar, "CITEXT": FamilyChar, "CLOB": FamilyChar,
	"UUID": FamilyChar, "BPCHAR": FamilyChar,

	"ENUM": FamilyEnum, "SET": FamilyEnum,

	"BOOL": FamilyBoolean, "BOOLEAN": FamilyBoolean, "BIT": FamilyBoolean,

	"DATE": FamilyDateTime, "TIME": FamilyDateTime, "TIMETZ": FamilyDateTime,
	"TIMESTAMP": FamilyDateTime, "TIMESTAMPTZ": FamilyDateTime, "DATETIME": FamilyDateTime,
	"YEAR": FamilyDateTime,
	"TIMESTAMP WITH TIME ZONE": FamilyDateTime, "TIMESTAMP WITHOUT TIME ZONE": FamilyDateTime,
	"TIME WITH TIME ZONE": FamilyDateTime, "TIME WITHOUT TIME ZONE": FamilyDateTime,

	"BLOB": FamilyBinary, "TINYBLOB": FamilyBinary, "MEDIUMBLOB": FamilyBinary,
	"LONGBLOB": FamilyBinary, "BINARY": FamilyBinary, "VARBINARY": FamilyBinary,
	"BYTEA": FamilyBinary,

	"JSON": FamilyJSON, "JSONB": FamilyJSON,
}

// type words that continue a multi-word type name
var typeSuffixes = map[string]bool{
	"PRECISION": true, "VARYING": true, "UNSIGNED": true, "SIGNED": true, "ZEROFILL": true,
}

// ParseSQLType classifies a type written as text, e.g. "varchar(255)" or
// "timestamp with time zone".
func ParseSQLType(text string) SQLType {
	tokens, err := utils.Tokenize(text)
	if err != nil || len(tokens) == 0 {
		return SQLType{Name: strings.ToUpper(strings.TrimSpace(text))}
	}
	t, _ := scanType(tokens, nil)
	return t
}

// scanType reads a type at the head of tokens and returns it with the
// number of tokens consumed. Enum names declared in the schema are
// classified as FamilyEnum.
func scanType(tokens []utils.Token, enums map[string]bool) (SQLType, int) {
	if len(tokens) == 0 {
		return SQLType{}, 0
	}
	first := tokens[0]
	name := first.Value
	if first.Kind != utils.Ident && first.Kind != utils.QuotedIdent {
		name = first.Text
	}
	i := 1
	// schema-qualified type names
	for i+1 < len(tokens) && tokens[i].IsPunct(".") && tokens[i+1].IsName() {
		name = tokens[i+1].Value
		i += 2
	}
	words := []string{strings.ToUpper(name)}
	var args []string
	array := false

	for i < len(tokens) {
		t := tokens[i]
		switch {
		case t.IsPunct("("):
			end := utils.Closing(tokens, i)
			if end < 0 {
				end = len(tokens) - 1
			}
			for _, arg := range utils.SplitCommas(tokens[i+1 : end]) {
				if len(arg) > 0 {
					args = append(args, utils.Join(arg))
				}
			}
			i = end + 1
		case t.IsPunct("[") && i+1 < len(tokens) && tokens[i+1].IsPunct("]"):
			array = true
			i += 2
		case t.Is("ARRAY"):
			array = true
			i++
		case t.Kind == utils.Ident && typeSuffixes[strings.ToUpper(t.Text)]:
			if w := strings.ToUpper(t.Text); w == "PRECISION" || w == "VARYING" {
				words = append(words, w)
			}
			i++
		case (t.Is("WITH") || t.Is("WITHOUT")) && i+2 < len(tokens) && tokens[i+1].Is("TIME") && tokens[i+2].Is("ZONE"):
			words = append(words, strings.ToUpper(t.Text), "TIME", "ZONE")
			i += 3
		default:
			return classify(strings.Join(words, " "), args, array, enums), i
		}
	}
	return classify(strings.Join(words, " "), args, array, enums), i
}

func classify(name string, args []string, array bool, enums map[string]bool) SQLType {
	t := SQLType{Name: name, Args: args, Array: array}
	if f, ok := families[name]; ok {
		t.Family = f
	} else if enums[strings.ToLower(name)] {
		t.Family = FamilyEnum
	}
	if name == "ENUM" || name == "SET" {
		t.Args = unquoteArgs(args)
	}
	return t
}

func unquoteArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if len(a) >= 2 && a[0] == '\'' && a[len(a)-1] == '\'' {
			a = strings.ReplaceAll(a[1:len(a)-1], "''", "'")
		}
		out = append(out, a)
	}
	return out
}
