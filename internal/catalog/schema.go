package catalog

import (
	"errors"
	"strings"

	"github.com/Rana718/bde/internal/utils"
)

type builder struct {
	file      string
	tables    []*Table
	index     map[string]*Table
	enums     []*Enum
	enumNames map[string]bool
}

func newBuilder() *builder {
	return &builder{
		index:     make(map[string]*Table),
		enumNames: make(map[string]bool),
	}
}

func (b *builder) catalog() *Catalog {
	c := &Catalog{
		tables:  b.tables,
		enums:   b.enums,
		index:   make(map[string]*Table, len(b.tables)),
		columns: make(map[string]map[string]*Column, len(b.tables)),
	}
	for _, t := range b.tables {
		key := strings.ToLower(t.Name)
		c.index[key] = t
		cols := make(map[string]*Column, len(t.Columns))
		for _, col := range t.Columns {
			cols[strings.ToLower(col.Name)] = col
		}
		c.columns[key] = cols
	}
	return c
}

func (b *builder) errorf(line int, table, column, msg string) error {
	return &SchemaError{File: b.file, Line: line, Table: table, Column: column, Message: msg}
}

func (b *builder) parse(src Source) error {
	b.file = src.Name
	tokens, err := utils.TokenizeDialect(src.Text, src.Dialect)
	if err != nil {
		var se *utils.ScanError
		if errors.As(err, &se) {
			return b.errorf(se.Line, "", "", se.Message)
		}
		return b.errorf(0, "", "", err.Error())
	}
	if err := utils.CheckBalanced(tokens); err != nil {
		var se *utils.ScanError
		errors.As(err, &se)
		return b.errorf(se.Line, "", "", "unbalanced parentheses: "+se.Message)
	}

	for _, stmt := range utils.SplitStatements(tokens) {
		var err error
		switch {
		case stmt[0].Is("CREATE"):
			err = b.create(stmt)
		case stmt[0].Is("ALTER") && len(stmt) > 1 && stmt[1].Is("TABLE"):
			err = b.alter(stmt)
		case stmt[0].Is("DROP") && len(stmt) > 1 && stmt[1].Is("TABLE"):
			b.drop(stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) create(stmt []utils.Token) error {
	i := 1
	for i < len(stmt) && isCreateModifier(stmt[i]) {
		i++
	}
	if i >= len(stmt) {
		return nil
	}
	switch {
	case stmt[i].Is("TABLE"):
		return b.createTable(stmt, i+1)
	case stmt[i].Is("TYPE"):
		return b.createType(stmt, i+1)
	}
	return nil
}

func isCreateModifier(t utils.Token) bool {
	for _, kw := range []string{"OR", "REPLACE", "TEMP", "TEMPORARY", "UNLOGGED", "GLOBAL", "LOCAL"} {
		if t.Is(kw) {
			return true
		}
	}
	return false
}

// skipWords advances past the keyword sequence when it is present.
func skipWords(stmt []utils.Token, i int, words ...string) int {
	if i+len(words) > len(stmt) {
		return i
	}
	for j, w := range words {
		if !stmt[i+j].Is(w) {
			return i
		}
	}
	return i + len(words)
}

// readName reads a possibly schema-qualified object name and keeps its
// last part.
func readName(stmt []utils.Token, i int) (string, int, bool) {
	if i >= len(stmt) || (stmt[i].Kind != utils.Ident && stmt[i].Kind != utils.QuotedIdent) {
		return "", i, false
	}
	name := stmt[i].Value
	i++
	for i+1 < len(stmt) && stmt[i].IsPunct(".") && (stmt[i+1].Kind == utils.Ident || stmt[i+1].Kind == utils.QuotedIdent) {
		name = stmt[i+1].Value
		i += 2
	}
	return name, i, true
}

func (b *builder) createTable(stmt []utils.Token, i int) error {
	line := stmt[0].Line
	i = skipWords(stmt, i, "IF", "NOT", "EXISTS")
	name, i, ok := readName(stmt, i)
	if !ok {
		return b.errorf(line, "", "", "CREATE TABLE is missing a table name")
	}
	if i >= len(stmt) || !stmt[i].IsPunct("(") {
		// CREATE TABLE ... AS SELECT and CREATE TABLE ... LIKE carry no
		// column list to read.
		return nil
	}
	end := utils.Closing(stmt, i)

	table := &Table{Name: name}
	var primary []utils.Token
	for _, def := range utils.SplitCommas(stmt[i+1 : end]) {
		if len(def) == 0 {
			return b.errorf(stmt[end].Line, name, "", `syntax error at or near ")"`)
		}
		if isTableConstraint(def) {
			if pk := primaryKeyColumns(def); pk != nil {
				primary = append(primary, pk...)
			}
			continue
		}
		col, err := b.column(name, def)
		if err != nil {
			return err
		}
		if table.Column(col.Name) != nil {
			return b.errorf(def[0].Line, name, col.Name, "duplicate column name")
		}
		table.Columns = append(table.Columns, col)
	}
	if err := b.markPrimary(table, primary); err != nil {
		return err
	}
	return b.addTable(table, line)
}

func (b *builder) markPrimary(table *Table, names []utils.Token) error {
	for _, n := range names {
		col := table.Column(n.Value)
		if col == nil {
			return b.errorf(n.Line, table.Name, n.Value, "primary key references unknown column")
		}
		col.PrimaryKey = true
		col.Nullable = false
	}
	return nil
}

func (b *builder) addTable(t *Table, line int) error {
	key := strings.ToLower(t.Name)
	if _, exists := b.index[key]; exists {
		return b.errorf(line, t.Name, "", "duplicate table name")
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		ck := strings.ToLower(col.Name)
		if seen[ck] {
			return b.errorf(line, t.Name, col.Name, "duplicate column name")
		}
		seen[ck] = true
	}
	b.index[key] = t
	b.tables = append(b.tables, t)
	return nil
}

func isTableConstraint(def []utils.Token) bool {
	first := def[0]
	for _, kw := range []string{"PRIMARY", "FOREIGN", "UNIQUE", "CHECK", "CONSTRAINT", "EXCLUDE", "FULLTEXT", "SPATIAL", "LIKE"} {
		if first.Is(kw) {
			return true
		}
	}
	if first.Is("INDEX") || first.Is("KEY") {
		// "key TEXT" is a column, "KEY idx (a)" an index
		return len(def) > 1 && (def[1].IsPunct("(") || (len(def) > 2 && def[2].IsPunct("(")))
	}
	return false
}

// primaryKeyColumns returns the column names of a PRIMARY KEY (...)
// constraint, or nil for any other constraint.
func primaryKeyColumns(def []utils.Token) []utils.Token {
	i := 0
	if def[0].Is("CONSTRAINT") {
		i = 2
	}
	i = skipWords(def, i, "PRIMARY", "KEY")
	if i == 0 || i >= len(def) || !def[i].IsPunct("(") {
		return nil
	}
	end := utils.Closing(def, i)
	if end < 0 {
		return nil
	}
	var names []utils.Token
	for _, part := range utils.SplitCommas(def[i+1 : end]) {
		if len(part) > 0 {
			names = append(names, part[0])
		}
	}
	return names
}

var columnConstraintWords = []string{
	"NOT", "NULL", "PRIMARY", "UNIQUE", "REFERENCES", "CHECK", "CONSTRAINT", "COLLATE",
	"GENERATED", "AUTO_INCREMENT", "AUTOINCREMENT", "IDENTITY", "ON", "COMMENT", "DEFAULT",
	"CHARACTER", "CHARSET",
}

func isColumnConstraintWord(t utils.Token) bool {
	for _, kw := range columnConstraintWords {
		if t.Is(kw) {
			return true
		}
	}
	return false
}

func (b *builder) column(table string, def []utils.Token) (*Column, error) {
	name, i, ok := readName(def, 0)
	if !ok {
		return nil, b.errorf(def[0].Line, table, "", "expected column name, found "+def[0].Text)
	}
	if i >= len(def) {
		return nil, b.errorf(def[0].Line, table, name, "column is missing a type")
	}
	typ, n := scanType(def[i:], b.enumNames)
	if n == 0 {
		return nil, b.errorf(def[0].Line, table, name, "column is missing a type")
	}
	col := &Column{Name: name, Type: typ, Nullable: true}
	applyColumnConstraints(col, def[i+n:])
	return col, nil
}

func applyColumnConstraints(col *Column, rest []utils.Token) {
	explicitNull := false
	for i := 0; i < len(rest); i++ {
		t := rest[i]
		switch {
		case t.Is("NOT") && i+1 < len(rest) && rest[i+1].Is("NULL"):
			col.Nullable = false
			i++
		case t.Is("NULL"):
			explicitNull = true
		case t.Is("PRIMARY") && i+1 < len(rest) && rest[i+1].Is("KEY"):
			col.PrimaryKey = true
			i++
		case t.Is("AUTO_INCREMENT") || t.Is("AUTOINCREMENT") || t.Is("IDENTITY"):
			col.Nullable = false
		case t.Is("DEFAULT"):
			j := i + 1
			for j < len(rest) && (j == i+1 || !isColumnConstraintWord(rest[j])) {
				if rest[j].IsPunct("(") {
					if end := utils.Closing(rest, j); end > 0 {
						j = end
					}
				}
				j++
			}
			col.Default = utils.Join(rest[i+1 : j])
			col.HasDefault = true
			i = j - 1
		case t.IsPunct("("):
			if end := utils.Closing(rest, i); end > 0 {
				i = end
			}
		}
	}
	if col.PrimaryKey || col.Type.Serial() {
		col.Nullable = false
	} else if explicitNull {
		col.Nullable = true
	}
}

func (b *builder) alter(stmt []utils.Token) error {
	line := stmt[0].Line
	i := skipWords(stmt, 2, "IF", "EXISTS")
	i = skipWords(stmt, i, "ONLY")
	name, i, ok := readName(stmt, i)
	if !ok {
		return b.errorf(line, "", "", "ALTER TABLE is missing a table name")
	}
	table, ok := b.index[strings.ToLower(name)]
	if !ok {
		return b.errorf(line, name, "", "ALTER TABLE on unknown table")
	}
	for _, action := range utils.SplitCommas(stmt[i:]) {
		if len(action) == 0 {
			continue
		}
		if err := b.alterAction(table, action); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) alterAction(table *Table, action []utils.Token) error {
	line := action[0].Line
	switch {
	case action[0].Is("ADD"):
		def := action[1:]
		def = def[skipWords(def, 0, "COLUMN"):]
		ifNotExists := false
		if j := skipWords(def, 0, "IF", "NOT", "EXISTS"); j > 0 {
			ifNotExists = true
			def = def[j:]
		}
		if len(def) == 0 {
			return b.errorf(line, table.Name, "", "ADD is missing a column definition")
		}
		if isTableConstraint(def) {
			return b.markPrimary(table, primaryKeyColumns(def))
		}
		col, err := b.column(table.Name, def)
		if err != nil {
			return err
		}
		if table.Column(col.Name) != nil {
			if ifNotExists {
				return nil
			}
			return b.errorf(line, table.Name, col.Name, "duplicate column name")
		}
		table.Columns = append(table.Columns, col)

	case action[0].Is("DROP"):
		rest := action[1:]
		if len(rest) > 0 && (rest[0].Is("CONSTRAINT") || rest[0].Is("PRIMARY") || rest[0].Is("INDEX") || rest[0].Is("KEY") || rest[0].Is("FOREIGN")) {
			return nil
		}
		rest = rest[skipWords(rest, 0, "COLUMN"):]
		ifExists := false
		if j := skipWords(rest, 0, "IF", "EXISTS"); j > 0 {
			ifExists = true
			rest = rest[j:]
		}
		colName, _, ok := readName(rest, 0)
		if !ok {
			return b.errorf(line, table.Name, "", "DROP COLUMN is missing a column name")
		}
		if !dropColumn(table, colName) && !ifExists {
			return b.errorf(line, table.Name, colName, "cannot drop unknown column")
		}

	case action[0].Is("ALTER"):
		rest := action[1:]
		rest = rest[skipWords(rest, 0, "COLUMN"):]
		colName, j, ok := readName(rest, 0)
		if !ok {
			return nil
		}
		col := table.Column(colName)
		if col == nil {
			return b.errorf(line, table.Name, colName, "cannot alter unknown column")
		}
		rest = rest[j:]
		switch {
		case skipWords(rest, 0, "SET", "NOT", "NULL") == 3:
			col.Nullable = false
		case skipWords(rest, 0, "DROP", "NOT", "NULL") == 3:
			if !col.PrimaryKey {
				col.Nullable = true
			}
		case skipWords(rest, 0, "SET", "DEFAULT") == 2:
			col.Default, col.HasDefault = utils.Join(rest[2:]), true
		case skipWords(rest, 0, "DROP", "DEFAULT") == 2:
			col.Default, col.HasDefault = "", false
		case skipWords(rest, 0, "TYPE") == 1:
			col.Type, _ = scanType(rest[1:], b.enumNames)
		case skipWords(rest, 0, "SET", "DATA", "TYPE") == 3:
			col.Type, _ = scanType(rest[3:], b.enumNames)
		}

	case action[0].Is("MODIFY"):
		def := action[1:]
		def = def[skipWords(def, 0, "COLUMN"):]
		if len(def) == 0 {
			return nil
		}
		col, err := b.column(table.Name, def)
		if err != nil {
			return err
		}
		for idx, existing := range table.Columns {
			if strings.EqualFold(existing.Name, col.Name) {
				col.PrimaryKey = col.PrimaryKey || existing.PrimaryKey
				if col.PrimaryKey {
					col.Nullable = false
				}
				table.Columns[idx] = col
				return nil
			}
		}
		return b.errorf(line, table.Name, col.Name, "cannot modify unknown column")

	case action[0].Is("RENAME"):
		rest := action[1:]
		if j := skipWords(rest, 0, "TO"); j == 1 {
			newName, _, ok := readName(rest, 1)
			if !ok {
				return nil
			}
			if _, taken := b.index[strings.ToLower(newName)]; taken {
				return b.errorf(line, newName, "", "duplicate table name")
			}
			delete(b.index, strings.ToLower(table.Name))
			table.Name = newName
			b.index[strings.ToLower(newName)] = table
			return nil
		}
		rest = rest[skipWords(rest, 0, "COLUMN"):]
		oldName, j, ok := readName(rest, 0)
		if !ok || skipWords(rest, j, "TO") != j+1 {
			return nil
		}
		newName, _, ok := readName(rest, j+1)
		if !ok {
			return nil
		}
		col := table.Column(oldName)
		if col == nil {
			return b.errorf(line, table.Name, oldName, "cannot rename unknown column")
		}
		if other := table.Column(newName); other != nil && other != col {
			return b.errorf(line, table.Name, newName, "duplicate column name")
		}
		col.Name = newName
	}
	return nil
}

func dropColumn(table *Table, name string) bool {
	for i, col := range table.Columns {
		if strings.EqualFold(col.Name, name) {
			table.Columns = append(table.Columns[:i:i], table.Columns[i+1:]...)
			return true
		}
	}
	return false
}

func (b *builder) drop(stmt []utils.Token) {
	i := skipWords(stmt, 2, "IF", "EXISTS")
	for _, part := range utils.SplitCommas(stmt[i:]) {
		name, _, ok := readName(part, 0)
		if !ok {
			continue
		}
		key := strings.ToLower(name)
		t, exists := b.index[key]
		if !exists {
			continue
		}
		delete(b.index, key)
		for idx, existing := range b.tables {
			if existing == t {
				b.tables = append(b.tables[:idx:idx], b.tables[idx+1:]...)
				break
			}
		}
	}
}

func (b *builder) createType(stmt []utils.Token, i int) error {
	name, i, ok := readName(stmt, i)
	if !ok {
		return nil
	}
	i = skipWords(stmt, i, "AS", "ENUM")
	if i >= len(stmt) || !stmt[i].IsPunct("(") {
		return nil
	}
	end := utils.Closing(stmt, i)
	enum := &Enum{Name: name}
	for _, part := range utils.SplitCommas(stmt[i+1 : end]) {
		if len(part) == 1 && part[0].Kind == utils.String {
			enum.Values = append(enum.Values, part[0].Value)
		}
	}
	b.enums = append(b.enums, enum)
	b.enumNames[strings.ToLower(name)] = true
	return nil
}
