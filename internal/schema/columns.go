package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Column is the relational mapping of one schema field.
type Column struct {
	// Name is the SQL column name. Equal to the field name, except for
	// the primary-key field which maps onto the reserved id column.
	Name string

	// SQLType is TEXT, INTEGER or REAL.
	SQLType string

	// Nullable columns carry no NOT NULL constraint.
	Nullable bool

	// JSON marks object/array fields stored as serialized text.
	JSON bool

	// Bool marks boolean fields stored as 0/1 integers.
	Bool bool

	// MaxLength bounds string lengths on write (0 = unlimited).
	MaxLength int
}

// ColumnMap is the full relational layout of a collection: the table name,
// the primary-key column and one column per non-key field, in schema order.
type ColumnMap struct {
	Table  string
	Key    Column
	Fields []Column

	keyField string // document-side name of the primary key
	byField  map[string]Column
}

// Table names may come from collection names, which allow dashes.
var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Columns derives the ColumnMap for a schema and table name.
func Columns(table string, s *Schema) (*ColumnMap, error) {
	if !tableNameRe.MatchString(table) {
		return nil, mappingErr("", "invalid table name %q", table)
	}

	key := s.PrimaryKey()
	m := &ColumnMap{
		Table:    table,
		Key:      columnFor(ColID, key.Descriptor),
		keyField: key.Name,
		byField:  make(map[string]Column, len(s.fields)),
	}
	m.byField[key.Name] = m.Key

	for _, f := range s.Fields() {
		if f.PrimaryKey {
			continue
		}
		col := columnFor(f.Name, f.Descriptor)
		m.Fields = append(m.Fields, col)
		m.byField[f.Name] = col
	}

	return m, nil
}

func columnFor(name string, d Descriptor) Column {
	col := Column{Name: name, Nullable: d.Nullable, MaxLength: d.MaxLength}
	switch d.Type {
	case TypeString:
		col.SQLType = "TEXT"
	case TypeInteger:
		col.SQLType = "INTEGER"
	case TypeNumber:
		col.SQLType = "REAL"
	case TypeBoolean:
		col.SQLType = "INTEGER"
		col.Bool = true
	case TypeObject, TypeArray:
		col.SQLType = "TEXT"
		col.JSON = true
	}
	return col
}

// ColumnFor resolves a document field name to its column.
// The primary-key field resolves to the reserved id column.
func (m *ColumnMap) ColumnFor(field string) (Column, bool) {
	col, ok := m.byField[field]
	return col, ok
}

// KeyField returns the document-side name of the primary-key field.
func (m *ColumnMap) KeyField() string {
	return m.keyField
}

// QuotedTable returns the table name as a quoted SQL identifier.
func (m *ColumnMap) QuotedTable() string {
	return quoteIdent(m.Table)
}

// SelectList returns the quoted column list for full-row reads, in the
// fixed scan order: id, fields in schema order, deleted, revision,
// last_write_at.
func (m *ColumnMap) SelectList() string {
	var b strings.Builder
	b.WriteString(quoteIdent(ColID))
	for _, col := range m.Fields {
		b.WriteString(", ")
		b.WriteString(quoteIdent(col.Name))
	}
	for _, name := range []string{ColDeleted, ColRevision, ColLastWriteAt} {
		b.WriteString(", ")
		b.WriteString(quoteIdent(name))
	}
	return b.String()
}

// CreateTableSQL returns the idempotent DDL for the backing table.
// Re-executing it against an initialized table is a no-op.
func (m *ColumnMap) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", m.QuotedTable())
	fmt.Fprintf(&b, "  %s %s NOT NULL PRIMARY KEY", quoteIdent(ColID), m.Key.SQLType)

	for _, col := range m.Fields {
		fmt.Fprintf(&b, ",\n  %s %s", quoteIdent(col.Name), col.SQLType)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
	}

	fmt.Fprintf(&b, ",\n  %s INTEGER NOT NULL DEFAULT 0", quoteIdent(ColDeleted))
	fmt.Fprintf(&b, ",\n  %s TEXT NOT NULL", quoteIdent(ColRevision))
	fmt.Fprintf(&b, ",\n  %s INTEGER NOT NULL", quoteIdent(ColLastWriteAt))
	b.WriteString("\n)")
	return b.String()
}

// CreateIndexSQL returns the idempotent DDL for secondary indexes.
// A deleted-flag index keeps live-row scans off tombstones.
func (m *ColumnMap) CreateIndexSQL() []string {
	return []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent("idx_"+m.Table+"_deleted"), m.QuotedTable(), quoteIdent(ColDeleted)),
	}
}

// quoteIdent wraps an identifier in double quotes. Identifiers are
// validated against fieldNameRe/tableNameRe before they get here, so
// embedded quotes cannot occur; escaping is still applied.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteIdent exposes identifier quoting for the SQL compiler.
func QuoteIdent(name string) string {
	return quoteIdent(name)
}
