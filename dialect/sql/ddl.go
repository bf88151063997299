package sql

import (
	"strings"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
)

// PrimaryKeyClause renders the primary key of a table. Vendors replace it
// to inline the key into a column definition.
type PrimaryKeyClause interface {
	// ColumnSuffix returns the suffix appended to the definition of c.
	ColumnSuffix(c *schema.Column) string
	// TableClause returns the table-level clause, or "" if the key was
	// rendered inline.
	TableClause(q *Quoter, t *schema.Table) string
}

// TablePrimaryKey renders the key as a "primary key (a, b)" table clause.
type TablePrimaryKey struct{}

// ColumnSuffix implements PrimaryKeyClause.
func (TablePrimaryKey) ColumnSuffix(*schema.Column) string { return "" }

// TableClause implements PrimaryKeyClause.
func (TablePrimaryKey) TableClause(q *Quoter, t *schema.Table) string {
	if len(t.PrimaryKey) == 0 {
		return ""
	}
	pb := NewBuilder(q)
	pb.WriteString("primary key (")
	pb.Columns(t.PrimaryKey, false)
	pb.WriteByte(')')
	return pb.String()
}

// InlineIncrementPrimaryKey renders a single auto-increment key column as
// "primary key autoincrement" (SQLite) and falls back to TablePrimaryKey
// for other keys.
type InlineIncrementPrimaryKey struct{}

func inlineKey(t *schema.Table) bool {
	return len(t.PrimaryKey) == 1 && t.PrimaryKey[0].Increment
}

// ColumnSuffix implements PrimaryKeyClause.
func (InlineIncrementPrimaryKey) ColumnSuffix(c *schema.Column) string {
	if t := c.Table(); t != nil && inlineKey(t) && t.PrimaryKey[0] == c {
		return " primary key autoincrement"
	}
	return ""
}

// TableClause implements PrimaryKeyClause.
func (InlineIncrementPrimaryKey) TableClause(q *Quoter, t *schema.Table) string {
	if inlineKey(t) {
		return ""
	}
	return TablePrimaryKey{}.TableClause(q, t)
}

// IncrementClause renders the type and suffix of an auto-increment column
// given its registered SQL type.
type IncrementClause func(c *schema.Column, sqlType string) string

// IncrementSuffix appends a suffix to the type of auto-increment columns,
// e.g. "auto_increment".
func IncrementSuffix(suffix string) IncrementClause {
	return func(_ *schema.Column, sqlType string) string {
		if suffix == "" {
			return sqlType
		}
		return sqlType + " " + suffix
	}
}

// SerialIncrement replaces integer types with their serial pseudo-types
// (PostgreSQL).
func SerialIncrement(_ *schema.Column, sqlType string) string {
	switch strings.ToLower(sqlType) {
	case "bigint", "int8":
		return "bigserial"
	case "smallint", "int2":
		return "smallserial"
	}
	return "serial"
}

// DDLOption configures a DDLGenerator.
type DDLOption func(*DDLGenerator)

// WithPrimaryKeyClause sets the primary key strategy.
func WithPrimaryKeyClause(pk PrimaryKeyClause) DDLOption {
	return func(g *DDLGenerator) {
		g.pk = pk
	}
}

// WithIncrement sets the auto-increment strategy.
func WithIncrement(inc IncrementClause) DDLOption {
	return func(g *DDLGenerator) {
		g.increment = inc
	}
}

// WithDropIndexOn renders "drop index name on table" (MySQL and MariaDB).
func WithDropIndexOn() DDLOption {
	return func(g *DDLGenerator) {
		g.dropIndexOn = true
	}
}

// WithDropForeignKey sets the keyword dropping foreign keys, "constraint"
// by default and "foreign key" for MySQL and MariaDB.
func WithDropForeignKey(keyword string) DDLOption {
	return func(g *DDLGenerator) {
		g.dropFK = keyword
	}
}

// WithInlineForeignKeys renders foreign keys inside create table, for
// vendors that cannot add them with alter table (SQLite).
func WithInlineForeignKeys() DDLOption {
	return func(g *DDLGenerator) {
		g.inlineFKs = true
	}
}

// DDLGenerator generates schema statements. It is immutable and safe for
// concurrent use.
type DDLGenerator struct {
	quoter      *Quoter
	types       schema.TypeNamer
	pk          PrimaryKeyClause
	increment   IncrementClause
	dropIndexOn bool
	dropFK      string
	inlineFKs   bool
}

// NewDDLGenerator returns a DDL generator naming column types with the
// given type namer.
func NewDDLGenerator(q *Quoter, types schema.TypeNamer, opts ...DDLOption) *DDLGenerator {
	g := &DDLGenerator{
		quoter:    q,
		types:     types,
		pk:        TablePrimaryKey{},
		increment: IncrementSuffix(""),
		dropFK:    "constraint",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ColumnDef returns the definition of a column as it appears in create
// table.
func (g *DDLGenerator) ColumnDef(c *schema.Column) (string, error) {
	typ, err := g.types.TypeName(c)
	if err != nil {
		return "", err
	}
	b := NewBuilder(g.quoter)
	b.Ident(c.Name)
	b.WriteByte(' ')
	if c.Increment {
		typ = g.increment(c, typ)
	}
	b.WriteString(typ)
	if !c.Nullable {
		b.WriteString(" not null")
	}
	b.WriteString(g.pk.ColumnSuffix(c))
	return b.String(), nil
}

// CreateTable returns the create table statement of t.
func (g *DDLGenerator) CreateTable(t *schema.Table) (string, error) {
	if len(t.Columns) == 0 {
		return "", signet.NewConfigError("table %s has no columns", t.Name)
	}
	b := NewBuilder(g.quoter)
	b.WriteString("create table ")
	b.Ident(t.Name)
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		def, err := g.ColumnDef(c)
		if err != nil {
			return "", err
		}
		b.WriteString(def)
	}
	if clause := g.pk.TableClause(g.quoter, t); clause != "" {
		b.WriteString(", ")
		b.WriteString(clause)
	}
	if g.inlineFKs {
		for _, fk := range t.ForeignKeys {
			b.WriteString(", ")
			g.fkClause(b, fk)
		}
	}
	b.WriteByte(')')
	return b.String(), nil
}

// DropTable returns the drop table statement of t.
func (g *DDLGenerator) DropTable(t *schema.Table) string {
	b := NewBuilder(g.quoter)
	b.WriteString("drop table ")
	return b.Ident(t.Name).String()
}

// CreateIndex returns the create index statement of idx.
func (g *DDLGenerator) CreateIndex(idx *schema.Index) string {
	b := NewBuilder(g.quoter)
	b.WriteString("create ")
	if idx.Unique {
		b.WriteString("unique ")
	}
	b.WriteString("index ")
	b.Ident(idx.Name)
	b.WriteString(" on ")
	b.Ident(idx.Table.Name)
	b.WriteString(" (")
	b.Columns(idx.Columns, false)
	b.WriteByte(')')
	return b.String()
}

// DropIndex returns the drop index statement of idx.
func (g *DDLGenerator) DropIndex(idx *schema.Index) string {
	b := NewBuilder(g.quoter)
	b.WriteString("drop index ")
	b.Ident(idx.Name)
	if g.dropIndexOn {
		b.WriteString(" on ")
		b.Ident(idx.Table.Name)
	}
	return b.String()
}

// AddForeignKey returns the alter table statement adding fk. It returns
// "" if foreign keys are rendered inline.
func (g *DDLGenerator) AddForeignKey(fk *schema.ForeignKey) string {
	if g.inlineFKs {
		return ""
	}
	b := NewBuilder(g.quoter)
	b.WriteString("alter table ")
	b.Ident(fk.Table.Name)
	b.WriteString(" add ")
	g.fkClause(b, fk)
	return b.String()
}

// DropForeignKey returns the alter table statement dropping fk. It returns
// "" if foreign keys are rendered inline.
func (g *DDLGenerator) DropForeignKey(fk *schema.ForeignKey) string {
	if g.inlineFKs {
		return ""
	}
	b := NewBuilder(g.quoter)
	b.WriteString("alter table ")
	b.Ident(fk.Table.Name)
	b.WriteString(" drop ")
	b.WriteString(g.dropFK)
	b.WriteByte(' ')
	b.Ident(fk.Symbol)
	return b.String()
}

// CreateSchema returns the statements creating all tables, then their
// indexes, then their foreign keys.
func (g *DDLGenerator) CreateSchema(tables []*schema.Table) ([]string, error) {
	var tableStmts, indexStmts, fkStmts []string
	for _, t := range tables {
		stmt, err := g.CreateTable(t)
		if err != nil {
			return nil, err
		}
		tableStmts = append(tableStmts, stmt)
		for _, idx := range t.Indexes {
			indexStmts = append(indexStmts, g.CreateIndex(idx))
		}
		for _, fk := range t.ForeignKeys {
			if stmt := g.AddForeignKey(fk); stmt != "" {
				fkStmts = append(fkStmts, stmt)
			}
		}
	}
	return append(append(tableStmts, indexStmts...), fkStmts...), nil
}

// DropSchema returns the statements dropping all foreign keys, then all
// indexes, then all tables in reverse order.
func (g *DDLGenerator) DropSchema(tables []*schema.Table) []string {
	var stmts []string
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if stmt := g.DropForeignKey(fk); stmt != "" {
				stmts = append(stmts, stmt)
			}
		}
	}
	for _, t := range tables {
		for _, idx := range t.Indexes {
			stmts = append(stmts, g.DropIndex(idx))
		}
	}
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, g.DropTable(tables[i]))
	}
	return stmts
}

func (g *DDLGenerator) fkClause(b *Builder, fk *schema.ForeignKey) {
	b.WriteString("constraint ")
	b.Ident(fk.Symbol)
	b.WriteString(" foreign key (")
	b.Columns(fk.Columns, false)
	b.WriteString(") references ")
	b.Ident(fk.RefTable.Name)
	b.WriteString(" (")
	b.Columns(fk.RefColumns, false)
	b.WriteByte(')')
}
