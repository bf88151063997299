package schema

import (
	"slices"

	"golang.org/x/text/cases"

	"github.com/syssam/signet"
	"github.com/syssam/signet/schema/field"
)

// Fold returns the case-folded form of an identifier. Table, column and
// keyword lookups are case-insensitive and always go through Fold.
func Fold(name string) string {
	return cases.Fold().String(name)
}

// Table describes a database table.
type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  []*Column
	Indexes     []*Index
	ForeignKeys []*ForeignKey
	columns     map[string]*Column
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{
		Name:    name,
		columns: make(map[string]*Column),
	}
}

// AddColumn adds the column to the table and returns the column owned by
// the table. Adding a column whose name is already defined returns the
// existing column when type and size agree, and a configuration error
// otherwise.
func (t *Table) AddColumn(c *Column) (*Column, error) {
	if c.Name == "" {
		return nil, signet.NewConfigError("table %s: column name is empty", t.Name)
	}
	if !c.Type.Valid() {
		return nil, signet.NewConfigError("table %s: column %s has invalid type %s", t.Name, c.Name, c.Type)
	}
	if c.table != nil && c.table != t {
		return nil, signet.NewConfigError("column %s already belongs to table %s", c.Name, c.table.Name)
	}
	if t.columns == nil {
		t.columns = make(map[string]*Column)
	}
	if prev, ok := t.columns[Fold(c.Name)]; ok {
		if prev.Type != c.Type || prev.Size != c.Size {
			return nil, signet.NewConfigError(
				"table %s: column %s redefined as %s(%d), previously %s(%d)",
				t.Name, c.Name, c.Type, c.Size, prev.Type, prev.Size,
			)
		}
		return prev, nil
	}
	c.table = t
	t.columns[Fold(c.Name)] = c
	t.Columns = append(t.Columns, c)
	return c, nil
}

// MustAddColumn is like AddColumn but panics on error. It simplifies the
// definition of static tables.
func (t *Table) MustAddColumn(c *Column) *Column {
	c, err := t.AddColumn(c)
	if err != nil {
		panic(err)
	}
	return c
}

// Column returns the column with the given name (case-insensitive).
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[Fold(name)]
	return c, ok
}

// SetPrimaryKey sets the primary key of the table. The key must be non-empty,
// its columns must belong to the table, and it can be set only once.
func (t *Table) SetPrimaryKey(columns ...*Column) error {
	if len(t.PrimaryKey) > 0 {
		return signet.NewConfigError("table %s: primary key already defined", t.Name)
	}
	if len(columns) == 0 {
		return signet.NewConfigError("table %s: primary key has no columns", t.Name)
	}
	for i, c := range columns {
		if c.table != t {
			return signet.NewConfigError("table %s: primary key column %s belongs to another table", t.Name, c.Name)
		}
		if slices.Contains(columns[:i], c) {
			return signet.NewConfigError("table %s: primary key column %s listed twice", t.Name, c.Name)
		}
	}
	t.PrimaryKey = columns
	return nil
}

// AddIndex adds an index over the given table columns.
func (t *Table) AddIndex(name string, unique bool, columns ...*Column) (*Index, error) {
	if len(columns) == 0 {
		return nil, signet.NewConfigError("table %s: index %s has no columns", t.Name, name)
	}
	for _, c := range columns {
		if c.table != t {
			return nil, signet.NewConfigError("table %s: index %s references foreign column %s", t.Name, name, c)
		}
	}
	idx := &Index{Name: name, Unique: unique, Columns: columns, Table: t}
	t.Indexes = append(t.Indexes, idx)
	return idx, nil
}

// AddForeignKey adds a foreign key from the given table columns to the
// referenced columns. Both sides must have the same arity.
func (t *Table) AddForeignKey(name string, columns []*Column, refColumns []*Column) (*ForeignKey, error) {
	if len(columns) == 0 || len(columns) != len(refColumns) {
		return nil, signet.NewConfigError("table %s: foreign key %s has mismatched columns", t.Name, name)
	}
	ref := refColumns[0].table
	for i := range columns {
		if columns[i].table != t {
			return nil, signet.NewConfigError("table %s: foreign key %s references foreign column %s", t.Name, name, columns[i])
		}
		if refColumns[i].table == nil || refColumns[i].table != ref {
			return nil, signet.NewConfigError("table %s: foreign key %s must reference a single table", t.Name, name)
		}
	}
	fk := &ForeignKey{Symbol: name, Table: t, Columns: columns, RefTable: ref, RefColumns: refColumns}
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return fk, nil
}

// Column describes a table column. The fields must not change once the
// column is added to a table: the table indexes columns by their folded
// Name, and binder and type overrides keyed by Key or Type no longer
// apply to a changed column. ValidateTable reports renamed columns.
type Column struct {
	Name      string
	Type      field.Type
	Nullable  bool
	Size      int64 // Optional size, e.g. the length of a varchar.
	Increment bool  // Values are generated by the database.
	table     *Table
}

// NewColumn returns a new column description.
func NewColumn(name string, typ field.Type) *Column {
	return &Column{Name: name, Type: typ}
}

// Table returns the table owning the column, or nil if the column was
// never added to one.
func (c *Column) Table() *Table { return c.table }

// Key returns the case-insensitive identity of the column: its folded
// table and column names.
func (c *Column) Key() string {
	if c.table == nil {
		return Fold(c.Name)
	}
	return Fold(c.table.Name) + "." + Fold(c.Name)
}

// String returns the table-qualified column name.
func (c *Column) String() string {
	if c.table == nil {
		return c.Name
	}
	return c.table.Name + "." + c.Name
}

// IsPrimaryKey reports if the column is part of its table's primary key.
func (c *Column) IsPrimaryKey() bool {
	return c.table != nil && slices.Contains(c.table.PrimaryKey, c)
}

// Index describes a table index.
type Index struct {
	Name    string
	Unique  bool
	Table   *Table
	Columns []*Column
}

// ForeignKey describes a foreign-key constraint.
type ForeignKey struct {
	Symbol     string
	Table      *Table
	Columns    []*Column
	RefTable   *Table
	RefColumns []*Column
}
