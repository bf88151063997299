package sql

import (
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
)

// Statement is a generated DML statement with the 1-based parameter
// positions of its columns.
type Statement struct {
	SQL string
	// Columns are the columns of the rows returned by the statement, if any.
	Columns []*schema.Column
	// Params maps the VALUES or SET columns to their positions. For
	// multi-row inserts it holds the positions of the first row.
	Params map[*schema.Column]int
	// Where maps the WHERE columns to their positions. For IN lists it
	// holds the first position; the others follow contiguously.
	Where map[*schema.Column]int
	// Rows is the number of value rows of an insert statement.
	Rows int
	// NumParams is the total number of placeholders.
	NumParams int
}

// Position returns the position of column c in the given 0-based row of
// a multi-row insert.
func (s *Statement) Position(c *schema.Column, row int) (int, bool) {
	p, ok := s.Params[c]
	if !ok {
		return 0, false
	}
	return p + row*len(s.Params), true
}

// UpdateStyle selects how an update whose columns span more than one table
// is rendered.
type UpdateStyle uint8

// Update styles.
const (
	// UpdateJoin lists every table after update and qualifies every column
	// reference (MySQL, MariaDB):
	//
	//	update a, b set a.x = ?, b.y = ? where a.id = ?
	UpdateJoin UpdateStyle = iota
	// UpdateFrom updates the target table only and lists the other tables
	// in a from clause (PostgreSQL, SQLite 3.33). SET columns must belong
	// to the target table:
	//
	//	update a set x = $1 from b where a.id = $2 and b.a_id = $3
	UpdateFrom
	// UpdateSingle rejects updates spanning more than one table.
	UpdateSingle
)

func (s UpdateStyle) String() string {
	switch s {
	case UpdateJoin:
		return "join"
	case UpdateFrom:
		return "from"
	case UpdateSingle:
		return "single"
	}
	return "UpdateStyle(" + strconv.Itoa(int(s)) + ")"
}

// DMLOption configures a DMLGenerator.
type DMLOption func(*DMLGenerator)

// WithUpdateStyle sets how multi-table updates are rendered. The default
// is UpdateJoin.
func WithUpdateStyle(s UpdateStyle) DMLOption {
	return func(g *DMLGenerator) {
		g.updateStyle = s
	}
}

// DMLGenerator generates parameterized INSERT, UPDATE, DELETE and SELECT
// statements. It is stateless and safe for concurrent use.
type DMLGenerator struct {
	quoter      *Quoter
	placeholder Placeholder
	updateStyle UpdateStyle
}

// NewDMLGenerator returns a DML generator with the given identifier quoter
// and placeholder style.
func NewDMLGenerator(q *Quoter, ph Placeholder, opts ...DMLOption) *DMLGenerator {
	g := &DMLGenerator{quoter: q, placeholder: ph}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Placeholder returns the placeholder style of the generator.
func (g *DMLGenerator) Placeholder() Placeholder { return g.placeholder }

// Insert returns an insert statement with one placeholder per column, in
// the given column order.
func (g *DMLGenerator) Insert(t *schema.Table, cols []*schema.Column) (*Statement, error) {
	return g.BulkInsert(t, cols, 1)
}

// BulkInsert returns an insert statement with rows value tuples.
func (g *DMLGenerator) BulkInsert(t *schema.Table, cols []*schema.Column, rows int) (*Statement, error) {
	if err := checkColumns(t, cols, "insert"); err != nil {
		return nil, err
	}
	if rows < 1 {
		return nil, signet.NewConfigError("table %s: insert needs at least one row, got %d", t.Name, rows)
	}
	b := NewBuilder(g.quoter)
	b.WriteString("insert into ")
	b.Ident(t.Name)
	b.WriteString(" (")
	b.Columns(cols, false)
	b.WriteString(") values ")
	pos := 1
	for r := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		pos = b.Placeholders(g.placeholder, pos, len(cols))
		b.WriteByte(')')
	}
	return &Statement{
		SQL:       b.String(),
		Params:    positions(cols, 1),
		Rows:      rows,
		NumParams: pos - 1,
	}, nil
}

// Update returns an update statement setting the set columns where the
// where columns match. SET positions come first and WHERE positions
// continue the count. When the columns span more than one table, every
// column reference is qualified with its table name and the tables are
// rendered in the UpdateStyle of the generator.
func (g *DMLGenerator) Update(t *schema.Table, set, where []*schema.Column) (*Statement, error) {
	if len(set) == 0 {
		return nil, signet.NewConfigError("table %s: update has no columns", t.Name)
	}
	tables := []*schema.Table{t}
	for _, c := range slices.Concat(set, where) {
		if c.Table() == nil {
			return nil, signet.NewConfigError("column %s does not belong to a table", c.Name)
		}
		if !slices.Contains(tables, c.Table()) {
			tables = append(tables, c.Table())
		}
	}
	if hasDuplicates(set) {
		return nil, signet.NewConfigError("table %s: update sets a column twice", t.Name)
	}
	qualify := len(tables) > 1
	if qualify {
		switch g.updateStyle {
		case UpdateSingle:
			return nil, signet.NewConfigError("table %s: update spans tables %s, which the dialect does not support", t.Name, tableNames(tables))
		case UpdateFrom:
			for _, c := range set {
				if c.Table() != t {
					return nil, signet.NewConfigError("table %s: update sets column %s of another table", t.Name, c)
				}
			}
		}
	}
	from := g.updateStyle == UpdateFrom && qualify
	b := NewBuilder(g.quoter)
	b.WriteString("update ")
	if from {
		b.Ident(t.Name)
	} else {
		for i, tt := range tables {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(tt.Name)
		}
	}
	b.WriteString(" set ")
	pos := 1
	for i, c := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Column(c, qualify && !from)
		b.WriteString(" = ")
		b.WriteString(g.placeholder(pos))
		pos++
	}
	if from {
		b.WriteString(" from ")
		for i, tt := range tables[1:] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(tt.Name)
		}
	}
	pos = g.where(b, where, qualify, pos)
	return &Statement{
		SQL:       b.String(),
		Params:    positions(set, 1),
		Where:     positions(where, len(set)+1),
		NumParams: pos - 1,
	}, nil
}

// Delete returns a delete statement. An empty where set deletes all rows.
func (g *DMLGenerator) Delete(t *schema.Table, where []*schema.Column) (*Statement, error) {
	if err := checkColumns(t, where, ""); err != nil {
		return nil, err
	}
	b := NewBuilder(g.quoter)
	b.WriteString("delete from ")
	b.Ident(t.Name)
	pos := g.where(b, where, false, 1)
	return &Statement{
		SQL:       b.String(),
		Where:     positions(where, 1),
		NumParams: pos - 1,
	}, nil
}

// Select returns a select statement for the given columns.
func (g *DMLGenerator) Select(t *schema.Table, cols, where []*schema.Column) (*Statement, error) {
	if err := checkColumns(t, cols, "select"); err != nil {
		return nil, err
	}
	if err := checkColumns(t, where, ""); err != nil {
		return nil, err
	}
	b := g.selectFrom(t, cols)
	pos := g.where(b, where, false, 1)
	return &Statement{
		SQL:       b.String(),
		Columns:   cols,
		Where:     positions(where, 1),
		NumParams: pos - 1,
	}, nil
}

// SelectIn returns a select statement matching n values of the key column.
func (g *DMLGenerator) SelectIn(t *schema.Table, cols []*schema.Column, key *schema.Column, n int) (*Statement, error) {
	if err := checkColumns(t, cols, "select"); err != nil {
		return nil, err
	}
	if err := checkColumns(t, []*schema.Column{key}, ""); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, &signet.EmptyCollectionParameterError{Name: key.Name}
	}
	b := g.selectFrom(t, cols)
	pos := g.whereIn(b, key, n)
	return &Statement{
		SQL:       b.String(),
		Columns:   cols,
		Where:     map[*schema.Column]int{key: 1},
		NumParams: pos - 1,
	}, nil
}

// DeleteIn returns a delete statement matching n values of the key column.
func (g *DMLGenerator) DeleteIn(t *schema.Table, key *schema.Column, n int) (*Statement, error) {
	if err := checkColumns(t, []*schema.Column{key}, ""); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, &signet.EmptyCollectionParameterError{Name: key.Name}
	}
	b := NewBuilder(g.quoter)
	b.WriteString("delete from ")
	b.Ident(t.Name)
	pos := g.whereIn(b, key, n)
	return &Statement{
		SQL:       b.String(),
		Where:     map[*schema.Column]int{key: 1},
		NumParams: pos - 1,
	}, nil
}

// Returning returns a copy of the statement with a returning clause for
// the given columns.
func (g *DMLGenerator) Returning(s *Statement, cols ...*schema.Column) *Statement {
	if len(cols) == 0 {
		return s
	}
	b := NewBuilder(g.quoter)
	b.WriteString(s.SQL)
	b.WriteString(" returning ")
	b.Columns(cols, false)
	rs := *s
	rs.SQL = b.String()
	rs.Columns = cols
	return &rs
}

func (g *DMLGenerator) selectFrom(t *schema.Table, cols []*schema.Column) *Builder {
	b := NewBuilder(g.quoter)
	b.WriteString("select ")
	b.Columns(cols, false)
	b.WriteString(" from ")
	b.Ident(t.Name)
	return b
}

func (g *DMLGenerator) where(b *Builder, where []*schema.Column, qualify bool, pos int) int {
	for i, c := range where {
		if i == 0 {
			b.WriteString(" where ")
		} else {
			b.WriteString(" and ")
		}
		b.Column(c, qualify)
		b.WriteString(" = ")
		b.WriteString(g.placeholder(pos))
		pos++
	}
	return pos
}

func (g *DMLGenerator) whereIn(b *Builder, key *schema.Column, n int) int {
	b.WriteString(" where ")
	b.Column(key, false)
	b.WriteString(" in (")
	pos := b.Placeholders(g.placeholder, 1, n)
	b.WriteByte(')')
	return pos
}

// checkColumns verifies that the columns belong to t. A non-empty verb
// also requires at least one column.
func checkColumns(t *schema.Table, cols []*schema.Column, verb string) error {
	if verb != "" && len(cols) == 0 {
		return signet.NewConfigError("table %s: %s has no columns", t.Name, verb)
	}
	for _, c := range cols {
		if c.Table() != t {
			return signet.NewConfigError("table %s: column %s belongs to another table", t.Name, c)
		}
	}
	if hasDuplicates(cols) {
		return signet.NewConfigError("table %s: column listed twice", t.Name)
	}
	return nil
}

func hasDuplicates(cols []*schema.Column) bool {
	for i, c := range cols {
		if slices.Contains(cols[:i], c) {
			return true
		}
	}
	return false
}

func positions(cols []*schema.Column, start int) map[*schema.Column]int {
	m := make(map[*schema.Column]int, len(cols))
	for i, c := range cols {
		m[c] = start + i
	}
	return m
}

// Chunk splits values into consecutive chunks of at most size elements,
// e.g. to honor the maximum IN list size of a vendor.
func Chunk[T any](values []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, signet.NewConfigError("chunk size must be at least 1, got %d", size)
	}
	chunks := make([][]T, 0, (len(values)+size-1)/size)
	for c := range slices.Chunk(values, size) {
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func tableNames(tables []*schema.Table) string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
