package sql

import (
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/signet/dialect/sql/schema"
)

// Placeholder renders the parameter marker of a 1-based position.
type Placeholder func(pos int) string

// QuestionMark renders every parameter as "?" (MySQL, MariaDB, SQLite).
func QuestionMark(int) string { return "?" }

// Dollar renders parameters as "$1", "$2", ... (PostgreSQL).
func Dollar(pos int) string { return "$" + strconv.Itoa(pos) }

// Quoter quotes identifiers that collide with the reserved keywords of a
// vendor. Other identifiers are left unquoted. A Quoter is immutable and
// safe for concurrent use.
type Quoter struct {
	char     byte
	keywords map[string]struct{}
}

// NewQuoter returns a quoter using the given quote character and reserved
// keywords. Keywords are matched case-insensitively.
func NewQuoter(char byte, keywords ...string) *Quoter {
	q := &Quoter{char: char, keywords: make(map[string]struct{}, len(keywords))}
	for _, k := range keywords {
		q.keywords[schema.Fold(k)] = struct{}{}
	}
	return q
}

// Char returns the quote character.
func (q *Quoter) Char() byte { return q.char }

// IsKeyword reports if the name is a reserved keyword.
func (q *Quoter) IsKeyword(name string) bool {
	_, ok := q.keywords[schema.Fold(name)]
	return ok
}

// Keywords returns the reserved keywords in sorted order.
func (q *Quoter) Keywords() []string {
	keys := make([]string, 0, len(q.keywords))
	for k := range q.keywords {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Quote returns the name, quoted if it is a reserved keyword.
func (q *Quoter) Quote(name string) string {
	if !q.IsKeyword(name) {
		return name
	}
	c := string(q.char)
	return c + strings.ReplaceAll(name, c, c+c) + c
}

// With returns a new quoter with additional reserved keywords.
func (q *Quoter) With(keywords ...string) *Quoter {
	nq := &Quoter{char: q.char, keywords: make(map[string]struct{}, len(q.keywords)+len(keywords))}
	for k := range q.keywords {
		nq.keywords[k] = struct{}{}
	}
	for _, k := range keywords {
		nq.keywords[schema.Fold(k)] = struct{}{}
	}
	return nq
}

// Builder is a SQL string builder that quotes identifiers with a Quoter.
type Builder struct {
	strings.Builder
	q *Quoter
}

// NewBuilder returns a builder using the given quoter.
func NewBuilder(q *Quoter) *Builder {
	return &Builder{q: q}
}

// Ident writes a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	b.WriteString(b.q.Quote(name))
	return b
}

// Column writes a column name, qualified with its table name if qualify
// is true.
func (b *Builder) Column(c *schema.Column, qualify bool) *Builder {
	if qualify && c.Table() != nil {
		b.Ident(c.Table().Name)
		b.WriteByte('.')
	}
	return b.Ident(c.Name)
}

// Columns writes a comma-separated column list.
func (b *Builder) Columns(cols []*schema.Column, qualify bool) *Builder {
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Column(c, qualify)
	}
	return b
}

// Idents writes a comma-separated identifier list.
func (b *Builder) Idents(names ...string) *Builder {
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(n)
	}
	return b
}

// Placeholders writes n comma-separated placeholders starting at position
// start, and returns the next free position.
func (b *Builder) Placeholders(ph Placeholder, start, n int) int {
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ph(start + i))
	}
	return start + n
}
