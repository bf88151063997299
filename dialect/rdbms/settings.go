package rdbms

import (
	"slices"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql"
)

// Settings is the per-vendor configuration surface of a Dialect.
type Settings struct {
	// QuoteChar quotes identifiers that collide with a reserved keyword.
	QuoteChar byte
	// Keywords are the reserved keywords of the vendor. Membership is
	// case-insensitive.
	Keywords []string
	// MaxInListSize is the maximum number of values in one IN list. Key
	// operations over more values are split into chunks.
	MaxInListSize int
	// GeneratedKeyColumn is the label of the generated key in the rows
	// reported by the database. Empty means the first column.
	GeneratedKeyColumn string
	// Placeholder is the bind parameter style.
	Placeholder sql.Placeholder
	// Retry is the retry policy of write operations.
	Retry sql.RetryPolicy
}

// Validate reports a configuration error for invalid settings.
func (s Settings) Validate() error {
	switch {
	case s.QuoteChar == 0:
		return signet.NewConfigError("quote char is not set")
	case s.Placeholder == nil:
		return signet.NewConfigError("placeholder style is not set")
	case s.MaxInListSize < 1:
		return signet.NewConfigError("max IN list size must be at least 1, got %d", s.MaxInListSize)
	case s.Retry.MaxRetries < 0:
		return signet.NewConfigError("max retries must not be negative, got %d", s.Retry.MaxRetries)
	case s.Retry.Delay < 0:
		return signet.NewConfigError("retry delay must not be negative, got %s", s.Retry.Delay)
	}
	return nil
}

// WithMaxInListSize returns a copy of the settings with the given maximum
// IN list size.
func (s Settings) WithMaxInListSize(n int) (Settings, error) {
	if n < 1 {
		return s, signet.NewConfigError("max IN list size must be at least 1, got %d", n)
	}
	s.MaxInListSize = n
	return s, nil
}

func (s Settings) clone() Settings {
	s.Keywords = slices.Clone(s.Keywords)
	return s
}

// Strategies are the vendor-specific behaviors injected into a Dialect.
type Strategies struct {
	// PrimaryKey renders primary key clauses. Defaults to a table-level
	// "primary key (...)" clause.
	PrimaryKey sql.PrimaryKeyClause
	// Increment renders auto-increment columns. Nil leaves the type as is.
	Increment sql.IncrementClause
	// DDL holds additional DDL generator options.
	DDL []sql.DDLOption
	// DML holds additional DML generator options, e.g. the multi-table
	// update style.
	DML []sql.DMLOption
	// Expand configures the parameter scanner of ExpandNamed and
	// ExpandPositional.
	Expand []sql.ExpandOption
	// KeyCapture is how generated keys are reported by the database.
	KeyCapture sql.KeyCapture
	// BulkKeys reads the generated keys of a multi-row insert. Single-row
	// inserts report one key per entry and always use the column reader.
	BulkKeys sql.GeneratedKeysReader
	// Sequence returns the statement selecting the next value of a
	// sequence. Nil for vendors without sequences.
	Sequence func(q *sql.Quoter, name string) string
}
