package sql

import (
	"fmt"
	"strconv"
)

// KeyCapture selects how a write operation captures generated keys.
type KeyCapture uint8

// Key capture modes.
const (
	// KeysNone captures no keys.
	KeysNone KeyCapture = iota
	// KeysLastInsertID captures Result.LastInsertId of every executed
	// statement (MySQL, MariaDB, SQLite).
	KeysLastInsertID
	// KeysReturning executes the statement as a query and captures the
	// returned rows, e.g. "insert ... returning id".
	KeysReturning
)

func (k KeyCapture) String() string {
	switch k {
	case KeysNone:
		return "none"
	case KeysLastInsertID:
		return "last_insert_id"
	case KeysReturning:
		return "returning"
	}
	return "KeyCapture(" + strconv.Itoa(int(k)) + ")"
}

// KeySource exposes the keys reported by the database for an executed
// batch. WriteOperation implements it.
type KeySource interface {
	// BatchSize returns the number of entries of the batch.
	BatchSize() int
	// ReportedKeys returns the rows reported by the database, in the order
	// they were reported.
	ReportedKeys() []*Row
}

// GeneratedKeysReader extracts the generated keys of an executed batch.
// The result has one key per batch entry, in insertion order.
type GeneratedKeysReader interface {
	ReadKeys(KeySource) ([]any, error)
}

// ColumnKeys reads one key per reported row from the labeled column, or
// from the first column when Column is empty.
type ColumnKeys struct {
	Column string
}

// ReadKeys implements GeneratedKeysReader.
func (r ColumnKeys) ReadKeys(src KeySource) ([]any, error) {
	keys, err := r.reported(src)
	if err != nil {
		return nil, err
	}
	if n := src.BatchSize(); len(keys) != n {
		return nil, fmt.Errorf("dialect/sql: database reported %d generated keys for a batch of %d", len(keys), n)
	}
	return keys, nil
}

func (r ColumnKeys) reported(src KeySource) ([]any, error) {
	rows := src.ReportedKeys()
	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		if r.Column == "" {
			if row.Len() == 0 {
				return nil, fmt.Errorf("dialect/sql: generated keys row has no columns")
			}
			keys = append(keys, normalizeKey(row.At(0)))
			continue
		}
		v, ok := row.Value(r.Column)
		if !ok {
			return nil, fmt.Errorf("dialect/sql: generated keys row has no column %q", r.Column)
		}
		keys = append(keys, normalizeKey(v))
	}
	return keys, nil
}

// HighestKeyOnly reads keys from vendors that may report only the highest
// generated key of a batch (SQLite's last_insert_rowid after a multi-row
// insert). When fewer keys than batch entries are reported, the keys are
// reconstructed below the reported maximum m as m-n+1, ..., m.
//
// The reconstruction assumes keys are assigned contiguously, incremented by
// exactly one per row. Tables using sequences with gaps, other increments,
// or concurrent interleaved inserts violate this assumption.
type HighestKeyOnly struct {
	Column string
}

// ReadKeys implements GeneratedKeysReader.
func (r HighestKeyOnly) ReadKeys(src KeySource) ([]any, error) {
	keys, err := ColumnKeys(r).reported(src)
	if err != nil {
		return nil, err
	}
	n := src.BatchSize()
	if len(keys) == n {
		return keys, nil
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("dialect/sql: database reported no generated keys for a batch of %d", n)
	}
	last, err := keyInt(keys[len(keys)-1])
	if err != nil {
		return nil, err
	}
	return contiguous(last-int64(n)+1, n), nil
}

// FirstKeyOnly reads keys from vendors that report only the first generated
// key of a multi-row insert (MySQL and MariaDB LAST_INSERT_ID). When fewer
// keys than batch entries are reported, the keys are reconstructed above
// the first reported key f as f, ..., f+n-1.
//
// The reconstruction assumes keys are assigned contiguously, incremented by
// exactly one per row (innodb_autoinc_lock_mode other than 2, and
// auto_increment_increment = 1).
type FirstKeyOnly struct {
	Column string
}

// ReadKeys implements GeneratedKeysReader.
func (r FirstKeyOnly) ReadKeys(src KeySource) ([]any, error) {
	keys, err := ColumnKeys(r).reported(src)
	if err != nil {
		return nil, err
	}
	n := src.BatchSize()
	if len(keys) == n {
		return keys, nil
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("dialect/sql: database reported no generated keys for a batch of %d", n)
	}
	first, err := keyInt(keys[0])
	if err != nil {
		return nil, err
	}
	return contiguous(first, n), nil
}

func contiguous(from int64, n int) []any {
	keys := make([]any, n)
	for i := range keys {
		keys[i] = from + int64(i)
	}
	return keys
}

// normalizeKey converts textual integer keys reported by text protocols
// to int64. Other values are returned as is.
func normalizeKey(v any) any {
	switch k := v.(type) {
	case []byte:
		if i, err := strconv.ParseInt(string(k), 10, 64); err == nil {
			return i
		}
		return string(k)
	case int:
		return int64(k)
	case int32:
		return int64(k)
	}
	return v
}

func keyInt(v any) (int64, error) {
	switch k := v.(type) {
	case int64:
		return k, nil
	case string:
		i, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("dialect/sql: generated key %q is not an integer", k)
		}
		return i, nil
	}
	return 0, fmt.Errorf("dialect/sql: generated key of type %T is not an integer", v)
}
