package sql

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

// ValueBinder reads and writes the values of one logical type or column.
// Binders are stateless and shared between registries and goroutines.
// A nil value stands for SQL NULL in both directions.
type ValueBinder interface {
	// Read decodes the value of the labeled column of the row.
	Read(row *Row, label string) (any, error)
	// Write encodes v into the statement arguments at the 1-based position.
	Write(args *Args, pos int, v any) error
}

// BinderResolver resolves the binder of a column.
type BinderResolver interface {
	Binder(*schema.Column) (ValueBinder, error)
}

// Row is a result row whose raw driver values are addressed by column
// label (case-insensitive) or by 0-based index.
type Row struct {
	labels []string
	values []any
	index  map[string]int
}

// NewRow returns a row with the given labels and raw values.
func NewRow(labels []string, values []any) *Row {
	r := &Row{labels: labels, values: values, index: make(map[string]int, len(labels))}
	for i, l := range labels {
		if _, ok := r.index[schema.Fold(l)]; !ok {
			r.index[schema.Fold(l)] = i
		}
	}
	return r
}

// Value returns the raw value of the labeled column.
func (r *Row) Value(label string) (any, bool) {
	i, ok := r.index[schema.Fold(label)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// At returns the raw value at the 0-based column index.
func (r *Row) At(i int) any { return r.values[i] }

// Len returns the number of columns of the row.
func (r *Row) Len() int { return len(r.values) }

// Labels returns the column labels of the row.
func (r *Row) Labels() []string { return r.labels }

// Args holds the arguments of a statement, addressed by 1-based position.
type Args struct {
	values []any
}

// NewArgs returns arguments with room for n positions.
func NewArgs(n int) *Args {
	return &Args{values: make([]any, n)}
}

// Set sets the argument at the 1-based position, growing the list if needed.
func (a *Args) Set(pos int, v any) error {
	if pos < 1 {
		return fmt.Errorf("dialect/sql: invalid parameter position %d", pos)
	}
	if pos > len(a.values) {
		a.values = append(a.values, make([]any, pos-len(a.values))...)
	}
	a.values[pos-1] = v
	return nil
}

// Get returns the argument at the 1-based position.
func (a *Args) Get(pos int) any {
	if pos < 1 || pos > len(a.values) {
		return nil
	}
	return a.values[pos-1]
}

// Len returns the number of positions.
func (a *Args) Len() int { return len(a.values) }

// Values returns the arguments in position order, as passed to the driver.
func (a *Args) Values() []any { return a.values }

// BinderOption configures a binder created by NewBinder.
type BinderOption func(*binderConfig)

type binderConfig struct {
	null any
}

// TypedNull sets the value written for absent values. By default binders
// write an untyped nil; vendors that require a typed NULL, for example
// sql.NullInt64{}, set it here.
func TypedNull(v any) BinderOption {
	return func(c *binderConfig) {
		c.null = v
	}
}

type binder[T any] struct {
	name   string
	decode func(src any) (T, error)
	encode func(T) (any, error)
	null   any
}

// NewBinder returns a binder for values of type T. Decode converts a
// non-nil raw driver value to T, and encode converts T to a driver
// argument. Writes accept T, *T and nil.
func NewBinder[T any](name string, decode func(src any) (T, error), encode func(T) (any, error), opts ...BinderOption) ValueBinder {
	cfg := &binderConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &binder[T]{name: name, decode: decode, encode: encode, null: cfg.null}
}

func (b *binder[T]) Read(row *Row, label string) (any, error) {
	src, ok := row.Value(label)
	if !ok {
		return nil, fmt.Errorf("dialect/sql: %s binder: column %q not in result", b.name, label)
	}
	if src == nil {
		return nil, nil
	}
	v, err := b.decode(src)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: %s binder: column %q: %w", b.name, label, err)
	}
	return v, nil
}

func (b *binder[T]) Write(args *Args, pos int, v any) error {
	var (
		t  T
		ok bool
	)
	switch tv := v.(type) {
	case nil:
		return args.Set(pos, b.null)
	case *T:
		if tv == nil {
			return args.Set(pos, b.null)
		}
		t, ok = *tv, true
	case T:
		t, ok = tv, true
	}
	if !ok {
		return fmt.Errorf("dialect/sql: %s binder: unexpected value type %T", b.name, v)
	}
	enc, err := b.encode(t)
	if err != nil {
		return fmt.Errorf("dialect/sql: %s binder: %w", b.name, err)
	}
	return args.Set(pos, enc)
}

func (b *binder[T]) String() string { return b.name }

// BinderRegistry resolves value binders by column, then by logical type.
// It is populated when a dialect is built and is read-mostly afterwards.
// It is safe for concurrent use.
type BinderRegistry struct {
	mu      sync.RWMutex
	types   map[field.Type]ValueBinder
	columns map[string]ValueBinder
}

// NewBinderRegistry returns a registry seeded with the given type binders.
func NewBinderRegistry(defaults map[field.Type]ValueBinder) *BinderRegistry {
	r := &BinderRegistry{
		types:   make(map[field.Type]ValueBinder, len(defaults)),
		columns: make(map[string]ValueBinder),
	}
	for t, b := range defaults {
		r.types[t] = b
	}
	return r
}

// Register registers the default binder of a logical type. Registering the
// same binder again is a no-op, registering a different one is an error.
func (r *BinderRegistry) Register(t field.Type, b ValueBinder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.types[t]; ok {
		if sameBinder(prev, b) {
			return nil
		}
		return signet.NewConfigError("type %s already has a different binder", t)
	}
	r.types[t] = b
	return nil
}

// RegisterColumn registers a binder for one column. It takes precedence over
// the binder of the column type. Registering the same binder again is a
// no-op, registering a different one is an error.
func (r *BinderRegistry) RegisterColumn(c *schema.Column, b ValueBinder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.Key()
	if prev, ok := r.columns[key]; ok {
		if sameBinder(prev, b) {
			return nil
		}
		return signet.NewConfigError("column %s already has a different binder", c)
	}
	r.columns[key] = b
	return nil
}

// Binder returns the binder of the column.
func (r *BinderRegistry) Binder(c *schema.Column) (ValueBinder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.columns[c.Key()]; ok {
		return b, nil
	}
	if b, ok := r.types[c.Type]; ok {
		return b, nil
	}
	return nil, &signet.NoBinderError{Column: c.String(), Type: c.Type}
}

// TypeBinder returns the default binder of the logical type.
func (r *BinderRegistry) TypeBinder(t field.Type) (ValueBinder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.types[t]; ok {
		return b, nil
	}
	return nil, &signet.NoBinderError{Column: "<" + t.String() + ">", Type: t}
}

// Clone returns a copy of the registry.
func (r *BinderRegistry) Clone() *BinderRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewBinderRegistry(r.types)
	for k, b := range r.columns {
		c.columns[k] = b
	}
	return c
}

// sameBinder reports if both binders are the same value. Binders of
// non-comparable types are never considered the same.
func sameBinder(a, b ValueBinder) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta != nil && ta.Comparable() && a == b
}

var _ BinderResolver = (*BinderRegistry)(nil)
