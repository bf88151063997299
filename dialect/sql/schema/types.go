package schema

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/syssam/signet"
	"github.com/syssam/signet/schema/field"
)

// SizePlaceholder is replaced by the column size in registered SQL types,
// e.g. "varchar($l)".
const SizePlaceholder = "$l"

// TypeNamer names the SQL type of a column. It is the type naming strategy
// used by the DDL generator.
type TypeNamer interface {
	TypeName(*Column) (string, error)
}

// TypeRegistry maps logical types to SQL column types. It is populated by
// the vendor dialect at construction time and consulted when generating
// DDL. It is safe for concurrent use.
type TypeRegistry struct {
	mu        sync.RWMutex
	defaults  map[field.Type]string
	sized     map[field.Type][]sizedType
	overrides map[string]string
}

type sizedType struct {
	size    int64
	sqlType string
}

// NewTypeRegistry returns an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		defaults:  make(map[field.Type]string),
		sized:     make(map[field.Type][]sizedType),
		overrides: make(map[string]string),
	}
}

// Put registers the size-less default SQL type of a logical type.
func (r *TypeRegistry) Put(t field.Type, sqlType string) *TypeRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[t] = sqlType
	return r
}

// PutSized registers the SQL type used for columns of type t whose size is
// at most size. Among all registrations for a type, the smallest size
// greater or equal to the column size wins.
func (r *TypeRegistry) PutSized(t field.Type, size int64, sqlType string) *TypeRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := r.sized[t]
	i, found := slices.BinarySearchFunc(types, size, func(st sizedType, size int64) int {
		switch {
		case st.size < size:
			return -1
		case st.size > size:
			return 1
		}
		return 0
	})
	if found {
		types[i].sqlType = sqlType
	} else {
		types = slices.Insert(types, i, sizedType{size: size, sqlType: sqlType})
	}
	r.sized[t] = types
	return r
}

// PutColumn registers an explicit SQL type for one column. It takes
// precedence over any type-level registration.
func (r *TypeRegistry) PutColumn(c *Column, sqlType string) *TypeRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[c.Key()] = sqlType
	return r
}

// TypeName returns the SQL type of the column.
func (r *TypeRegistry) TypeName(c *Column) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.overrides[c.Key()]; ok {
		return t, nil
	}
	if c.Size > 0 {
		for _, st := range r.sized[c.Type] {
			if st.size >= c.Size {
				return withSize(st.sqlType, c.Size), nil
			}
		}
	}
	if t, ok := r.defaults[c.Type]; ok {
		return withSize(t, c.Size), nil
	}
	return "", &signet.NoTypeMappingError{Column: c.String(), Type: c.Type, Size: c.Size}
}

// Clone returns a deep copy of the registry.
func (r *TypeRegistry) Clone() *TypeRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewTypeRegistry()
	for t, v := range r.defaults {
		c.defaults[t] = v
	}
	for t, v := range r.sized {
		c.sized[t] = slices.Clone(v)
	}
	for k, v := range r.overrides {
		c.overrides[k] = v
	}
	return c
}

// withSize substitutes the size placeholder. Types registered with a
// placeholder but used without a size fall back to their unsized form,
// e.g. "varchar($l)" becomes "varchar".
func withSize(sqlType string, size int64) string {
	if !strings.Contains(sqlType, SizePlaceholder) {
		return sqlType
	}
	if size > 0 {
		return strings.ReplaceAll(sqlType, SizePlaceholder, strconv.FormatInt(size, 10))
	}
	return strings.ReplaceAll(sqlType, "("+SizePlaceholder+")", "")
}

var _ TypeNamer = (*TypeRegistry)(nil)
