package field

import "strings"

// Type is the logical type of a column. It keys both the SQL type registry
// and the binder registry, and is fixed once a column is defined.
type Type uint8

// Logical types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeString
	TypeBytes
	TypeTime
	TypeUUID
	TypeStrings
	TypeSerialized
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:    "invalid",
	TypeBool:       "bool",
	TypeInt:        "int",
	TypeInt64:      "int64",
	TypeFloat64:    "float64",
	TypeDecimal:    "decimal",
	TypeString:     "string",
	TypeBytes:      "bytes",
	TypeTime:       "time.Time",
	TypeUUID:       "uuid.UUID",
	TypeStrings:    "[]string",
	TypeSerialized: "serialized",
}

// String returns the string representation of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the type is a known logical type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the type is an integer or floating point type.
func (t Type) Numeric() bool {
	switch t {
	case TypeInt, TypeInt64, TypeFloat64, TypeDecimal:
		return true
	}
	return false
}

// Integer reports if the type can hold generated integer keys.
func (t Type) Integer() bool {
	return t == TypeInt || t == TypeInt64
}

// Types returns all valid logical types in declaration order.
func Types() []Type {
	types := make([]Type, 0, endTypes-1)
	for t := TypeBool; t < endTypes; t++ {
		types = append(types, t)
	}
	return types
}

// ParseType returns the logical type for the given name. Names are matched
// case-insensitively, and the short aliases used in schema files ("time",
// "uuid", "text", "blob", "strings") are accepted.
func ParseType(name string) (Type, bool) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "time":
		return TypeTime, true
	case "uuid":
		return TypeUUID, true
	case "text":
		return TypeString, true
	case "blob", "binary":
		return TypeBytes, true
	case "strings":
		return TypeStrings, true
	case "integer":
		return TypeInt, true
	case "long":
		return TypeInt64, true
	case "float", "double":
		return TypeFloat64, true
	case "boolean":
		return TypeBool, true
	default:
		for t := TypeBool; t < endTypes; t++ {
			if strings.EqualFold(typeNames[t], n) {
				return t, true
			}
		}
	}
	return TypeInvalid, false
}
