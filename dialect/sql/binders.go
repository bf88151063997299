package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/signet/schema/field"
)

// Standard binders shared by all vendors. They are package-level values so
// that registering them twice is recognized as the same binder.
var (
	BoolBinder    = NewBinder("bool", decodeBool, identity[bool])
	IntBinder     = NewBinder("int", decodeInt, func(v int) (any, error) { return int64(v), nil })
	Int64Binder   = NewBinder("int64", decodeInt64, identity[int64])
	Float64Binder = NewBinder("float64", decodeFloat64, identity[float64])
	DecimalBinder = NewBinder("decimal", decodeDecimal, identity[string])
	StringBinder  = NewBinder("string", decodeString, identity[string])
	BytesBinder   = NewBinder("bytes", decodeBytes, identity[[]byte])
	TimeBinder    = NewBinder("time", decodeTime, identity[time.Time])
	// UUIDBinder writes UUIDs in their canonical string form.
	UUIDBinder = NewBinder("uuid", decodeUUID, func(u uuid.UUID) (any, error) { return u.String(), nil })
	// UUIDBytesBinder writes UUIDs as 16 raw bytes, e.g. for binary(16) columns.
	UUIDBytesBinder = NewBinder("uuid", decodeUUID, func(u uuid.UUID) (any, error) { return u[:], nil })
	// SerializedBinder encodes arbitrary values with msgpack. Use
	// NewSerializedBinder for a binder that decodes into a concrete type.
	SerializedBinder = NewSerializedBinder[any]()
)

// DefaultBinders returns the standard binders keyed by logical type. The
// strings type has no portable encoding and is left to vendors.
func DefaultBinders() map[field.Type]ValueBinder {
	return map[field.Type]ValueBinder{
		field.TypeBool:       BoolBinder,
		field.TypeInt:        IntBinder,
		field.TypeInt64:      Int64Binder,
		field.TypeFloat64:    Float64Binder,
		field.TypeDecimal:    DecimalBinder,
		field.TypeString:     StringBinder,
		field.TypeBytes:      BytesBinder,
		field.TypeTime:       TimeBinder,
		field.TypeUUID:       UUIDBinder,
		field.TypeSerialized: SerializedBinder,
	}
}

// NewSerializedBinder returns a binder storing values of type T as msgpack
// encoded bytes.
func NewSerializedBinder[T any](opts ...BinderOption) ValueBinder {
	return NewBinder("serialized", func(src any) (T, error) {
		var v T
		b, err := decodeBytes(src)
		if err != nil {
			return v, err
		}
		if err := msgpack.Unmarshal(b, &v); err != nil {
			return v, fmt.Errorf("msgpack decode: %w", err)
		}
		return v, nil
	}, func(v T) (any, error) {
		b, err := msgpack.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("msgpack encode: %w", err)
		}
		return b, nil
	}, opts...)
}

func identity[T any](v T) (any, error) { return v, nil }

func decodeBool(src any) (bool, error) {
	var n sql.NullBool
	if err := n.Scan(src); err != nil {
		return false, err
	}
	return n.Bool, nil
}

func decodeInt64(src any) (int64, error) {
	var n sql.NullInt64
	if err := n.Scan(src); err != nil {
		return 0, err
	}
	return n.Int64, nil
}

func decodeInt(src any) (int, error) {
	v, err := decodeInt64(src)
	if err != nil {
		return 0, err
	}
	if int64(int(v)) != v {
		return 0, fmt.Errorf("value %d overflows int", v)
	}
	return int(v), nil
}

func decodeFloat64(src any) (float64, error) {
	var n sql.NullFloat64
	if err := n.Scan(src); err != nil {
		return 0, err
	}
	return n.Float64, nil
}

func decodeString(src any) (string, error) {
	var n sql.NullString
	if err := n.Scan(src); err != nil {
		return "", err
	}
	return n.String, nil
}

// decodeDecimal keeps the textual representation of the driver value.
// Drivers report decimals as []byte or string; SQLite may store them as
// REAL or INTEGER.
func decodeDecimal(src any) (string, error) {
	switch v := src.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	}
	return decodeString(src)
}

func decodeBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unexpected type %T for bytes", src)
}

// timeLayouts are the textual formats drivers use for time values, most
// notably SQLite, which has no time storage class.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

func decodeTime(src any) (time.Time, error) {
	var s string
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T for time", src)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time value %q", s)
}

func decodeUUID(src any) (uuid.UUID, error) {
	switch v := src.(type) {
	case uuid.UUID:
		return v, nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.Nil, fmt.Errorf("unexpected type %T for uuid", src)
}
