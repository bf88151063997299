package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/signet/schema/field"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  field.Type
		want string
	}{
		{field.TypeBool, "bool"},
		{field.TypeInt64, "int64"},
		{field.TypeTime, "time.Time"},
		{field.TypeUUID, "uuid.UUID"},
		{field.TypeSerialized, "serialized"},
		{field.TypeInvalid, "invalid"},
		{field.Type(200), "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeValid(t *testing.T) {
	assert.False(t, field.TypeInvalid.Valid())
	assert.False(t, field.Type(200).Valid())
	for _, typ := range field.Types() {
		assert.True(t, typ.Valid(), typ.String())
	}
	assert.Len(t, field.Types(), 11)
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, field.TypeInt.Integer())
	assert.True(t, field.TypeInt64.Integer())
	assert.False(t, field.TypeFloat64.Integer())
	assert.True(t, field.TypeFloat64.Numeric())
	assert.True(t, field.TypeDecimal.Numeric())
	assert.False(t, field.TypeString.Numeric())
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want field.Type
		ok   bool
	}{
		{"string", field.TypeString, true},
		{"TEXT", field.TypeString, true},
		{" uuid ", field.TypeUUID, true},
		{"time", field.TypeTime, true},
		{"time.Time", field.TypeTime, true},
		{"long", field.TypeInt64, true},
		{"blob", field.TypeBytes, true},
		{"[]string", field.TypeStrings, true},
		{"strings", field.TypeStrings, true},
		{"geometry", field.TypeInvalid, false},
		{"invalid", field.TypeInvalid, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := field.ParseType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
