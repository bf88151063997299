package schemafile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

func TestOpen(t *testing.T) {
	f, err := Open("testdata/shop.yaml")
	require.NoError(t, err)
	require.Len(t, f.Tables, 2)

	orders, customers := f.Tables[0], f.Tables[1]
	assert.Equal(t, "orders", orders.Name)
	require.Len(t, orders.Columns, 4)
	customer, ok := orders.Column("CUSTOMER_ID")
	require.True(t, ok)
	assert.Equal(t, field.TypeInt64, customer.Type)
	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	assert.Same(t, customers, fk.RefTable, "foreign keys may reference later tables")
	assert.Equal(t, "orders_customer_fk", fk.Symbol)

	email, _ := customers.Column("email")
	assert.Equal(t, int64(128), email.Size)
	require.Len(t, customers.Indexes, 1)
	assert.True(t, customers.Indexes[0].Unique)

	prefs, _ := customers.Column("preferences")
	assert.Equal(t, map[*schema.Column]string{prefs: "json"}, f.SQLTypes)
	types := schema.NewTypeRegistry().Put(field.TypeString, "text")
	f.Apply(types)
	typ, err := types.TypeName(prefs)
	require.NoError(t, err)
	assert.Equal(t, "json", typ)

	res := f.Validate(nil)
	assert.False(t, res.HasErrors(), res.String())
	res = f.Validate(types)
	assert.True(t, res.HasErrors(), "int64 and time have no sql type")
}

func TestLoadErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"Empty":          "",
		"UnknownField":   "tables:\n  - name: t\n    colums: []\n",
		"UnknownType":    "tables:\n  - name: t\n    columns: [{name: a, type: money}]\n",
		"MissingName":    "tables:\n  - columns: [{name: a, type: int}]\n",
		"UnknownPK":      "tables:\n  - name: t\n    primary_key: [b]\n    columns: [{name: a, type: int}]\n",
		"UnknownRef":     "tables:\n  - name: t\n    columns: [{name: a, type: int}]\n    foreign_keys: [{name: fk, columns: [a], references: {table: u, columns: [id]}}]\n",
		"DuplicateTable": "tables:\n  - name: t\n    columns: [{name: a, type: int}]\n  - name: T\n    columns: [{name: a, type: int}]\n",
		"Redefined":      "tables:\n  - name: t\n    columns: [{name: a, type: int}, {name: A, type: string}]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, signet.IsConfigError(err), "got %v", err)
		})
	}
	_, err := Open("testdata/missing.yaml")
	assert.Error(t, err)
}
