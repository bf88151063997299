// Package schema describes tables and columns, and maps their logical
// types to vendor SQL types.
//
// Tables own their columns. Column identity is the case-insensitive pair
// (table, name), and a column cannot be redefined with another type or size:
//
//	users := schema.NewTable("users")
//	id := users.MustAddColumn(&schema.Column{Name: "id", Type: field.TypeInt64, Increment: true})
//	name := users.MustAddColumn(&schema.Column{Name: "name", Type: field.TypeString, Size: 100})
//	if err := users.SetPrimaryKey(id); err != nil {
//	    return err
//	}
//
// A TypeRegistry resolves the SQL type of a column in three steps: an
// explicit per-column override, then the smallest registered size that fits
// the column, then the type default:
//
//	types := schema.NewTypeRegistry().
//	    Put(field.TypeString, "varchar(255)").
//	    PutSized(field.TypeString, 16383, "varchar($l)").
//	    PutSized(field.TypeString, 65535, "text")
//	types.TypeName(name) // varchar(100)
package schema
