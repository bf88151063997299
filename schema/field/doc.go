// Package field defines the logical column types used across signet.
//
// A logical type describes what kind of Go value a column carries,
// independently of any database vendor:
//
//	field.TypeString   // string
//	field.TypeInt64    // int64
//	field.TypeTime     // time.Time
//	field.TypeUUID     // uuid.UUID
//	field.TypeBytes    // []byte
//
// Vendors map each logical type to a SQL column type (see
// dialect/sql/schema.TypeRegistry) and to a value binder that converts
// between Go values and driver values (see dialect/sql.BinderRegistry).
//
// Schema files accept the type names returned by Type.String and a few
// common aliases:
//
//	field.ParseType("uuid")    // TypeUUID, true
//	field.ParseType("text")    // TypeString, true
//	field.ParseType("long")    // TypeInt64, true
package field
