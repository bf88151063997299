// Package postgres registers the PostgreSQL dialect.
//
//	import _ "github.com/syssam/signet/dialect/rdbms/postgres"
package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/dialect/sql/sqlerr"
	"github.com/syssam/signet/schema/field"
)

func init() {
	rdbms.Register("PostgreSQL 9.6+", dialect.Floor(V96), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V96)) })
}

// V96 is the oldest supported version.
var V96 = dialect.NewSignet(dialect.Postgres, 9, 6)

// Keywords are the reserved key words of PostgreSQL.
var Keywords = []string{
	"all", "analyse", "analyze", "and", "any", "array", "as", "asc", "asymmetric",
	"authorization", "binary", "both", "case", "cast", "check", "collate",
	"collation", "column", "concurrently", "constraint", "create", "cross",
	"current_catalog", "current_date", "current_role", "current_schema",
	"current_time", "current_timestamp", "current_user", "default", "deferrable",
	"desc", "distinct", "do", "else", "end", "except", "false", "fetch", "for",
	"foreign", "freeze", "from", "full", "grant", "group", "having", "ilike", "in",
	"initially", "inner", "intersect", "into", "is", "isnull", "join", "lateral",
	"leading", "left", "like", "limit", "localtime", "localtimestamp", "natural",
	"not", "notnull", "null", "offset", "on", "only", "or", "order", "outer",
	"overlaps", "placing", "primary", "references", "returning", "right",
	"select", "session_user", "similar", "some", "symmetric", "table",
	"tablesample", "then", "to", "trailing", "true", "union", "unique", "user",
	"using", "variadic", "verbose", "when", "where", "window", "with",
}

// StringsBinder binds []string values as PostgreSQL text arrays.
var StringsBinder = sql.NewBinder("strings", func(src any) ([]string, error) {
	var a pq.StringArray
	if err := a.Scan(src); err != nil {
		return nil, err
	}
	return []string(a), nil
}, func(v []string) (any, error) {
	return pq.StringArray(v), nil
})

// IsSerializationFailure matches deadlocks and serialization failures,
// which succeed when the statement is run again.
func IsSerializationFailure(err error) bool {
	e, ok := sqlerr.As[*pq.Error](err)
	if !ok {
		return false
	}
	switch e.Code {
	case "40001", "40P01":
		return true
	}
	return false
}

// Types returns the seeded SQL type registry.
func Types() *schema.TypeRegistry {
	return schema.NewTypeRegistry().
		Put(field.TypeBool, "boolean").
		Put(field.TypeInt, "integer").
		Put(field.TypeInt64, "bigint").
		Put(field.TypeFloat64, "double precision").
		Put(field.TypeDecimal, "numeric").
		PutSized(field.TypeString, 10485760, "varchar($l)").
		Put(field.TypeString, "text").
		Put(field.TypeBytes, "bytea").
		Put(field.TypeTime, "timestamp with time zone").
		Put(field.TypeUUID, "uuid").
		Put(field.TypeStrings, "text[]").
		Put(field.TypeSerialized, "bytea")
}

// Binders returns the default binders with the text array binder.
func Binders() map[field.Type]sql.ValueBinder {
	b := sql.DefaultBinders()
	b[field.TypeStrings] = StringsBinder
	return b
}

// NextVal returns the statement selecting the next value of a sequence.
func NextVal(_ *sql.Quoter, name string) string {
	return fmt.Sprintf("select nextval('%s')", strings.ReplaceAll(name, "'", "''"))
}

// Config returns the dialect configuration for the given signet.
func Config(s dialect.Signet) rdbms.Config {
	return rdbms.Config{
		Signet: s,
		Settings: rdbms.Settings{
			QuoteChar:     '"',
			Keywords:      Keywords,
			MaxInListSize: 1000,
			Placeholder:   sql.Dollar,
			Retry: sql.RetryPolicy{
				MaxRetries: 3,
				Delay:      50 * time.Millisecond,
				Retryable:  sql.AnyOf(IsSerializationFailure, sqlerr.IsLockTimeout),
			},
		},
		Strategies: rdbms.Strategies{
			PrimaryKey: sql.TablePrimaryKey{},
			Increment:  sql.SerialIncrement,
			DML:        []sql.DMLOption{sql.WithUpdateStyle(sql.UpdateFrom)},
			KeyCapture: sql.KeysReturning,
			Sequence:   NextVal,
		},
		Types:   Types(),
		Binders: Binders(),
	}
}
