// Package sqlite registers the SQLite dialects, backed by the pure Go
// modernc.org/sqlite driver.
//
//	import _ "github.com/syssam/signet/dialect/rdbms/sqlite"
package sqlite

import (
	"time"

	"modernc.org/sqlite"

	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/dialect/sql/sqlerr"
	"github.com/syssam/signet/schema/field"
)

func init() {
	rdbms.Register("SQLite 3.35+", dialect.Floor(V335), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V335)) })
	rdbms.Register("SQLite 3.0+", dialect.Floor(V30), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V30)) })
}

// Signets of the registered entries. Inserts report their generated keys
// through a returning clause since 3.35, and updates may join other tables
// with a from clause.
var (
	V30  = dialect.NewSignet(dialect.SQLite, 3, 0)
	V335 = dialect.NewSignet(dialect.SQLite, 3, 35)
)

// Keywords are the SQLite keywords that cannot be used as plain identifiers.
var Keywords = []string{
	"abort", "action", "add", "after", "all", "alter", "analyze", "and", "as",
	"asc", "attach", "autoincrement", "before", "begin", "between", "by",
	"cascade", "case", "cast", "check", "collate", "column", "commit", "conflict",
	"constraint", "create", "cross", "current_date", "current_time",
	"current_timestamp", "database", "default", "deferrable", "deferred",
	"delete", "desc", "detach", "distinct", "drop", "each", "else", "end",
	"escape", "except", "exclusive", "exists", "explain", "fail", "for",
	"foreign", "from", "full", "glob", "group", "having", "if", "ignore",
	"immediate", "in", "index", "indexed", "initially", "inner", "insert",
	"instead", "intersect", "into", "is", "isnull", "join", "key", "left",
	"like", "limit", "match", "natural", "no", "not", "notnull", "null", "of",
	"offset", "on", "or", "order", "outer", "plan", "pragma", "primary", "query",
	"raise", "recursive", "references", "regexp", "reindex", "release", "rename",
	"replace", "restrict", "right", "rollback", "row", "savepoint", "select",
	"set", "table", "temp", "temporary", "then", "to", "transaction", "trigger",
	"union", "unique", "update", "using", "vacuum", "values", "view", "virtual",
	"when", "where", "with", "without",
}

// IsBusy matches SQLITE_BUSY and SQLITE_LOCKED errors reported by the
// driver when another connection holds a conflicting lock.
func IsBusy(err error) bool {
	if _, ok := sqlerr.As[*sqlite.Error](err); !ok {
		return false
	}
	return sqlerr.IsBusy(err)
}

// Types returns the seeded SQL type registry.
func Types() *schema.TypeRegistry {
	return schema.NewTypeRegistry().
		Put(field.TypeBool, "bool").
		Put(field.TypeInt, "integer").
		Put(field.TypeInt64, "integer").
		Put(field.TypeFloat64, "real").
		Put(field.TypeDecimal, "decimal").
		Put(field.TypeString, "text").
		PutSized(field.TypeString, 2147483647, "varchar($l)").
		Put(field.TypeBytes, "blob").
		Put(field.TypeTime, "datetime").
		Put(field.TypeUUID, "uuid").
		Put(field.TypeSerialized, "blob")
}

// Config returns the dialect configuration for the given signet. SQLite
// reports the last key generated by a multi-row insert.
func Config(s dialect.Signet) rdbms.Config {
	cfg := rdbms.Config{
		Signet: s,
		Settings: rdbms.Settings{
			QuoteChar: '"',
			Keywords:  Keywords,
			// Stay below the default limit of 999 host parameters.
			MaxInListSize: 500,
			Placeholder:   sql.QuestionMark,
			Retry: sql.RetryPolicy{
				MaxRetries: 5,
				Delay:      20 * time.Millisecond,
				Retryable:  IsBusy,
			},
		},
		Strategies: rdbms.Strategies{
			PrimaryKey: sql.InlineIncrementPrimaryKey{},
			DDL:        []sql.DDLOption{sql.WithInlineForeignKeys()},
			DML:        []sql.DMLOption{sql.WithUpdateStyle(sql.UpdateSingle)},
			KeyCapture: sql.KeysLastInsertID,
			BulkKeys:   sql.HighestKeyOnly{},
		},
		Types:   Types(),
		Binders: sql.DefaultBinders(),
	}
	if !s.Less(V335) {
		cfg.Strategies.KeyCapture = sql.KeysReturning
		cfg.Strategies.BulkKeys = nil
		cfg.Strategies.DML = []sql.DMLOption{sql.WithUpdateStyle(sql.UpdateFrom)}
	}
	return cfg
}
