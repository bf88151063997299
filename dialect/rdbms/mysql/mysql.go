// Package mysql registers the MySQL dialects. Importing it for its side
// effects makes MySQL 5.7 and later resolvable:
//
//	import _ "github.com/syssam/signet/dialect/rdbms/mysql"
package mysql

import (
	"slices"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

func init() {
	rdbms.Register("MySQL 8.0+", dialect.Floor(V80), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V80)) })
	rdbms.Register("MySQL 5.7+", dialect.Floor(V57), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V57)) })
}

// Signets of the registered entries.
var (
	V57 = dialect.NewSignet(dialect.MySQL, 5, 7)
	V80 = dialect.NewSignet(dialect.MySQL, 8, 0)
)

// Keywords are the reserved words of MySQL 5.7 that are likely to be used
// as identifiers.
var Keywords = []string{
	"add", "all", "alter", "and", "as", "asc", "between", "by", "call", "case",
	"change", "check", "column", "condition", "constraint", "create", "cross",
	"current_date", "current_time", "current_timestamp", "current_user",
	"database", "databases", "default", "delete", "desc", "describe", "distinct",
	"div", "drop", "else", "exists", "explain", "false", "fetch", "for", "force",
	"foreign", "from", "fulltext", "grant", "group", "having", "if", "ignore",
	"in", "index", "inner", "insert", "interval", "into", "is", "join", "key",
	"keys", "kill", "leading", "left", "like", "limit", "lines", "load", "lock",
	"long", "match", "mod", "natural", "not", "null", "on", "option", "or",
	"order", "outer", "partition", "primary", "procedure", "range", "read",
	"references", "regexp", "release", "rename", "repeat", "replace", "require",
	"restrict", "return", "revoke", "right", "rlike", "schema", "select", "set",
	"show", "signal", "spatial", "sql", "table", "then", "to", "trailing",
	"trigger", "true", "union", "unique", "unlock", "update", "usage", "use",
	"using", "values", "when", "where", "while", "with", "write", "xor",
}

// Keywords80 are the words reserved since MySQL 8.0.
var Keywords80 = []string{
	"cume_dist", "dense_rank", "empty", "except", "first_value", "grouping",
	"groups", "json_table", "lag", "last_value", "lateral", "lead", "nth_value",
	"ntile", "of", "over", "percent_rank", "rank", "recursive", "row", "row_number",
	"rows", "system", "window",
}

// IsLockWaitTimeout matches the InnoDB lock wait timeout (error 1205),
// which MySQL may report even at low concurrency.
var IsLockWaitTimeout = sql.MatchCause[*mysql.MySQLError]("Lock wait timeout exceeded")

// IsDeadlock matches InnoDB deadlocks (error 1213).
var IsDeadlock = sql.MatchCause[*mysql.MySQLError]("Deadlock found")

// Types returns the SQL type registry seeded for the given version.
func Types(s dialect.Signet) *schema.TypeRegistry {
	r := schema.NewTypeRegistry().
		Put(field.TypeBool, "boolean").
		Put(field.TypeInt, "int").
		Put(field.TypeInt64, "bigint").
		Put(field.TypeFloat64, "double").
		Put(field.TypeDecimal, "decimal(65,30)").
		PutSized(field.TypeString, 255, "varchar($l)").
		PutSized(field.TypeString, 65535, "text").
		PutSized(field.TypeString, 16777215, "mediumtext").
		PutSized(field.TypeString, 4294967295, "longtext").
		Put(field.TypeString, "varchar(255)").
		PutSized(field.TypeBytes, 255, "varbinary($l)").
		PutSized(field.TypeBytes, 65535, "blob").
		PutSized(field.TypeBytes, 16777215, "mediumblob").
		PutSized(field.TypeBytes, 4294967295, "longblob").
		Put(field.TypeBytes, "blob").
		Put(field.TypeTime, "timestamp(6)").
		Put(field.TypeUUID, "char(36)").
		Put(field.TypeSerialized, "longblob")
	if !s.Less(V80) {
		r.Put(field.TypeTime, "datetime(6)")
	}
	return r
}

// Settings returns the vendor settings for the given version.
func Settings(s dialect.Signet) rdbms.Settings {
	keywords := slices.Clone(Keywords)
	if !s.Less(V80) {
		keywords = append(keywords, Keywords80...)
	}
	return rdbms.Settings{
		QuoteChar:     '`',
		Keywords:      keywords,
		MaxInListSize: 1000,
		Placeholder:   sql.QuestionMark,
		Retry: sql.RetryPolicy{
			MaxRetries: 3,
			Delay:      100 * time.Millisecond,
			Retryable:  sql.AnyOf(IsLockWaitTimeout, IsDeadlock),
		},
	}
}

// Strategies returns the MySQL strategies. MySQL reports the first key
// generated by a multi-row insert, and treats a backslash in quoted text
// as an escape.
func Strategies() rdbms.Strategies {
	return rdbms.Strategies{
		PrimaryKey: sql.TablePrimaryKey{},
		Increment:  sql.IncrementSuffix("auto_increment"),
		DDL: []sql.DDLOption{
			sql.WithDropIndexOn(),
			sql.WithDropForeignKey("foreign key"),
		},
		Expand:     []sql.ExpandOption{sql.WithBackslashEscapes()},
		KeyCapture: sql.KeysLastInsertID,
		BulkKeys:   sql.FirstKeyOnly{},
	}
}

// Config returns the dialect configuration for the given signet.
func Config(s dialect.Signet) rdbms.Config {
	return rdbms.Config{
		Signet:     s,
		Settings:   Settings(s),
		Strategies: Strategies(),
		Types:      Types(s),
		Binders:    sql.DefaultBinders(),
	}
}
