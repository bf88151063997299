// Package dialect defines the vendor identity types shared by signet.
//
// A database product is identified by a Signet: the vendor name plus the
// major and minor server version. Dialect entries decide for themselves
// which signets they serve through a Matcher:
//
//	dialect.Exact(dialect.NewSignet(dialect.MySQL, 8, 0))   // MySQL 8.0 only
//	dialect.Floor(dialect.NewSignet(dialect.SQLite, 3, 35)) // SQLite 3.35 and newer
//
// # Supported Vendors
//
//	dialect.MySQL    = "MySQL"
//	dialect.MariaDB  = "MariaDB"
//	dialect.Postgres = "PostgreSQL"
//	dialect.SQLite   = "SQLite"
//
// # Driver Interface
//
// The package also defines the Driver interface implemented by
// dialect/sql.Driver:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: statement generators, value binders and operation executors
//   - dialect/sql/schema: tables, columns and the SQL type registry
//   - dialect/sql/sqlerr: driver error classification
//   - dialect/rdbms: the per-vendor Dialect aggregate and its resolver
package dialect
