package dialect

import (
	"context"
	"strings"
)

// Vendor names of the supported database systems. They are the vendor
// component of a Signet.
const (
	MySQL    = "MySQL"
	MariaDB  = "MariaDB"
	Postgres = "PostgreSQL"
	SQLite   = "SQLite"
)

// Driver names as registered in database/sql by the vendor drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is *database/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for a connection.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the driver name of the connection.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// VendorOf returns the vendor name for a database/sql driver name, matched
// by prefix to accept wrapped driver names such as "sqlite3" or
// "postgres-traced". The second return value is false for unknown drivers.
func VendorOf(driverName string) (string, bool) {
	switch name := strings.ToLower(driverName); {
	case strings.HasPrefix(name, DriverMySQL):
		return MySQL, true
	case strings.HasPrefix(name, DriverPostgres), strings.HasPrefix(name, "pgx"):
		return Postgres, true
	case strings.HasPrefix(name, DriverSQLite):
		return SQLite, true
	}
	return "", false
}
