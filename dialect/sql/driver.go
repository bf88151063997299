package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/signet/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
	meta    *metadataCache
}

// NewDriver creates a new Driver with the given Conn and database/sql
// driver name.
func NewDriver(driverName string, c Conn) *Driver {
	return &Driver{dialect: driverName, Conn: c, meta: &metadataCache{}}
}

// Open wraps the database/sql.Open method and returns a dialect.Driver.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(driverName, Conn{db, driverName}), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(driverName string, db *sql.DB) *Driver {
	return NewDriver(driverName, Conn{db, driverName})
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Driver method. It returns the vendor name
// of the connection, or the driver name for unknown drivers.
func (d *Driver) Dialect() string {
	if vendor, ok := dialect.VendorOf(d.dialect); ok {
		return vendor
	}
	return d.dialect
}

// DriverName returns the database/sql driver name of the connection.
func (d *Driver) DriverName() string { return d.dialect }

// Metadata implements MetadataReader. The version query runs once per Driver;
// concurrent first calls share one query. A caller giving up on its
// context does not fail the query for the others.
func (d *Driver) Metadata(ctx context.Context) (Metadata, error) {
	return d.meta.load(ctx, d.Conn, d.dialect)
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// Metadata implements MetadataReader by querying the server inside the
// transaction.
func (tx *Tx) Metadata(ctx context.Context) (Metadata, error) {
	return QueryMetadata(ctx, tx.Conn, tx.dialect)
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

// PrepareContext implements Preparer when the underlying ExecQuerier
// supports prepared statements.
func (c Conn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	p, ok := c.ExecQuerier.(Preparer)
	if !ok {
		return nil, fmt.Errorf("dialect/sql: %T does not support prepared statements", c.ExecQuerier)
	}
	return p.PrepareContext(ctx, query)
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
	_ Preparer       = (*Driver)(nil)
	_ Preparer       = (*Tx)(nil)
	_ MetadataReader = (*Driver)(nil)
	_ MetadataReader = (*Tx)(nil)
)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// queryTimeout bounds a shared metadata query, which outlives the
// cancellation of the caller that started it.
const queryTimeout = 30 * time.Second

// metadataCache memoizes the metadata of a Driver.
type metadataCache struct {
	group singleflight.Group
	meta  atomic.Pointer[Metadata]
}

func (m *metadataCache) load(ctx context.Context, q dialect.ExecQuerier, driverName string) (Metadata, error) {
	if p := m.meta.Load(); p != nil {
		return *p, nil
	}
	ch := m.group.DoChan("metadata", func() (any, error) {
		if p := m.meta.Load(); p != nil {
			return *p, nil
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queryTimeout)
		defer cancel()
		meta, err := QueryMetadata(pctx, q, driverName)
		if err != nil {
			return nil, err
		}
		m.meta.Store(&meta)
		return meta, nil
	})
	select {
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Metadata{}, r.Err
		}
		return r.Val.(Metadata), nil
	}
}
