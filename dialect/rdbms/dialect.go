package rdbms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

// Config holds everything a vendor supplies to build a Dialect.
type Config struct {
	Signet     dialect.Signet
	Settings   Settings
	Strategies Strategies
	// Types is the seeded SQL type registry of the vendor.
	Types *schema.TypeRegistry
	// Binders are the default binders keyed by logical type.
	Binders map[field.Type]sql.ValueBinder
}

// Dialect is the per-vendor bundle of type mapping, binders, generators,
// operation factories and limits. A Dialect is immutable once built and
// safe for concurrent use. Its type and binder registries accept
// application overrides.
type Dialect struct {
	signet     dialect.Signet
	settings   Settings
	strategies Strategies
	types      *schema.TypeRegistry
	binders    *sql.BinderRegistry
	quoter     *sql.Quoter
	ddl        *sql.DDLGenerator
	dml        *sql.DMLGenerator
	observer   sql.Observer
	logger     *slog.Logger
}

// New builds a Dialect from a vendor configuration.
func New(cfg Config) (*Dialect, error) {
	if cfg.Signet.Vendor == "" {
		return nil, signet.NewConfigError("dialect has no vendor")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	types := cfg.Types
	if types == nil {
		types = schema.NewTypeRegistry()
	}
	d := &Dialect{
		signet:     cfg.Signet,
		settings:   cfg.Settings.clone(),
		strategies: cfg.Strategies,
		types:      types,
		binders:    sql.NewBinderRegistry(cfg.Binders),
		logger:     slog.Default(),
	}
	d.build()
	return d, nil
}

// build derives the quoter and generators from the settings.
func (d *Dialect) build() {
	d.quoter = sql.NewQuoter(d.settings.QuoteChar, d.settings.Keywords...)
	var opts []sql.DDLOption
	if d.strategies.PrimaryKey != nil {
		opts = append(opts, sql.WithPrimaryKeyClause(d.strategies.PrimaryKey))
	}
	if d.strategies.Increment != nil {
		opts = append(opts, sql.WithIncrement(d.strategies.Increment))
	}
	opts = append(opts, d.strategies.DDL...)
	d.ddl = sql.NewDDLGenerator(d.quoter, d.types, opts...)
	d.dml = sql.NewDMLGenerator(d.quoter, d.settings.Placeholder, d.strategies.DML...)
}

// WithSettings returns a copy of the dialect using the given settings.
// The copy shares the type and binder registries of d.
func (d *Dialect) WithSettings(s Settings) (*Dialect, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c := *d
	c.settings = s.clone()
	c.build()
	return &c, nil
}

// Clone returns a copy of the dialect with its own type and binder
// registries, for application overrides that must not leak into other
// users of d.
func (d *Dialect) Clone() *Dialect {
	c := *d
	c.types = d.types.Clone()
	c.binders = d.binders.Clone()
	c.build()
	return &c
}

// WithObserver returns a copy of the dialect whose operations notify o of
// every statement execution.
func (d *Dialect) WithObserver(o sql.Observer) *Dialect {
	c := *d
	c.observer = o
	return &c
}

// WithLogger returns a copy of the dialect whose operations log to l.
func (d *Dialect) WithLogger(l *slog.Logger) *Dialect {
	c := *d
	c.logger = l
	return &c
}

// Signet returns the vendor and version served by the dialect.
func (d *Dialect) Signet() dialect.Signet { return d.signet }

// Settings returns a copy of the vendor settings.
func (d *Dialect) Settings() Settings { return d.settings.clone() }

// QuoteChar returns the identifier quote character.
func (d *Dialect) QuoteChar() byte { return d.settings.QuoteChar }

// Keywords returns the reserved keywords, case-folded and sorted.
func (d *Dialect) Keywords() []string { return d.quoter.Keywords() }

// MaxInListSize returns the maximum number of values in one IN list.
func (d *Dialect) MaxInListSize() int { return d.settings.MaxInListSize }

// GeneratedKeyColumn returns the label of reported generated keys, or ""
// for positional access.
func (d *Dialect) GeneratedKeyColumn() string { return d.settings.GeneratedKeyColumn }

// KeyCapture returns how the vendor reports generated keys.
func (d *Dialect) KeyCapture() sql.KeyCapture { return d.strategies.KeyCapture }

// Quoter returns the identifier quoter.
func (d *Dialect) Quoter() *sql.Quoter { return d.quoter }

// Types returns the SQL type registry.
func (d *Dialect) Types() *schema.TypeRegistry { return d.types }

// Binders returns the binder registry.
func (d *Dialect) Binders() *sql.BinderRegistry { return d.binders }

// DDL returns the DDL generator.
func (d *Dialect) DDL() *sql.DDLGenerator { return d.ddl }

// DML returns the DML generator.
func (d *Dialect) DML() *sql.DMLGenerator { return d.dml }

// TypeName returns the SQL type of the column.
func (d *Dialect) TypeName(c *schema.Column) (string, error) {
	return d.types.TypeName(c)
}

// Binder implements sql.BinderResolver. Unresolved columns are reported
// with their SQL type.
func (d *Dialect) Binder(c *schema.Column) (sql.ValueBinder, error) {
	b, err := d.binders.Binder(c)
	var nb *signet.NoBinderError
	if errors.As(err, &nb) && nb.SQLType == "" {
		if t, terr := d.types.TypeName(c); terr == nil {
			e := *nb
			e.SQLType = t
			return nil, &e
		}
	}
	return b, err
}

// SequenceSelect returns the statement selecting the next value of the
// named sequence. It reports false for vendors without sequences.
func (d *Dialect) SequenceSelect(name string) (string, bool) {
	if d.strategies.Sequence == nil {
		return "", false
	}
	return d.strategies.Sequence(d.quoter, name), true
}

// KeysReader returns the generated-keys reader of single-row or multi-row
// inserts.
func (d *Dialect) KeysReader(bulk bool) sql.GeneratedKeysReader {
	switch {
	case d.strategies.KeyCapture == sql.KeysReturning:
		return sql.ColumnKeys{Column: d.settings.GeneratedKeyColumn}
	case bulk && d.strategies.BulkKeys != nil:
		return d.strategies.BulkKeys
	default:
		return sql.ColumnKeys{}
	}
}

// ExpandNamed expands the :name parameters of query into the placeholders
// of the dialect. See sql.ExpandNamed.
func (d *Dialect) ExpandNamed(query string, values map[string]any) (*sql.Expansion, error) {
	return sql.ExpandNamed(query, values, d.settings.Placeholder, d.strategies.Expand...)
}

// ExpandPositional expands the "?" parameters of query into the
// placeholders of the dialect. See sql.ExpandPositional.
func (d *Dialect) ExpandPositional(query string, values []any) (*sql.Expansion, error) {
	return sql.ExpandPositional(query, values, d.settings.Placeholder, d.strategies.Expand...)
}

// NewReadOperation returns a read operation for the statement.
func (d *Dialect) NewReadOperation(conn sql.Preparer, stmt *sql.Statement) *sql.ReadOperation {
	var opts []sql.ReadOption
	if d.observer != nil {
		opts = append(opts, sql.WithReadObserver(d.observer))
	}
	return sql.NewReadOperation(conn, stmt, d, opts...)
}

// NewWriteOperation returns a write operation for the statement with the
// vendor retry policy. Options override the vendor defaults.
func (d *Dialect) NewWriteOperation(conn sql.Preparer, stmt *sql.Statement, opts ...sql.WriteOption) *sql.WriteOperation {
	base := []sql.WriteOption{sql.WithRetry(d.settings.Retry), sql.WithLogger(d.logger)}
	if d.observer != nil {
		base = append(base, sql.WithObserver(d.observer))
	}
	return sql.NewWriteOperation(conn, stmt, d, append(base, opts...)...)
}

// InsertOperation returns a write operation inserting rows into t. Every
// entry is expected to insert one row. When t has a single generated
// primary key column, the generated keys are captured in the way the
// vendor reports them. With bulk set, the batch is sent as one multi-row
// insert.
func (d *Dialect) InsertOperation(conn sql.Preparer, t *schema.Table, cols []*schema.Column, bulk bool) (*sql.WriteOperation, error) {
	stmt, err := d.dml.Insert(t, cols)
	if err != nil {
		return nil, err
	}
	pk := generatedKey(t)
	capture := d.strategies.KeyCapture
	if pk == nil {
		capture = sql.KeysNone
	}
	if capture == sql.KeysReturning {
		stmt = d.dml.Returning(stmt, pk)
	}
	opts := []sql.WriteOption{sql.ExpectRows(1)}
	if capture != sql.KeysNone {
		opts = append(opts, sql.WithKeys(capture, d.KeysReader(bulk)))
	}
	if bulk {
		opts = append(opts, sql.WithBulk(func(n int) (*sql.Statement, error) {
			s, err := d.dml.BulkInsert(t, cols, n)
			if err != nil {
				return nil, err
			}
			if capture == sql.KeysReturning {
				s = d.dml.Returning(s, pk)
			}
			return s, nil
		}))
	}
	return d.NewWriteOperation(conn, stmt, opts...), nil
}

// SelectByKeys selects the rows of t whose key column matches one of the
// given keys. The keys are queried in chunks of at most MaxInListSize
// values. No keys select nothing.
func (d *Dialect) SelectByKeys(ctx context.Context, conn sql.Preparer, t *schema.Table, cols []*schema.Column, key *schema.Column, keys []any) ([]sql.Record, error) {
	chunks, err := sql.Chunk(keys, d.settings.MaxInListSize)
	if err != nil {
		return nil, err
	}
	var records []sql.Record
	for _, chunk := range chunks {
		stmt, err := d.dml.SelectIn(t, cols, key, len(chunk))
		if err != nil {
			return nil, err
		}
		args, err := sql.BindKeys(stmt, key, chunk, d)
		if err != nil {
			return nil, err
		}
		cur, err := d.NewReadOperation(conn, stmt).QueryArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		rs, err := cur.Collect()
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
	}
	return records, nil
}

// DeleteByKeys deletes the rows of t whose key column matches one of the
// given keys, in chunks of at most MaxInListSize values, and returns the
// number of deleted rows.
func (d *Dialect) DeleteByKeys(ctx context.Context, conn sql.Preparer, t *schema.Table, key *schema.Column, keys []any) (int64, error) {
	chunks, err := sql.Chunk(keys, d.settings.MaxInListSize)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, chunk := range chunks {
		stmt, err := d.dml.DeleteIn(t, key, len(chunk))
		if err != nil {
			return n, err
		}
		args, err := sql.BindKeys(stmt, key, chunk, d)
		if err != nil {
			return n, err
		}
		op := d.NewWriteOperation(conn, stmt)
		if err := op.AddBatchArgs(args); err != nil {
			return n, err
		}
		res, err := op.Execute(ctx)
		if err != nil {
			return n, err
		}
		n += res.Affected()
	}
	return n, nil
}

// CreateTables executes the create statements of the tables on conn, in
// schema order. Run it on a dialect.Tx to create all or none of the tables
// on vendors with transactional DDL.
func (d *Dialect) CreateTables(ctx context.Context, conn dialect.ExecQuerier, tables []*schema.Table) error {
	stmts, err := d.ddl.CreateSchema(tables)
	if err != nil {
		return err
	}
	return d.execAll(ctx, conn, stmts)
}

// DropTables executes the drop statements of the tables on conn.
func (d *Dialect) DropTables(ctx context.Context, conn dialect.ExecQuerier, tables []*schema.Table) error {
	return d.execAll(ctx, conn, d.ddl.DropSchema(tables))
}

func (d *Dialect) execAll(ctx context.Context, conn dialect.ExecQuerier, stmts []string) error {
	for _, stmt := range stmts {
		if err := conn.Exec(ctx, stmt, []any{}, nil); err != nil {
			return &signet.StatementExecutionError{SQL: stmt, Attempts: 1, Err: err}
		}
		d.logger.Debug("executed schema statement", "sql", stmt)
	}
	return nil
}

// generatedKey returns the primary key column of t if it is a single
// database generated column.
func generatedKey(t *schema.Table) *schema.Column {
	if len(t.PrimaryKey) != 1 || !t.PrimaryKey[0].Increment {
		return nil
	}
	return t.PrimaryKey[0]
}

var _ sql.BinderResolver = (*Dialect)(nil)
