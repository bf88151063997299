package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
)

// Preparer prepares statements. *sql.DB, *sql.Tx, *sql.Conn and Driver
// implement it.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Record is a decoded result row.
type Record struct {
	Columns []*schema.Column
	Values  []any
}

// Get returns the value of column c. NULL values are returned as nil.
func (r Record) Get(c *schema.Column) (any, bool) {
	i := slices.Index(r.Columns, c)
	if i < 0 {
		return nil, false
	}
	return r.Values[i], true
}

// BindColumns binds the values of the given columns at their positions.
// Every column in positions must have an entry in values; a nil entry is
// bound as NULL.
func BindColumns(args *Args, positions map[*schema.Column]int, values map[*schema.Column]any, binders BinderResolver) error {
	for c, pos := range positions {
		v, ok := values[c]
		if !ok {
			return &signet.UnknownParameterError{Name: c.String()}
		}
		b, err := binders.Binder(c)
		if err != nil {
			return err
		}
		if err := b.Write(args, pos, v); err != nil {
			return fmt.Errorf("dialect/sql: bind %s: %w", c, err)
		}
	}
	return nil
}

// BindKeys binds the values of an IN list generated by SelectIn or DeleteIn.
func BindKeys(stmt *Statement, key *schema.Column, keys []any, binders BinderResolver) (*Args, error) {
	start, ok := stmt.Where[key]
	if !ok {
		return nil, &signet.UnknownParameterError{Name: key.String()}
	}
	if len(keys) != stmt.NumParams-start+1 {
		return nil, fmt.Errorf("dialect/sql: statement expects %d keys, got %d", stmt.NumParams-start+1, len(keys))
	}
	b, err := binders.Binder(key)
	if err != nil {
		return nil, err
	}
	args := NewArgs(stmt.NumParams)
	for i, k := range keys {
		if err := b.Write(args, start+i, k); err != nil {
			return nil, fmt.Errorf("dialect/sql: bind %s: %w", key, err)
		}
	}
	return args, nil
}

// ReadOperation executes a select statement and decodes its rows with
// the binders of the selected columns.
type ReadOperation struct {
	conn     Preparer
	stmt     *Statement
	binders  BinderResolver
	observer Observer
}

// ReadOption configures a ReadOperation.
type ReadOption func(*ReadOperation)

// WithReadObserver sets the observer notified of the query execution.
func WithReadObserver(o Observer) ReadOption {
	return func(op *ReadOperation) {
		op.observer = o
	}
}

// NewReadOperation returns a read operation for the statement.
func NewReadOperation(conn Preparer, stmt *Statement, binders BinderResolver, opts ...ReadOption) *ReadOperation {
	op := &ReadOperation{conn: conn, stmt: stmt, binders: binders}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// Query binds the WHERE values and runs the statement.
func (op *ReadOperation) Query(ctx context.Context, where map[*schema.Column]any) (*Cursor, error) {
	args := NewArgs(op.stmt.NumParams)
	if err := BindColumns(args, op.stmt.Where, where, op.binders); err != nil {
		return nil, err
	}
	return op.QueryArgs(ctx, args)
}

// QueryArgs runs the statement with already bound arguments.
func (op *ReadOperation) QueryArgs(ctx context.Context, args *Args) (_ *Cursor, rerr error) {
	binders := make([]ValueBinder, len(op.stmt.Columns))
	for i, c := range op.stmt.Columns {
		b, err := op.binders.Binder(c)
		if err != nil {
			return nil, err
		}
		binders[i] = b
	}
	stmt, err := op.conn.PrepareContext(ctx, op.stmt.SQL)
	if err != nil {
		return nil, &signet.StatementExecutionError{SQL: op.stmt.SQL, Attempts: 1, Err: err}
	}
	defer func() {
		if rerr != nil {
			rerr = errors.Join(rerr, stmt.Close())
		}
	}()
	start := time.Now()
	rows, err := stmt.QueryContext(ctx, args.Values()...)
	if op.observer != nil {
		op.observer.Observe(ctx, StatementEvent{Query: op.stmt.SQL, Attempt: 1, Duration: time.Since(start), Err: err})
	}
	if err != nil {
		return nil, &signet.StatementExecutionError{SQL: op.stmt.SQL, Attempts: 1, Err: err}
	}
	labels, err := rows.Columns()
	if err != nil {
		return nil, errors.Join(&signet.StatementExecutionError{SQL: op.stmt.SQL, Attempts: 1, Err: err}, rows.Close())
	}
	return &Cursor{
		query:   op.stmt.SQL,
		stmt:    stmt,
		rows:    rows,
		labels:  labels,
		columns: op.stmt.Columns,
		binders: binders,
	}, nil
}

// Cursor iterates over the decoded rows of a read operation. It is
// single-pass and not safe for concurrent use. Exhausting the cursor or
// calling Close releases the rows and the prepared statement.
type Cursor struct {
	query   string
	stmt    *sql.Stmt
	rows    *sql.Rows
	labels  []string
	columns []*schema.Column
	binders []ValueBinder
	record  Record
	err     error
	closed  bool
}

// Next advances the cursor to the next record. It returns false when the
// rows are exhausted or an error occurred.
func (c *Cursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = &signet.StatementExecutionError{SQL: c.query, Attempts: 1, Err: err}
		}
		c.err = errors.Join(c.err, c.Close())
		return false
	}
	raw := make([]any, len(c.labels))
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		c.err = errors.Join(&signet.StatementExecutionError{SQL: c.query, Attempts: 1, Err: err}, c.Close())
		return false
	}
	row := NewRow(c.labels, raw)
	values := make([]any, len(c.columns))
	for i, col := range c.columns {
		v, err := c.binders[i].Read(row, col.Name)
		if err != nil {
			c.err = errors.Join(err, c.Close())
			return false
		}
		values[i] = v
	}
	c.record = Record{Columns: c.columns, Values: values}
	return true
}

// Record returns the current record.
func (c *Cursor) Record() Record { return c.record }

// Err returns the error that stopped the iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Close releases the rows and the prepared statement. It is safe to call
// Close more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Join(c.rows.Close(), c.stmt.Close())
}

// Seq returns the remaining records as an iterator. Breaking out of the
// loop closes the cursor. An error is yielded once, as the last element.
func (c *Cursor) Seq() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		defer c.Close()
		for c.Next() {
			if !yield(c.record, nil) {
				return
			}
		}
		if c.err != nil {
			yield(Record{}, c.err)
		}
	}
}

// Collect reads all remaining records and closes the cursor.
func (c *Cursor) Collect() ([]Record, error) {
	var records []Record
	for r, err := range c.Seq() {
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// WriteState is the state of a write operation.
type WriteState uint8

// Write operation states.
const (
	StateIdle WriteState = iota
	StateBatched
	StateExecuted
)

// String returns the state name.
func (s WriteState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBatched:
		return "batched"
	case StateExecuted:
		return "executed"
	}
	return fmt.Sprintf("WriteState(%d)", uint8(s))
}

// ErrExecuted is returned when a batch is added to or executed on an
// already executed write operation.
var ErrExecuted = errors.New("dialect/sql: write operation already executed")

// WriteOption configures a WriteOperation.
type WriteOption func(*WriteOperation)

// WithRetry sets the retry policy of the operation.
func WithRetry(p RetryPolicy) WriteOption {
	return func(op *WriteOperation) {
		op.retry = p
	}
}

// WithKeys captures generated keys with the given mode and reads them
// with the given reader.
func WithKeys(capture KeyCapture, reader GeneratedKeysReader) WriteOption {
	return func(op *WriteOperation) {
		op.capture = capture
		op.keys = reader
	}
}

// ExpectRows checks that every batch entry affects n rows. Entries that do
// not are reported together in a *signet.MultiCauseError.
func ExpectRows(n int64) WriteOption {
	return func(op *WriteOperation) {
		op.expect = &n
	}
}

// WithBulk sends the whole batch as one statement built by build for the
// number of batch entries, e.g. a multi-row insert. The arguments of the
// entries are concatenated in batch order.
func WithBulk(build func(rows int) (*Statement, error)) WriteOption {
	return func(op *WriteOperation) {
		op.bulk = build
	}
}

// WithObserver sets the observer notified of every execution attempt.
func WithObserver(o Observer) WriteOption {
	return func(op *WriteOperation) {
		op.observer = o
	}
}

// WithLogger sets the logger of the operation.
func WithLogger(l *slog.Logger) WriteOption {
	return func(op *WriteOperation) {
		op.logger = l
	}
}

// WriteResult is the outcome of an executed write operation.
type WriteResult struct {
	// Counts holds the affected rows of every batch entry. In bulk mode
	// it holds a single count for the whole batch.
	Counts []int64
	// Keys holds the generated keys in batch order, if captured.
	Keys []any
}

// Affected returns the total number of affected rows.
func (r *WriteResult) Affected() int64 {
	var n int64
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// WriteOperation binds value sets into a batch and executes it. It moves
// from idle to batched on the first AddBatch and to executed on Execute.
// A write operation is not safe for concurrent use.
type WriteOperation struct {
	conn     Preparer
	stmt     *Statement
	binders  BinderResolver
	retry    RetryPolicy
	capture  KeyCapture
	keys     GeneratedKeysReader
	expect   *int64
	bulk     func(int) (*Statement, error)
	logger   *slog.Logger
	observer Observer
	state    WriteState
	batch    []*Args
	reported []*Row
}

// NewWriteOperation returns a write operation for the statement.
func NewWriteOperation(conn Preparer, stmt *Statement, binders BinderResolver, opts ...WriteOption) *WriteOperation {
	op := &WriteOperation{
		conn:    conn,
		stmt:    stmt,
		binders: binders,
		keys:    ColumnKeys{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(op)
	}
	if op.retry.Logger == nil {
		op.retry.Logger = op.logger
	}
	return op
}

// State returns the state of the operation.
func (op *WriteOperation) State() WriteState { return op.state }

// BatchSize implements KeySource.
func (op *WriteOperation) BatchSize() int { return len(op.batch) }

// ReportedKeys implements KeySource.
func (op *WriteOperation) ReportedKeys() []*Row { return op.reported }

// AddBatch binds a value set and adds it to the batch. Values are keyed by
// the columns of the statement's SET/VALUES and WHERE clauses.
func (op *WriteOperation) AddBatch(values map[*schema.Column]any) error {
	return op.AddBatchWhere(values, values)
}

// AddBatchWhere is like AddBatch with separate WHERE values, for updates
// whose SET and WHERE clauses share a column.
func (op *WriteOperation) AddBatchWhere(values, where map[*schema.Column]any) error {
	if op.state == StateExecuted {
		return ErrExecuted
	}
	args := NewArgs(op.stmt.NumParams)
	if err := BindColumns(args, op.stmt.Params, values, op.binders); err != nil {
		return err
	}
	if err := BindColumns(args, op.stmt.Where, where, op.binders); err != nil {
		return err
	}
	return op.AddBatchArgs(args)
}

// AddBatchArgs adds already bound arguments to the batch, e.g. the keys
// of an IN list bound with BindKeys.
func (op *WriteOperation) AddBatchArgs(args *Args) error {
	if op.state == StateExecuted {
		return ErrExecuted
	}
	if args.Len() != op.stmt.NumParams {
		return fmt.Errorf("dialect/sql: statement expects %d arguments, got %d", op.stmt.NumParams, args.Len())
	}
	op.batch = append(op.batch, args)
	op.state = StateBatched
	return nil
}

// Execute executes the batch. An empty batch is a no-op returning an empty
// result. When row counts are checked, the result is returned together
// with the aggregated row count errors.
func (op *WriteOperation) Execute(ctx context.Context) (*WriteResult, error) {
	if op.state == StateExecuted {
		return nil, ErrExecuted
	}
	op.state = StateExecuted
	if len(op.batch) == 0 {
		return &WriteResult{}, nil
	}
	stmt, batch := op.stmt, op.batch
	if op.bulk != nil {
		bs, err := op.bulk(len(op.batch))
		if err != nil {
			return nil, err
		}
		args := NewArgs(0)
		for _, a := range op.batch {
			args.values = append(args.values, a.values...)
		}
		stmt, batch = bs, []*Args{args}
	}
	counts, err := op.exec(ctx, stmt.SQL, batch)
	if err != nil {
		return nil, err
	}
	res := &WriteResult{Counts: counts}
	if op.capture != KeysNone {
		if res.Keys, err = op.keys.ReadKeys(op); err != nil {
			return nil, err
		}
	}
	return res, op.checkCounts(stmt.SQL, counts)
}

func (op *WriteOperation) exec(ctx context.Context, query string, batch []*Args) (_ []int64, rerr error) {
	stmt, err := op.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, &signet.StatementExecutionError{SQL: query, Attempts: 1, Err: err}
	}
	defer func() { rerr = errors.Join(rerr, stmt.Close()) }()
	counts := make([]int64, 0, len(batch))
	for _, args := range batch {
		var (
			n       int64
			attempt int
		)
		err := op.retry.Do(ctx, query, func(ctx context.Context) error {
			var err error
			attempt++
			start := time.Now()
			if op.capture == KeysReturning {
				n, err = op.query(ctx, stmt, args)
			} else {
				n, err = op.execOne(ctx, stmt, args)
			}
			if op.observer != nil {
				op.observer.Observe(ctx, StatementEvent{Query: query, Write: true, Attempt: attempt, Duration: time.Since(start), Err: err})
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func (op *WriteOperation) execOne(ctx context.Context, stmt *sql.Stmt, args *Args) (int64, error) {
	res, err := stmt.ExecContext(ctx, args.Values()...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if op.capture == KeysLastInsertID {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		op.reported = append(op.reported, NewRow([]string{""}, []any{id}))
	}
	return n, nil
}

// query executes a statement returning rows, e.g. insert ... returning, and
// captures the returned rows. The number of rows is the affected count.
func (op *WriteOperation) query(ctx context.Context, stmt *sql.Stmt, args *Args) (_ int64, rerr error) {
	rows, err := stmt.QueryContext(ctx, args.Values()...)
	if err != nil {
		return 0, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	labels, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	var captured []*Row
	for rows.Next() {
		raw := make([]any, len(labels))
		dest := make([]any, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return 0, err
		}
		captured = append(captured, NewRow(labels, raw))
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	op.reported = append(op.reported, captured...)
	return int64(len(captured)), nil
}

func (op *WriteOperation) checkCounts(query string, counts []int64) error {
	if op.expect == nil {
		return nil
	}
	expected := *op.expect
	if op.bulk != nil {
		expected *= int64(len(op.batch))
	}
	var errs []error
	for i, n := range counts {
		if n != expected {
			errs = append(errs, &signet.RowCountError{Row: i + 1, Expected: expected, Actual: n})
		}
	}
	return signet.NewMultiCauseError(query, errs...)
}
