package sqlite_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/dialect/rdbms/sqlite"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/dialect/sql/sqlerr"
	"github.com/syssam/signet/schema/field"
)

type accounts struct {
	table *schema.Table

	id, name, active, score, balance, joined, tag, meta *schema.Column
}

func newAccounts(t *testing.T) *accounts {
	t.Helper()
	a := &accounts{table: schema.NewTable("accounts")}
	a.id = a.table.MustAddColumn(&schema.Column{Name: "id", Type: field.TypeInt64, Increment: true})
	a.name = a.table.MustAddColumn(&schema.Column{Name: "name", Type: field.TypeString, Size: 64})
	a.active = a.table.MustAddColumn(&schema.Column{Name: "active", Type: field.TypeBool})
	a.score = a.table.MustAddColumn(&schema.Column{Name: "score", Type: field.TypeFloat64})
	a.balance = a.table.MustAddColumn(&schema.Column{Name: "balance", Type: field.TypeDecimal, Nullable: true})
	a.joined = a.table.MustAddColumn(&schema.Column{Name: "joined", Type: field.TypeTime})
	a.tag = a.table.MustAddColumn(&schema.Column{Name: "tag", Type: field.TypeUUID})
	a.meta = a.table.MustAddColumn(&schema.Column{Name: "meta", Type: field.TypeSerialized, Nullable: true})
	require.NoError(t, a.table.SetPrimaryKey(a.id))
	_, err := a.table.AddIndex("accounts_name", true, a.name)
	require.NoError(t, err)
	return a
}

func (a *accounts) columns() []*schema.Column {
	return []*schema.Column{a.name, a.active, a.score, a.balance, a.joined, a.tag, a.meta}
}

func open(t *testing.T, pragmas string) *sql.Driver {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "signet.db") + "?_pragma=foreign_keys(1)" + pragmas
	drv, err := sql.Open(dialect.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	return drv
}

func migrate(t *testing.T, drv *sql.Driver, d *rdbms.Dialect, tables ...*schema.Table) {
	t.Helper()
	require.NoError(t, d.CreateTables(context.Background(), drv, tables))
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	drv := open(t, "")
	r := rdbms.DefaultResolver(rdbms.WithResolverLogger(quiet()))
	d, err := r.Resolve(ctx, drv)
	require.NoError(t, err)
	require.Equal(t, sqlite.V335, d.Signet())
	require.Equal(t, sql.KeysReturning, d.KeyCapture())

	a := newAccounts(t)
	migrate(t, drv, d, a.table)

	joined := time.Date(2024, 2, 29, 12, 30, 45, 123456000, time.UTC)
	tags := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	op, err := d.InsertOperation(drv, a.table, a.columns(), true)
	require.NoError(t, err)
	for i, name := range []string{"ariel", "bob", "carol"} {
		require.NoError(t, op.AddBatch(map[*schema.Column]any{
			a.name:    name,
			a.active:  i%2 == 0,
			a.score:   float64(i) + 0.5,
			a.balance: "12.5",
			a.joined:  joined,
			a.tag:     tags[i],
			a.meta:    map[string]any{"rank": name},
		}))
	}
	res, err := op.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, res.Keys)
	assert.Equal(t, int64(3), res.Affected())

	small, err := d.Settings().WithMaxInListSize(2)
	require.NoError(t, err)
	chunked, err := d.WithSettings(small)
	require.NoError(t, err)
	cols := append([]*schema.Column{a.id}, a.columns()...)
	records, err := chunked.SelectByKeys(ctx, drv, a.table, cols, a.id, res.Keys)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, []any{
			int64(i + 1),
			[]string{"ariel", "bob", "carol"}[i],
			i%2 == 0,
			float64(i) + 0.5,
			"12.5",
		}, rec.Values[:5])
		got, _ := rec.Get(a.joined)
		assert.True(t, joined.Equal(got.(time.Time)), "joined: %v", got)
		got, _ = rec.Get(a.tag)
		assert.Equal(t, tags[i], got)
		got, _ = rec.Get(a.meta)
		assert.Equal(t, map[string]any{"rank": []string{"ariel", "bob", "carol"}[i]}, got)
	}

	update, err := d.DML().Update(a.table, []*schema.Column{a.balance}, []*schema.Column{a.id})
	require.NoError(t, err)
	uop := d.NewWriteOperation(drv, update, sql.ExpectRows(1))
	require.NoError(t, uop.AddBatch(map[*schema.Column]any{a.balance: nil, a.id: int64(2)}))
	require.NoError(t, uop.AddBatch(map[*schema.Column]any{a.balance: "0", a.id: int64(42)}))
	ures, err := uop.Execute(ctx)
	assert.Equal(t, []int64{1, 0}, ures.Counts)
	rc := signet.RowCountErrors(err)
	require.Len(t, rc, 1)
	assert.Equal(t, 2, rc[0].Row)

	exp, err := d.ExpandNamed(`select name from accounts where id in (:ids) and balance is null or name = :name or name = 'x\' order by id`,
		map[string]any{"ids": []int64{1, 2}, "name": "carol"})
	require.NoError(t, err)
	assert.Equal(t, `select name from accounts where id in (?, ?) and balance is null or name = ? or name = 'x\' order by id`, exp.SQL)
	rows, err := drv.DB().QueryContext(ctx, exp.SQL, exp.Args...)
	require.NoError(t, err)
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"bob", "carol"}, names)

	n, err := chunked.DeleteByKeys(ctx, drv, a.table, a.id, []any{int64(1), int64(2), int64(3), int64(99)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestLegacyKeys(t *testing.T) {
	ctx := context.Background()
	drv := open(t, "")
	d, err := rdbms.New(sqlite.Config(sqlite.V30))
	require.NoError(t, err)
	d = d.WithLogger(quiet())
	require.Equal(t, sql.KeysLastInsertID, d.KeyCapture())

	a := newAccounts(t)
	migrate(t, drv, d, a.table)
	row := func(name string) map[*schema.Column]any {
		return map[*schema.Column]any{
			a.name: name, a.active: true, a.score: 1.0, a.balance: nil,
			a.joined: time.Now().UTC(), a.tag: uuid.New(), a.meta: nil,
		}
	}

	op, err := d.InsertOperation(drv, a.table, a.columns(), true)
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, op.AddBatch(row(name)))
	}
	res, err := op.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, res.Keys, "keys are reconstructed below the last rowid")

	op, err = d.InsertOperation(drv, a.table, a.columns(), false)
	require.NoError(t, err)
	require.NoError(t, op.AddBatch(row("d")))
	require.NoError(t, op.AddBatch(row("e")))
	res, err = op.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(4), int64(5)}, res.Keys)

	op, err = d.InsertOperation(drv, a.table, a.columns(), false)
	require.NoError(t, err)
	require.NoError(t, op.AddBatch(row("a")))
	_, err = op.Execute(ctx)
	require.Error(t, err)
	assert.True(t, sqlerr.IsUniqueConstraintError(err))
	assert.False(t, sqlite.IsBusy(err))
	assert.True(t, signet.IsStatementExecutionError(err))
}

func TestBusyRetry(t *testing.T) {
	ctx := context.Background()
	drv := open(t, "&_pragma=busy_timeout(0)")
	d, err := rdbms.DefaultResolver(rdbms.WithResolverLogger(quiet())).Resolve(ctx, drv)
	require.NoError(t, err)
	a := newAccounts(t)
	migrate(t, drv, d, a.table)

	tx, err := drv.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, "insert into accounts (name, active, score, joined, tag) values ('lock', 1, 0, '2024-01-01 00:00:00', 'x')")
	require.NoError(t, err)

	stats := sql.NewStatsObserver()
	op, err := d.WithObserver(stats).InsertOperation(drv, a.table, a.columns(), false)
	require.NoError(t, err)
	require.NoError(t, op.AddBatch(map[*schema.Column]any{
		a.name: "blocked", a.active: false, a.score: 0.0, a.balance: nil,
		a.joined: time.Now().UTC(), a.tag: uuid.New(), a.meta: nil,
	}))
	_, err = op.Execute(ctx)
	require.Error(t, err)
	assert.True(t, sqlite.IsBusy(err))
	var se *signet.StatementExecutionError
	require.True(t, errors.As(err, &se))
	retry := d.Settings().Retry
	assert.Equal(t, retry.MaxRetries+1, se.Attempts)
	assert.Equal(t, int64(retry.MaxRetries), stats.QueryStats().Stats().Retries)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, sqlite.IsBusy(nil))
	assert.False(t, sqlite.IsBusy(errors.New("database is locked")), "only driver errors are retried")
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	drv := open(t, "")
	d, err := rdbms.DefaultResolver(rdbms.WithResolverLogger(quiet())).Resolve(ctx, drv)
	require.NoError(t, err)
	a := newAccounts(t)

	dtx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, d.CreateTables(ctx, dtx, []*schema.Table{a.table}))
	require.NoError(t, dtx.Commit())

	insert := func(tx *sql.Tx, name string) {
		t.Helper()
		op, err := d.InsertOperation(tx, a.table, a.columns(), false)
		require.NoError(t, err)
		require.NoError(t, op.AddBatch(map[*schema.Column]any{
			a.name: name, a.active: true, a.score: 1.0, a.balance: nil,
			a.joined: time.Now().UTC(), a.tag: uuid.New(), a.meta: nil,
		}))
		res, err := op.Execute(ctx)
		require.NoError(t, err)
		require.Len(t, res.Keys, 1)
	}
	count := func() int {
		t.Helper()
		var n int
		require.NoError(t, drv.DB().QueryRowContext(ctx, "select count(*) from accounts").Scan(&n))
		return n
	}

	tx, err := drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	insert(tx, "rolled-back")
	m, err := tx.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, m.Vendor)
	require.NoError(t, tx.Rollback())
	assert.Zero(t, count())

	tx, err = drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	insert(tx, "committed")
	insert(tx, "committed too")
	require.NoError(t, tx.Commit())
	assert.Equal(t, 2, count())

	require.NoError(t, d.DropTables(ctx, drv, []*schema.Table{a.table}))
	err = d.DropTables(ctx, drv, []*schema.Table{a.table})
	var se *signet.StatementExecutionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "drop index accounts_name", se.SQL)
}

func TestUpdateFrom(t *testing.T) {
	ctx := context.Background()
	drv := open(t, "")
	d, err := rdbms.DefaultResolver(rdbms.WithResolverLogger(quiet())).Resolve(ctx, drv)
	require.NoError(t, err)
	a := newAccounts(t)
	ledger := schema.NewTable("ledger")
	lid := ledger.MustAddColumn(&schema.Column{Name: "id", Type: field.TypeInt64, Increment: true})
	owner := ledger.MustAddColumn(&schema.Column{Name: "account_id", Type: field.TypeInt64})
	require.NoError(t, ledger.SetPrimaryKey(lid))
	migrate(t, drv, d, a.table, ledger)

	op, err := d.InsertOperation(drv, a.table, a.columns(), false)
	require.NoError(t, err)
	require.NoError(t, op.AddBatch(map[*schema.Column]any{
		a.name: "ariel", a.active: true, a.score: 1.0, a.balance: nil,
		a.joined: time.Now().UTC(), a.tag: uuid.New(), a.meta: nil,
	}))
	_, err = op.Execute(ctx)
	require.NoError(t, err)
	lop, err := d.InsertOperation(drv, ledger, []*schema.Column{owner}, false)
	require.NoError(t, err)
	require.NoError(t, lop.AddBatch(map[*schema.Column]any{owner: int64(1)}))
	_, err = lop.Execute(ctx)
	require.NoError(t, err)

	stmt, err := d.DML().Update(a.table, []*schema.Column{a.score}, []*schema.Column{a.id, owner})
	require.NoError(t, err)
	assert.Equal(t, "update accounts set score = ? from ledger where accounts.id = ? and ledger.account_id = ?", stmt.SQL)
	uop := d.NewWriteOperation(drv, stmt)
	require.NoError(t, uop.AddBatch(map[*schema.Column]any{a.score: 9.5, a.id: int64(1), owner: int64(1)}))
	require.NoError(t, uop.AddBatch(map[*schema.Column]any{a.score: 0.0, a.id: int64(1), owner: int64(7)}))
	res, err := uop.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0}, res.Counts)

	legacy, err := rdbms.DefaultResolver(rdbms.WithResolverLogger(quiet())).ResolveSignet(sqlite.V30)
	require.NoError(t, err)
	_, err = legacy.DML().Update(a.table, []*schema.Column{a.score}, []*schema.Column{a.id, owner})
	assert.True(t, signet.IsConfigError(err))
}
