package sql

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet"
)

func TestMatchCause(t *testing.T) {
	match := MatchCause[*mysql.MySQLError]("Lock wait timeout exceeded")
	assert.True(t, match(lockWaitTimeout()))
	assert.True(t, match(fmt.Errorf("update: %w", lockWaitTimeout())))
	assert.True(t, match(errors.Join(errors.New("first"), lockWaitTimeout())))
	assert.False(t, match(errors.New("Lock wait timeout exceeded")), "the cause must have the expected type")
	assert.False(t, match(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}))
	assert.False(t, match(nil))

	anyMySQL := MatchCause[*mysql.MySQLError]("")
	assert.True(t, anyMySQL(&mysql.MySQLError{Number: 1062}))
}

func TestAnyOf(t *testing.T) {
	deadlock := MatchCause[*mysql.MySQLError]("Deadlock found")
	p := AnyOf(MatchCause[*mysql.MySQLError]("Lock wait timeout exceeded"), deadlock)
	assert.True(t, p(lockWaitTimeout()))
	assert.True(t, p(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}))
	assert.False(t, p(errors.New("boom")))
	assert.False(t, AnyOf()(lockWaitTimeout()))
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{
		MaxRetries: 3,
		Retryable:  MatchCause[*mysql.MySQLError]("Lock wait timeout exceeded"),
		Logger:     quietLogger,
	}

	t.Run("FirstAttempt", func(t *testing.T) {
		var calls int
		err := policy.Do(ctx, "q", func(context.Context) error { calls++; return nil })
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
	t.Run("Exhausted", func(t *testing.T) {
		var calls int
		err := policy.Do(ctx, "delete from t", func(context.Context) error {
			calls++
			return lockWaitTimeout()
		})
		assert.Equal(t, 4, calls)
		var exec *signet.StatementExecutionError
		require.ErrorAs(t, err, &exec)
		assert.Equal(t, 4, exec.Attempts)
		assert.Equal(t, "delete from t", exec.SQL)
	})
	t.Run("NoRetry", func(t *testing.T) {
		var calls int
		err := NoRetry.Do(ctx, "q", func(context.Context) error {
			calls++
			return lockWaitTimeout()
		})
		assert.Equal(t, 1, calls)
		assert.True(t, signet.IsStatementExecutionError(err))
	})
	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		p := policy
		p.Delay = time.Hour
		var calls int
		err := p.Do(ctx, "q", func(context.Context) error {
			calls++
			cancel()
			return lockWaitTimeout()
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, context.Canceled)
		var myErr *mysql.MySQLError
		assert.ErrorAs(t, err, &myErr, "the database error is kept")
	})
}
