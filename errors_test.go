package signet_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/schema/field"
)

func TestConfigError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := signet.NewConfigError("max in-list size must be at least 1, got %d", 0)
		assert.Equal(t, "signet: configuration error: max in-list size must be at least 1, got 0", err.Error())
	})

	t.Run("IsConfigError", func(t *testing.T) {
		err := signet.NewConfigError("bad")
		assert.True(t, signet.IsConfigError(err))
		assert.True(t, signet.IsConfigError(fmt.Errorf("load: %w", err)))
		assert.True(t, errors.Is(err, signet.ErrConfig))
		assert.True(t, signet.IsConfigError(signet.ErrConfig))
		assert.False(t, signet.IsConfigError(errors.New("other error")))
		assert.False(t, signet.IsConfigError(nil))
	})
}

func TestUnsupportedDatabaseError(t *testing.T) {
	err := error(&signet.UnsupportedDatabaseError{Signet: dialect.NewSignet("Oracle", 19, 0)})
	assert.Equal(t, "signet: unsupported database Oracle 19.0", err.Error())
	assert.True(t, errors.Is(err, signet.ErrUnsupportedDatabase))
	assert.True(t, signet.IsUnsupportedDatabase(fmt.Errorf("resolve: %w", err)))
	assert.False(t, signet.IsUnsupportedDatabase(signet.NewConfigError("bad")))
	assert.False(t, signet.IsUnsupportedDatabase(nil))
}

func TestNoBinderError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &signet.NoBinderError{Column: "users.tags", Type: field.TypeStrings}
		assert.Equal(t, "signet: no binder for column users.tags (type []string)", err.Error())
		err.SQLType = "json"
		assert.Equal(t, "signet: no binder for column users.tags (type []string, sql type json)", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := fmt.Errorf("bind: %w", &signet.NoBinderError{Column: "users.tags", Type: field.TypeStrings})
		assert.True(t, errors.Is(err, signet.ErrNoBinder))
		assert.True(t, signet.IsNoBinder(err))
		assert.False(t, signet.IsNoTypeMapping(err))
		assert.False(t, signet.IsNoBinder(nil))
	})
}

func TestNoTypeMappingError(t *testing.T) {
	err := &signet.NoTypeMappingError{Column: "users.bio", Type: field.TypeString, Size: 70000}
	assert.Equal(t, "signet: no sql type for column users.bio (type string, size 70000)", err.Error())
	assert.True(t, errors.Is(err, signet.ErrNoTypeMapping))
	assert.True(t, signet.IsNoTypeMapping(fmt.Errorf("create table: %w", err)))
	assert.False(t, signet.IsNoTypeMapping(nil))
}

func TestParameterErrors(t *testing.T) {
	empty := &signet.EmptyCollectionParameterError{Name: "ids"}
	assert.Equal(t, `signet: parameter "ids" is bound to an empty collection`, empty.Error())
	assert.True(t, errors.Is(empty, signet.ErrEmptyCollection))
	assert.True(t, signet.IsParameterError(empty))

	unknown := &signet.UnknownParameterError{Name: "age"}
	assert.Equal(t, `signet: unknown parameter "age"`, unknown.Error())
	assert.True(t, errors.Is(unknown, signet.ErrUnknownParameter))
	assert.True(t, signet.IsParameterError(fmt.Errorf("expand: %w", unknown)))

	assert.False(t, signet.IsParameterError(signet.NewConfigError("bad")))
}

func TestStatementExecutionError(t *testing.T) {
	cause := errors.New("Lock wait timeout exceeded")
	err := &signet.StatementExecutionError{SQL: "update users set name = ?", Attempts: 1, Err: cause}
	assert.Equal(t, `signet: executing "update users set name = ?": Lock wait timeout exceeded`, err.Error())
	err.Attempts = 3
	assert.Equal(t, `signet: executing "update users set name = ?" failed after 3 attempts: Lock wait timeout exceeded`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, signet.IsStatementExecutionError(fmt.Errorf("save: %w", err)))
	assert.False(t, signet.IsStatementExecutionError(cause))
}

func TestMultiCauseError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, signet.NewMultiCauseError("delete from users", nil, nil))
		assert.Nil(t, signet.RowCountErrors(nil))
	})

	t.Run("Single", func(t *testing.T) {
		err := signet.NewMultiCauseError("delete from users", &signet.RowCountError{Row: 2, Expected: 1, Actual: 0})
		assert.Equal(t, "signet: batch row 2: expected 1 affected rows, got 0", err.Error())
	})

	t.Run("Many", func(t *testing.T) {
		exec := &signet.StatementExecutionError{SQL: "delete from users", Attempts: 1, Err: errors.New("boom")}
		err := signet.NewMultiCauseError("delete from users",
			&signet.RowCountError{Row: 1, Expected: 1, Actual: 0},
			nil,
			exec,
			&signet.RowCountError{Row: 4, Expected: 1, Actual: 2},
		)
		var m *signet.MultiCauseError
		require.ErrorAs(t, err, &m)
		assert.Len(t, m.Errors, 3)
		assert.Equal(t, "signet: 3 failures executing \"delete from users\":\n"+
			"  [1] signet: batch row 1: expected 1 affected rows, got 0\n"+
			"  [2] signet: executing \"delete from users\": boom\n"+
			"  [3] signet: batch row 4: expected 1 affected rows, got 2", err.Error())
		assert.True(t, signet.IsStatementExecutionError(err), "causes are reachable with errors.As")

		rows := signet.RowCountErrors(fmt.Errorf("execute: %w", err))
		require.Len(t, rows, 2)
		assert.Equal(t, 1, rows[0].Row)
		assert.Equal(t, int64(2), rows[1].Actual)
	})

	t.Run("RowCountOnly", func(t *testing.T) {
		rows := signet.RowCountErrors(&signet.RowCountError{Row: 3, Expected: 2, Actual: 1})
		require.Len(t, rows, 1)
		assert.Equal(t, 3, rows[0].Row)
	})
}
