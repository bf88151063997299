package mysql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

func TestRetryable(t *testing.T) {
	retryable := Settings(V80).Retry.Retryable
	lock := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"}
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'users.name'"}

	assert.True(t, IsLockWaitTimeout(lock))
	assert.True(t, IsDeadlock(deadlock))
	assert.True(t, retryable(fmt.Errorf("exec: %w", lock)))
	assert.True(t, retryable(&signet.StatementExecutionError{SQL: "update users", Attempts: 1, Err: deadlock}))
	assert.False(t, retryable(dup))
	assert.False(t, retryable(errors.New("Lock wait timeout exceeded")), "causes must come from the driver")
	assert.False(t, retryable(nil))
}

func TestTypes(t *testing.T) {
	users := schema.NewTable("users")
	tests := []struct {
		col  *schema.Column
		want string
	}{
		{&schema.Column{Name: "name", Type: field.TypeString}, "varchar(255)"},
		{&schema.Column{Name: "nick", Type: field.TypeString, Size: 32}, "varchar(32)"},
		{&schema.Column{Name: "bio", Type: field.TypeString, Size: 1000}, "text"},
		{&schema.Column{Name: "body", Type: field.TypeString, Size: 1 << 20}, "mediumtext"},
		{&schema.Column{Name: "book", Type: field.TypeString, Size: 1 << 30}, "longtext"},
		{&schema.Column{Name: "hash", Type: field.TypeBytes, Size: 32}, "varbinary(32)"},
		{&schema.Column{Name: "photo", Type: field.TypeBytes}, "blob"},
		{&schema.Column{Name: "video", Type: field.TypeBytes, Size: 1 << 30}, "longblob"},
		{&schema.Column{Name: "price", Type: field.TypeDecimal}, "decimal(65,30)"},
	}
	types := Types(V80)
	for _, tt := range tests {
		c := users.MustAddColumn(tt.col)
		got, err := types.TypeName(c)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, c.Name)
	}

	at := users.MustAddColumn(&schema.Column{Name: "at", Type: field.TypeTime})
	got, err := Types(V57).TypeName(at)
	require.NoError(t, err)
	assert.Equal(t, "timestamp(6)", got)
	got, err = Types(V80).TypeName(at)
	require.NoError(t, err)
	assert.Equal(t, "datetime(6)", got)

	tags := users.MustAddColumn(&schema.Column{Name: "tags", Type: field.TypeStrings})
	_, err = types.TypeName(tags)
	assert.True(t, signet.IsNoTypeMapping(err))
}

func TestSettings(t *testing.T) {
	s57, s80 := Settings(V57), Settings(V80)
	require.NoError(t, s57.Validate())
	require.NoError(t, s80.Validate())
	assert.NotContains(t, s57.Keywords, "rank")
	assert.Contains(t, s80.Keywords, "rank")
	assert.Len(t, Keywords, len(s57.Keywords), "settings do not alias the keyword list")
	assert.Equal(t, byte('`'), s80.QuoteChar)
	assert.Equal(t, "?", s80.Placeholder(3))
}
