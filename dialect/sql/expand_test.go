package sql

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet"
)

func TestExpandNamed(t *testing.T) {
	t.Run("CollectionShiftsPositions", func(t *testing.T) {
		e, err := ExpandNamed(
			"select * from users where id in (:ids) and name = :name",
			map[string]any{"ids": []int{1, 2, 3}, "name": "a8m"},
			QuestionMark,
		)
		require.NoError(t, err)
		assert.Equal(t, "select * from users where id in (?, ?, ?) and name = ?", e.SQL)
		assert.Equal(t, []ExpandedParam{
			{Name: "ids", Start: 1, Count: 3},
			{Name: "name", Start: 4, Count: 1},
		}, e.Params)
		assert.Equal(t, []any{1, 2, 3, "a8m"}, e.Args)
	})
	t.Run("Dollar", func(t *testing.T) {
		e, err := ExpandNamed(
			"select * from t where a = :a and b in (:b) and c = :a",
			map[string]any{"a": 1, "b": [2]string{"x", "y"}},
			Dollar,
		)
		require.NoError(t, err)
		assert.Equal(t, "select * from t where a = $1 and b in ($2, $3) and c = $4", e.SQL)
		assert.Equal(t, []any{1, "x", "y", 1}, e.Args)
	})
	t.Run("ScalarSlices", func(t *testing.T) {
		e, err := ExpandNamed(
			"insert into t (data, tags) values (:data, :tags)",
			map[string]any{"data": []byte("raw"), "tags": pq.StringArray{"a", "b"}},
			QuestionMark,
		)
		require.NoError(t, err)
		assert.Equal(t, "insert into t (data, tags) values (?, ?)", e.SQL)
		assert.Len(t, e.Args, 2)
	})
	t.Run("SkipsQuotedAndComments", func(t *testing.T) {
		q := "select ':x', \"a:b\", `c:d`, e::text /* :y */ from t -- :z\nwhere f = :f"
		e, err := ExpandNamed(q, map[string]any{"f": 1}, QuestionMark)
		require.NoError(t, err)
		assert.Equal(t, "select ':x', \"a:b\", `c:d`, e::text /* :y */ from t -- :z\nwhere f = ?", e.SQL)
		assert.Equal(t, []ExpandedParam{{Name: "f", Start: 1, Count: 1}}, e.Params)
	})
	t.Run("EmptyCollection", func(t *testing.T) {
		e, err := ExpandNamed("select * from t where id in (:ids)", map[string]any{"ids": []int{}}, QuestionMark)
		require.Error(t, err)
		assert.Nil(t, e)
		assert.ErrorIs(t, err, signet.ErrEmptyCollection)
		assert.Contains(t, err.Error(), "ids")
	})
	t.Run("Unknown", func(t *testing.T) {
		_, err := ExpandNamed("select * from t where id = :id", nil, QuestionMark)
		assert.ErrorIs(t, err, signet.ErrUnknownParameter)
		assert.True(t, signet.IsParameterError(err))
	})
	t.Run("NilValue", func(t *testing.T) {
		e, err := ExpandNamed("update t set a = :a", map[string]any{"a": nil}, QuestionMark)
		require.NoError(t, err)
		assert.Equal(t, []any{nil}, e.Args)
	})
	t.Run("UnreferencedValue", func(t *testing.T) {
		_, err := ExpandNamed("select * from t where id = :id", map[string]any{"id": 1, "name": "a8m", "age": 30}, QuestionMark)
		var pe *signet.UnknownParameterError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "age", pe.Name)
	})
	t.Run("TrailingBackslash", func(t *testing.T) {
		e, err := ExpandNamed(
			`select * from t where path = 'C:\' and id in (:ids)`,
			map[string]any{"ids": []int{1, 2, 3}},
			Dollar,
		)
		require.NoError(t, err)
		assert.Equal(t, `select * from t where path = 'C:\' and id in ($1, $2, $3)`, e.SQL)
		assert.Equal(t, []ExpandedParam{{Name: "ids", Start: 1, Count: 3}}, e.Params)
		assert.Equal(t, []any{1, 2, 3}, e.Args)
	})
	t.Run("BackslashEscapes", func(t *testing.T) {
		e, err := ExpandNamed(
			`select * from t where a = 'it\'s :x' and b = "\":y" and c = :c`,
			map[string]any{"c": 1},
			QuestionMark,
			WithBackslashEscapes(),
		)
		require.NoError(t, err)
		assert.Equal(t, `select * from t where a = 'it\'s :x' and b = "\":y" and c = ?`, e.SQL)
		assert.Equal(t, []any{1}, e.Args)
	})
	t.Run("Unterminated", func(t *testing.T) {
		for _, q := range []string{
			"select * from t where a = 'open and id = :id",
			"select * from t /* :id",
		} {
			e, err := ExpandNamed(q, map[string]any{"id": 1}, QuestionMark)
			assert.Nil(t, e, q)
			assert.True(t, signet.IsConfigError(err), q)
		}
		// A backslash escaping the closing quote leaves the text open.
		_, err := ExpandNamed(`select * from t where path = 'C:\' and id in (:ids)`,
			map[string]any{"ids": []int{1}}, QuestionMark, WithBackslashEscapes())
		assert.True(t, signet.IsConfigError(err))
	})
}

func TestExpandPositional(t *testing.T) {
	e, err := ExpandPositional("select * from t where a in (?) and b = ? and c = '?'", []any{[]int64{7, 8}, "x"}, Dollar)
	require.NoError(t, err)
	assert.Equal(t, "select * from t where a in ($1, $2) and b = $3 and c = '?'", e.SQL)
	assert.Equal(t, []ExpandedParam{{Name: "?1", Start: 1, Count: 2}, {Name: "?2", Start: 3, Count: 1}}, e.Params)

	_, err = ExpandPositional("select ?", nil, QuestionMark)
	assert.ErrorIs(t, err, signet.ErrUnknownParameter)
	_, err = ExpandPositional("select ?", []any{1, 2}, QuestionMark)
	assert.ErrorIs(t, err, signet.ErrUnknownParameter)
	_, err = ExpandPositional("select * from t where id in (?)", []any{[]string(nil)}, QuestionMark)
	assert.ErrorIs(t, err, signet.ErrEmptyCollection)
}
