package sql

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsObserver(t *testing.T) {
	var slow []string
	stats := NewStatsObserver(
		WithSlowThreshold(50*time.Millisecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	ctx := context.Background()
	stats.Observe(ctx, StatementEvent{Query: "select 1", Attempt: 1, Duration: 10 * time.Millisecond})
	stats.Observe(ctx, StatementEvent{Query: "update t", Write: true, Attempt: 1, Duration: 60 * time.Millisecond, Err: errors.New("locked")})
	stats.Observe(ctx, StatementEvent{Query: "update t", Write: true, Attempt: 2, Duration: 10 * time.Millisecond})

	snap := stats.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.Retries)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, int64(1), snap.SlowQueries)
	assert.Equal(t, 80*time.Millisecond, snap.TotalDuration)
	assert.Equal(t, 80*time.Millisecond/3, snap.AvgQueryDuration())
	assert.Equal(t, []string{"update t"}, slow)
	assert.Contains(t, snap.String(), "retries=1")

	stats.SetSlowThreshold(time.Millisecond)
	assert.Equal(t, time.Millisecond, stats.SlowThreshold())
	stats.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, stats.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
}

func TestDebugObserver(t *testing.T) {
	var lines []string
	obs := Observers(
		NewDebugObserver(DebugWithLog(func(_ context.Context, v ...any) {
			lines = append(lines, fmt.Sprint(v...))
		})),
		ObserverFunc(func(context.Context, StatementEvent) { lines = append(lines, "next") }),
	)
	obs.Observe(context.Background(), StatementEvent{Query: "select 1", Attempt: 1})
	obs.Observe(context.Background(), StatementEvent{Query: "delete from t", Write: true, Attempt: 2, Err: errors.New("busy")})
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "query: select 1 attempt=1")
	assert.Equal(t, "next", lines[1])
	assert.Contains(t, lines[2], "exec: delete from t attempt=2")
	assert.Contains(t, lines[2], "error=busy")
}
