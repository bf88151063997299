package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// StatementEvent describes one execution attempt of a statement.
type StatementEvent struct {
	Query    string
	Write    bool // Exec or insert-returning, as opposed to a read query.
	Attempt  int  // 1-based attempt number; greater than 1 for retries.
	Duration time.Duration
	Err      error
}

// Observer is notified of every statement execution attempt of the read
// and write operations it is attached to.
type Observer interface {
	Observe(context.Context, StatementEvent)
}

// ObserverFunc is an adapter to allow the use of ordinary functions as Observer.
type ObserverFunc func(context.Context, StatementEvent)

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev StatementEvent) { f(ctx, ev) }

// Observers combines multiple observers into one.
func Observers(obs ...Observer) Observer {
	return ObserverFunc(func(ctx context.Context, ev StatementEvent) {
		for _, o := range obs {
			o.Observe(ctx, ev)
		}
	})
}

// QueryStats holds statement execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of read queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of write statements executed.
	TotalExecs atomic.Int64
	// Retries is the number of execution attempts that were retries.
	Retries atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed attempts.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		Retries:       s.Retries.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.Retries.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of statement statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	Retries       int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d retries=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.Retries, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, duration time.Duration)

// StatsObserver is an Observer collecting statement statistics.
type StatsObserver struct {
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsObserver.
type StatsOption func(*StatsObserver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Statements taking longer than this duration will be counted as slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsObserver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsObserver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the default logger.
// This is a convenience wrapper around WithSlowQueryHook.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, duration time.Duration) {
		slog.WarnContext(ctx, "slow query detected", "duration", duration, "query", query)
	})
}

// NewStatsObserver returns an observer collecting statistics.
//
// Example:
//
//	stats := sql.NewStatsObserver(
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(),
//	)
//	d = d.WithObserver(stats)
//
//	// Later, check statistics:
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsObserver(opts ...StatsOption) *StatsObserver {
	s := &StatsObserver{
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (s *StatsObserver) QueryStats() *QueryStats {
	return s.stats
}

// SlowThreshold returns the current slow statement threshold.
func (s *StatsObserver) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (s *StatsObserver) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

// Observe implements Observer.
func (s *StatsObserver) Observe(ctx context.Context, ev StatementEvent) {
	if ev.Write {
		s.stats.TotalExecs.Add(1)
	} else {
		s.stats.TotalQueries.Add(1)
	}
	if ev.Attempt > 1 {
		s.stats.Retries.Add(1)
	}
	s.stats.TotalDuration.Add(int64(ev.Duration))
	if ev.Err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if ev.Duration > threshold {
		s.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, ev.Query, ev.Duration)
		}
	}
}

// DebugObserver logs every statement execution attempt.
type DebugObserver struct {
	log func(context.Context, ...any)
}

// DebugOption configures the DebugObserver.
type DebugOption func(*DebugObserver)

// DebugWithLog sets a custom log function.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugObserver) {
		d.log = logFunc
	}
}

// NewDebugObserver returns an observer logging statements at debug level.
func NewDebugObserver(opts ...DebugOption) *DebugObserver {
	d := &DebugObserver{
		log: func(ctx context.Context, v ...any) {
			slog.DebugContext(ctx, fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe implements Observer.
func (d *DebugObserver) Observe(ctx context.Context, ev StatementEvent) {
	kind := "query"
	if ev.Write {
		kind = "exec"
	}
	if ev.Err != nil {
		d.log(ctx, fmt.Sprintf("%s: %s attempt=%d duration=%s error=%v", kind, ev.Query, ev.Attempt, ev.Duration, ev.Err))
		return
	}
	d.log(ctx, fmt.Sprintf("%s: %s attempt=%d duration=%s", kind, ev.Query, ev.Attempt, ev.Duration))
}

// Ensure interfaces are implemented.
var (
	_ Observer = (*StatsObserver)(nil)
	_ Observer = (*DebugObserver)(nil)
)
