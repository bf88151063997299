package sql

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/sqlerr"
)

// RetryPolicy retries writes that failed with a transient error. The zero
// value never retries.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Delay is the pause between two attempts.
	Delay time.Duration
	// Retryable reports if a failure is transient. A nil predicate
	// disables retries.
	Retryable func(error) bool
	// Logger receives a warning for every retry. Defaults to slog.Default().
	Logger *slog.Logger
}

// NoRetry is a policy that never retries.
var NoRetry = RetryPolicy{}

// MatchCause returns a retry predicate matching errors whose tree contains
// an error of type T with the given substring in its message. An empty
// substring matches any error of type T.
func MatchCause[T error](substr string) func(error) bool {
	return func(err error) bool {
		return sqlerr.Walk(err, func(e error) bool {
			t, ok := e.(T)
			return ok && strings.Contains(t.Error(), substr)
		})
	}
}

// AnyOf returns a retry predicate matching errors matched by any of the
// given predicates.
func AnyOf(preds ...func(error) bool) func(error) bool {
	return func(err error) bool {
		for _, p := range preds {
			if p(err) {
				return true
			}
		}
		return false
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// retries are exhausted. Failures are returned as
// *signet.StatementExecutionError carrying the query text.
func (p RetryPolicy) Do(ctx context.Context, query string, fn func(context.Context) error) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > p.MaxRetries || p.Retryable == nil || !p.Retryable(err) {
			return &signet.StatementExecutionError{SQL: query, Attempts: attempt, Err: err}
		}
		logger.WarnContext(ctx, "retrying statement after transient failure",
			"query", query,
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", p.Delay,
			"error", err,
		)
		if cerr := sleep(ctx, p.Delay); cerr != nil {
			return &signet.StatementExecutionError{SQL: query, Attempts: attempt, Err: errors.Join(err, cerr)}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
