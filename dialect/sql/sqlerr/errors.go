// Package sqlerr classifies driver errors independently of the driver that
// produced them.
package sqlerr

import (
	"strings"
)

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pgx, and some MySQL drivers.
type sqlStateError interface {
	SQLState() string
}

// intCoder is an interface for errors that provide numeric result codes.
// Implemented by: modernc.org/sqlite.
type intCoder interface {
	Code() int
}

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgDeadlockDetected    = "40P01"
	pgSerializationFailed = "40001"
	pgLockNotAvailable    = "55P03"
)

// SQLite primary result codes. Extended codes carry them in the low byte.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// IsLockTimeout reports if the error resulted from a lock wait timeout,
// e.g. MySQL error 1205 or PostgreSQL lock_not_available.
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As[sqlStateError](err); ok && e.SQLState() == pgLockNotAvailable {
		return true
	}
	return containsAny(err.Error(),
		"Lock wait timeout exceeded", // MySQL, MariaDB
		"Error 1205",                 // MySQL (number fallback)
		"lock timeout",               // Postgres
	)
}

// IsDeadlock reports if the error resulted from a deadlock or a
// serialization failure detected by the database.
func IsDeadlock(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As[sqlStateError](err); ok {
		if s := e.SQLState(); s == pgDeadlockDetected || s == pgSerializationFailed {
			return true
		}
	}
	return containsAny(err.Error(),
		"Deadlock found",             // MySQL, MariaDB
		"Error 1213",                 // MySQL (number fallback)
		"deadlock detected",          // Postgres
		"could not serialize access", // Postgres
	)
}

// IsBusy reports if the error resulted from a locked SQLite database.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As[intCoder](err); ok {
		if c := e.Code() & 0xff; c == sqliteBusy || c == sqliteLocked {
			return true
		}
	}
	return containsAny(err.Error(),
		"database is locked",
		"SQLITE_BUSY",
		"database table is locked",
	)
}

// IsTransient reports if the error is a lock timeout, a deadlock, or a
// busy database.
func IsTransient(err error) bool {
	return IsLockTimeout(err) || IsDeadlock(err) || IsBusy(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As[sqlStateError](err); ok && e.SQLState() == pgUniqueViolation {
		return true
	}
	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
	)
}

// As returns the first error of type T in the error tree of err. Unlike
// errors.As, T may be an interface and no pointer target is needed.
func As[T any](err error) (T, bool) {
	var found T
	ok := Walk(err, func(e error) bool {
		if t, is := e.(T); is {
			found = t
			return true
		}
		return false
	})
	return found, ok
}

// Walk calls f for every error in the tree of err, in pre-order, following
// both Unwrap() error and Unwrap() []error. It stops and returns true as
// soon as f returns true.
func Walk(err error, f func(error) bool) bool {
	for err != nil {
		if f(err) {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				if Walk(e, f) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
