package signet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/schema/field"
)

// Standard sentinel errors. Every typed error below reports true for
// errors.Is against its sentinel.
var (
	// ErrConfig is returned for setup-time mistakes: conflicting registrations,
	// invalid limits, or malformed table definitions.
	ErrConfig = errors.New("signet: configuration error")

	// ErrUnsupportedDatabase is returned when no dialect matches a connection.
	ErrUnsupportedDatabase = errors.New("signet: unsupported database")

	// ErrNoBinder is returned when a column has no value binder.
	ErrNoBinder = errors.New("signet: no binder")

	// ErrNoTypeMapping is returned when a column has no SQL type.
	ErrNoTypeMapping = errors.New("signet: no type mapping")

	// ErrEmptyCollection is returned when a collection parameter has no elements.
	ErrEmptyCollection = errors.New("signet: empty collection parameter")

	// ErrUnknownParameter is returned when a named parameter has no value.
	ErrUnknownParameter = errors.New("signet: unknown parameter")
)

// ConfigError represents a configuration error detected at setup time.
type ConfigError struct {
	msg string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	return "signet: configuration error: " + e.msg
}

// Is reports whether the target error matches ConfigError.
func (e *ConfigError) Is(err error) bool {
	return err == ErrConfig
}

// NewConfigError returns a new ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e) || errors.Is(err, ErrConfig)
}

// UnsupportedDatabaseError is returned when no registered dialect matches
// the signet observed on a connection.
type UnsupportedDatabaseError struct {
	Signet dialect.Signet
}

// Error returns the error string.
func (e *UnsupportedDatabaseError) Error() string {
	return fmt.Sprintf("signet: unsupported database %s", e.Signet)
}

// Is reports whether the target error matches UnsupportedDatabaseError.
func (e *UnsupportedDatabaseError) Is(err error) bool {
	return err == ErrUnsupportedDatabase
}

// IsUnsupportedDatabase returns true if the error is an UnsupportedDatabaseError.
func IsUnsupportedDatabase(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedDatabaseError
	return errors.As(err, &e)
}

// NoBinderError is returned when neither the column nor its logical type
// has a registered value binder.
type NoBinderError struct {
	Column  string // Table-qualified column name.
	Type    field.Type
	SQLType string // Optional: the column's SQL type, when known.
}

// Error returns the error string.
func (e *NoBinderError) Error() string {
	if e.SQLType != "" {
		return fmt.Sprintf("signet: no binder for column %s (type %s, sql type %s)", e.Column, e.Type, e.SQLType)
	}
	return fmt.Sprintf("signet: no binder for column %s (type %s)", e.Column, e.Type)
}

// Is reports whether the target error matches NoBinderError.
func (e *NoBinderError) Is(err error) bool {
	return err == ErrNoBinder
}

// IsNoBinder returns true if the error is a NoBinderError.
func IsNoBinder(err error) bool {
	if err == nil {
		return false
	}
	var e *NoBinderError
	return errors.As(err, &e)
}

// NoTypeMappingError is returned when the SQL type registry cannot name a
// column type.
type NoTypeMappingError struct {
	Column string // Table-qualified column name.
	Type   field.Type
	Size   int64
}

// Error returns the error string.
func (e *NoTypeMappingError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("signet: no sql type for column %s (type %s, size %d)", e.Column, e.Type, e.Size)
	}
	return fmt.Sprintf("signet: no sql type for column %s (type %s)", e.Column, e.Type)
}

// Is reports whether the target error matches NoTypeMappingError.
func (e *NoTypeMappingError) Is(err error) bool {
	return err == ErrNoTypeMapping
}

// IsNoTypeMapping returns true if the error is a NoTypeMappingError.
func IsNoTypeMapping(err error) bool {
	if err == nil {
		return false
	}
	var e *NoTypeMappingError
	return errors.As(err, &e)
}

// EmptyCollectionParameterError is returned when a parameter is bound to
// an empty collection, which would render as "in ()".
type EmptyCollectionParameterError struct {
	Name string
}

// Error returns the error string.
func (e *EmptyCollectionParameterError) Error() string {
	return fmt.Sprintf("signet: parameter %q is bound to an empty collection", e.Name)
}

// Is reports whether the target error matches EmptyCollectionParameterError.
func (e *EmptyCollectionParameterError) Is(err error) bool {
	return err == ErrEmptyCollection
}

// UnknownParameterError is returned when a statement references a
// parameter that has no bound value, or a value is bound to a name that
// the statement does not reference.
type UnknownParameterError struct {
	Name string
}

// Error returns the error string.
func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("signet: unknown parameter %q", e.Name)
}

// Is reports whether the target error matches UnknownParameterError.
func (e *UnknownParameterError) Is(err error) bool {
	return err == ErrUnknownParameter
}

// IsParameterError returns true if the error is an EmptyCollectionParameterError
// or an UnknownParameterError.
func IsParameterError(err error) bool {
	return errors.Is(err, ErrEmptyCollection) || errors.Is(err, ErrUnknownParameter)
}

// StatementExecutionError wraps a driver error with the SQL text that
// failed. Bound values are never part of the message.
type StatementExecutionError struct {
	SQL      string
	Attempts int // Number of attempts made, including retries.
	Err      error
}

// Error returns the error string.
func (e *StatementExecutionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("signet: executing %q failed after %d attempts: %v", e.SQL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("signet: executing %q: %v", e.SQL, e.Err)
}

// Unwrap returns the underlying error.
func (e *StatementExecutionError) Unwrap() error {
	return e.Err
}

// IsStatementExecutionError returns true if the error is a StatementExecutionError.
func IsStatementExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *StatementExecutionError
	return errors.As(err, &e)
}

// RowCountError reports a batch entry that affected an unexpected number
// of rows.
type RowCountError struct {
	Row      int // 1-based index of the entry in its batch.
	Expected int64
	Actual   int64
}

// Error returns the error string.
func (e *RowCountError) Error() string {
	return fmt.Sprintf("signet: batch row %d: expected %d affected rows, got %d", e.Row, e.Expected, e.Actual)
}

// MultiCauseError aggregates all the failures of one batch execution.
type MultiCauseError struct {
	SQL    string
	Errors []error
}

// Error returns the error string.
func (e *MultiCauseError) Error() string {
	if len(e.Errors) == 0 {
		return "signet: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "signet: %d failures executing %q:", len(e.Errors), e.SQL)
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the aggregated errors.
func (e *MultiCauseError) Unwrap() []error {
	return e.Errors
}

// NewMultiCauseError returns a new MultiCauseError if there are errors,
// otherwise returns nil.
func NewMultiCauseError(query string, errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiCauseError{SQL: query, Errors: filtered}
}

// RowCountErrors returns the RowCountError causes aggregated in err.
func RowCountErrors(err error) []*RowCountError {
	var m *MultiCauseError
	if !errors.As(err, &m) {
		var e *RowCountError
		if errors.As(err, &e) {
			return []*RowCountError{e}
		}
		return nil
	}
	var rows []*RowCountError
	for _, cause := range m.Errors {
		var e *RowCountError
		if errors.As(cause, &e) {
			rows = append(rows, e)
		}
	}
	return rows
}
