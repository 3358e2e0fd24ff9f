package historydb

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned when no row exists for the requested
	// height.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDatabaseClosed is returned when an operation is attempted on a
	// closed database.
	ErrDatabaseClosed = errors.New("database connection is closed")

	// ErrInvalidDriver is returned for unsupported driver names.
	ErrInvalidDriver = errors.New("invalid database driver")

	// ErrMissingDSN is returned when no data source name is configured.
	ErrMissingDSN = errors.New("database DSN is required")

	// ErrInvalidLimit is returned when a query limit is not positive.
	ErrInvalidLimit = errors.New("invalid query limit")

	// ErrInvalidRange is returned when a height range is inverted.
	ErrInvalidRange = errors.New("invalid height range")
)

// DatabaseError carries the failing operation alongside the cause.
type DatabaseError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// newQueryError wraps a failed query.
func newQueryError(op, message string, cause error) error {
	return &DatabaseError{Operation: op, Message: message, Cause: cause}
}

// newDataError wraps a data-level failure such as a missing row, keeping
// the sentinel reachable through errors.Is.
func newDataError(op, message string, cause error) error {
	return &DatabaseError{Operation: op, Message: message, Cause: cause}
}

// IsNotFound reports whether err indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
