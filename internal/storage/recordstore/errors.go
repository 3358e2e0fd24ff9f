package recordstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no entry exists at the requested height.
	ErrNotFound = errors.New("record not found")

	// ErrDataCorrupt is returned when a stored envelope fails to decode.
	ErrDataCorrupt = errors.New("record data corrupt")

	// ErrBackendClosed is returned when an operation is attempted on a
	// closed backend.
	ErrBackendClosed = errors.New("backend is closed")

	// ErrBackendOpen is returned when opening an already open backend.
	ErrBackendOpen = errors.New("backend is already open")

	// ErrBackendFailure is returned when the underlying storage engine
	// reports a failure.
	ErrBackendFailure = errors.New("backend failure")

	// ErrUnknownBackend is returned when creating a backend of an
	// unregistered type.
	ErrUnknownBackend = errors.New("unknown backend type")

	// ErrEmptyStore is returned by Latest when the store holds no entries.
	ErrEmptyStore = errors.New("store is empty")

	// ErrInvalidRange is returned when a range query is malformed or too
	// wide.
	ErrInvalidRange = errors.New("invalid height range")

	// ErrHeightNotAboveTip is returned when a submitted entry does not
	// extend the chain past the stored tip.
	ErrHeightNotAboveTip = errors.New("entry height not above stored tip")
)

// statusError converts a backend status into an error, nil for OK.
func statusError(s Status) error {
	switch s {
	case OK:
		return nil
	case NotFound:
		return ErrNotFound
	case DataCorrupt:
		return ErrDataCorrupt
	case BackendError:
		return ErrBackendFailure
	default:
		return fmt.Errorf("unexpected backend status %s", s)
	}
}

// IsNotFound reports whether err indicates a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDataCorrupt reports whether err indicates a corrupt envelope.
func IsDataCorrupt(err error) bool {
	return errors.Is(err, ErrDataCorrupt)
}
