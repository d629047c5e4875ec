// FILE: lixenwraith/properties/errors.go
package properties

import "errors"

// Sentinel errors. Callers match them with errors.Is; the package wraps them with context.
var (
	// ErrTypeMismatch is returned when a value's type is incompatible with the declared type of a key,
	// or when a stored value cannot be returned as the requested type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrReadOnly is returned by every mutating operation on a read-only table.
	ErrReadOnly = errors.New("properties are read-only")

	// ErrConverterMissing is reported when no converter is registered for a type.
	ErrConverterMissing = errors.New("no converter registered")

	// ErrMalformedEntry is reported for a persisted line that cannot be decoded.
	ErrMalformedEntry = errors.New("malformed entry")

	// ErrStorageUnavailable wraps lock, I/O and fingerprint failures of the backing file.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMonitorStopped is returned when registering with a stopped file monitor.
	ErrMonitorStopped = errors.New("file monitor stopped")

	// ErrClosed is returned by persistence operations on a closed handle.
	ErrClosed = errors.New("persistent properties closed")
)
