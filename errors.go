package trajstore

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by ingestion on a closed Store and by lookups
	// on a closed Archive.
	ErrClosed = errors.New("trajstore: closed")

	// ErrLocked is returned when another writer holds the output folder.
	ErrLocked = errors.New("trajstore: output folder is locked by another writer")

	// ErrExistingSegments is returned by New when the output folder already
	// contains segments of an earlier run and overwriting was not requested.
	ErrExistingSegments = errors.New("trajstore: output folder already contains segments")

	// ErrInvalidEnv is returned when an environment id is out of range.
	ErrInvalidEnv = errors.New("trajstore: environment id out of range")

	// ErrNoSegments is returned by OpenArchive for a folder without segments.
	ErrNoSegments = errors.New("trajstore: no segments found")
)

// ErrShapeMismatch reports an observation batch that does not match the
// configured geometry. Nothing is written when it is returned.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrShapeMismatch struct {
	// Input is "observations" or "dones".
	Input string
	// Index is the offending element, or -1 when the element count is wrong.
	Index    int
	Expected int
	Actual   int
	cause    error
}

func (e *ErrShapeMismatch) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("trajstore: shape mismatch: expected %d %s, got %d", e.Expected, e.Input, e.Actual)
	}
	return fmt.Sprintf("trajstore: shape mismatch: %s[%d] has %d bytes, expected %d", e.Input, e.Index, e.Actual, e.Expected)
}

func (e *ErrShapeMismatch) Unwrap() error { return e.cause }

// ErrInvalidConfig reports an invalid construction parameter.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("trajstore: invalid config: %s %s", e.Field, e.Reason)
}
