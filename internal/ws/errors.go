package ws

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid caller input (empty name, duplicate path).
// It is always surfaced synchronously to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation referencing a record that does not exist.
type NotFoundError struct {
	Kind string // "workspace" or "file"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// SyncFailure reports a failed backup or restore. It is non-fatal: local
// state stays authoritative and the originating operation is unaffected.
type SyncFailure struct {
	Op  string // "upload" or "restore"
	Err error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("sync %s failed: %v", e.Op, e.Err)
}

func (e *SyncFailure) Unwrap() error { return e.Err }

// ErrNoSnapshot is returned by a RemoteStore when no snapshot has ever been
// uploaded for the requested user.
var ErrNoSnapshot = errors.New("no snapshot stored for user")

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
