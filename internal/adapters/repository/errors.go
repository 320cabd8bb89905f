package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrAlreadyExists  = errors.New("entity already exists")
	ErrWrongRecipient = errors.New("notification belongs to another recipient")
	ErrInvalidAthlete = errors.New("invalid athlete record")
	ErrInvalidRecord  = errors.New("invalid record")
)

// versionConflictError loses an optimistic-version race. It satisfies the
// workflow engine's VersionConflict interface.
type versionConflictError struct{}

func (versionConflictError) Error() string         { return "version conflict" }
func (versionConflictError) VersionConflict() bool { return true }

// ErrVersionConflict is returned by Update when the expected version no
// longer matches the stored entity.
var ErrVersionConflict error = versionConflictError{}
