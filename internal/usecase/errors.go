package usecase

import "errors"

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured size
	// limit. No backend call is made in this case.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")

	// ErrMissingStoragePath is returned when a stored-object content record
	// has no storage path to resolve or delete.
	ErrMissingStoragePath = errors.New("content record has no storage path")

	// ErrInvalidOperation is returned for operations that do not apply to the
	// content's shape, e.g. migrating an external link.
	ErrInvalidOperation = errors.New("operation is not valid for this content")
)
