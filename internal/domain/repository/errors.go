package repository

import "errors"

var (
	// ErrContentNotFound is returned when a video content record cannot be found.
	ErrContentNotFound = errors.New("video content not found")

	// ErrDuplicateContent is returned when attempting to create a content record that already exists.
	ErrDuplicateContent = errors.New("video content already exists")

	// ErrSettingsNotFound is returned when no storage settings row has been saved yet.
	ErrSettingsNotFound = errors.New("storage settings not found")
)
