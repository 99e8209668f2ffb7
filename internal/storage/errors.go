package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when a provider is selected but a required
	// endpoint or credential is missing from settings.
	ErrNotConfigured = errors.New("storage provider is not configured")

	// ErrAuthentication is returned when a backend rejects our credentials
	// (HTTP 401). Distinguished from generic failure so operators get an
	// actionable message instead of a network error.
	ErrAuthentication = errors.New("storage provider rejected credentials")

	// ErrUnsupportedProvider is returned when dispatching to a provider that
	// has no registered implementation.
	ErrUnsupportedProvider = errors.New("unsupported storage provider")
)

// UploadError carries the backend's response for a failed upload.
type UploadError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s upload failed (status %d): %s", e.Provider, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s upload failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s upload failed (status %d)", e.Provider, e.StatusCode)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// DeleteError carries the backend's response for a failed deletion. The
// service layer treats these as best-effort and only logs them.
type DeleteError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeleteError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s delete failed (status %d): %s", e.Provider, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s delete failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s delete failed (status %d)", e.Provider, e.StatusCode)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
