package model

import (
	"errors"
	"time"
)

var (
	ErrInvalidActiveProvider = errors.New("active provider must be a storage backend")
	ErrInvalidExpiry         = errors.New("signed URL expiry must be positive")
	ErrInvalidMaxFileSize    = errors.New("max file size must be positive")
)

// StorageSettings is the singleton configuration record that selects the
// active storage backend for new uploads and carries per-provider endpoints
// and credentials. It is read on every storage operation through a TTL cache;
// writers must invalidate that cache explicitly after a successful save.
type StorageSettings struct {
	// ActiveProvider selects the backend for new uploads only. Existing
	// content keeps resolving through whichever provider holds its bytes.
	ActiveProvider Provider

	SignedURLExpirySeconds int
	MaxFileSizeMB          int
	// AutoCompress is advisory; backends that cannot compress ignore it.
	AutoCompress bool

	// Gateway (worker-mediated chunked store) endpoints.
	GatewayEndpoint      string
	GatewayPublicBaseURL string

	// CDN storage zone credentials and URLs.
	CDNStorageZoneURL string
	CDNAccessKey      string
	CDNPullZoneURL    string
	CDNSecurityKey    string

	UpdatedAt time.Time
}

// DefaultStorageSettings returns settings suitable for a fresh installation.
func DefaultStorageSettings() *StorageSettings {
	return &StorageSettings{
		ActiveProvider:         ProviderObjectStore,
		SignedURLExpirySeconds: 3600,
		MaxFileSizeMB:          2048,
		UpdatedAt:              time.Now(),
	}
}

// Validate checks invariants that must hold before settings are persisted.
func (s *StorageSettings) Validate() error {
	if !s.ActiveProvider.IsStored() {
		return ErrInvalidActiveProvider
	}
	if s.SignedURLExpirySeconds <= 0 {
		return ErrInvalidExpiry
	}
	if s.MaxFileSizeMB <= 0 {
		return ErrInvalidMaxFileSize
	}
	return nil
}

// SignedURLExpiry returns the signed URL lifetime as a duration.
func (s *StorageSettings) SignedURLExpiry() time.Duration {
	return time.Duration(s.SignedURLExpirySeconds) * time.Second
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (s *StorageSettings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}
