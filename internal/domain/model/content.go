package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Provider identifies which storage backend holds a video's bytes.
type Provider string

const (
	// ProviderObjectStore is the S3-compatible direct object store.
	ProviderObjectStore Provider = "object_store"
	// ProviderGateway is the worker-mediated chunked upload gateway.
	ProviderGateway Provider = "gateway"
	// ProviderCDNZone is the CDN storage zone backend.
	ProviderCDNZone Provider = "cdn_zone"
	// ProviderExternal is a sentinel: the video is a raw external link and
	// no storage backend holds any bytes for it.
	ProviderExternal Provider = "external"
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderObjectStore, ProviderGateway, ProviderCDNZone, ProviderExternal:
		return true
	default:
		return false
	}
}

// IsStored reports whether the provider actually holds object bytes.
// External content short-circuits all backend operations.
func (p Provider) IsStored() bool {
	return p.IsValid() && p != ProviderExternal
}

func (p Provider) String() string {
	return string(p)
}

// MigrationState tracks provider-to-provider migration of a video's bytes.
// The explicit state makes orphaned old-provider copies discoverable instead
// of silently possible.
type MigrationState string

const (
	MigrationNone         MigrationState = ""
	MigrationPending      MigrationState = "PENDING"
	MigrationDone         MigrationState = "MIGRATED"
	MigrationFailed       MigrationState = "FAILED"
	MigrationFailedOrphan MigrationState = "FAILED_ORPHAN"
)

// Any settled state may re-enter PENDING (content can be migrated again).
var migrationTransitions = map[MigrationState][]MigrationState{
	MigrationNone:         {MigrationPending},
	MigrationPending:      {MigrationDone, MigrationFailed, MigrationFailedOrphan},
	MigrationDone:         {MigrationPending, MigrationFailedOrphan},
	MigrationFailed:       {MigrationPending},
	MigrationFailedOrphan: {MigrationPending},
}

func (m MigrationState) CanTransitionTo(next MigrationState) bool {
	for _, allowed := range migrationTransitions[m] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (m MigrationState) String() string {
	return string(m)
}

// VideoContent represents a course video entity.
//
// Exactly one of two shapes is valid: a stored object (Provider is a storage
// backend and StoragePath is set) or an external link (Provider is external
// and RawURL is set).
type VideoContent struct {
	ID             uuid.UUID
	CourseID       uuid.UUID
	Title          string
	Provider       Provider
	StoragePath    string
	RawURL         string
	SizeBytes      int64
	MigrationState MigrationState
	FreePreview    bool
	Locked         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrInvalidCourseID     = errors.New("course ID cannot be nil")
	ErrTitleTooLong        = errors.New("title exceeds maximum length of 255 characters")
	ErrInvalidProvider     = errors.New("unknown storage provider")
	ErrEmptyStoragePath    = errors.New("storage path cannot be empty")
	ErrEmptyRawURL         = errors.New("external URL cannot be empty")
	ErrInvalidMigration    = errors.New("invalid migration state transition")
	ErrExternalNotStorable = errors.New("external content has no stored object")
)

const maxTitleLength = 255

// NewVideoContent creates content metadata before any bytes are stored.
func NewVideoContent(courseID uuid.UUID, title string) (*VideoContent, error) {
	if courseID == uuid.Nil {
		return nil, ErrInvalidCourseID
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	now := time.Now()
	return &VideoContent{
		ID:        uuid.New(),
		CourseID:  courseID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetStoredObject records where the uploaded bytes live.
func (c *VideoContent) SetStoredObject(provider Provider, path string, sizeBytes int64) error {
	if !provider.IsStored() {
		return ErrInvalidProvider
	}
	if path == "" {
		return ErrEmptyStoragePath
	}
	c.Provider = provider
	c.StoragePath = path
	c.SizeBytes = sizeBytes
	c.RawURL = ""
	c.UpdatedAt = time.Now()
	return nil
}

// SetExternalURL marks the content as a raw external link.
func (c *VideoContent) SetExternalURL(url string) error {
	if url == "" {
		return ErrEmptyRawURL
	}
	c.Provider = ProviderExternal
	c.RawURL = url
	c.StoragePath = ""
	c.SizeBytes = 0
	c.UpdatedAt = time.Now()
	return nil
}

// IsExternal reports whether the content is a raw external link.
func (c *VideoContent) IsExternal() bool {
	return c.Provider == ProviderExternal
}

// BeginMigration marks the content as having an in-flight migration.
func (c *VideoContent) BeginMigration() error {
	if c.IsExternal() {
		return ErrExternalNotStorable
	}
	return c.transitionMigration(MigrationPending)
}

// CompleteMigration repoints the content at its new provider and path.
func (c *VideoContent) CompleteMigration(provider Provider, path string) error {
	if err := c.transitionMigration(MigrationDone); err != nil {
		return err
	}
	return c.SetStoredObject(provider, path, c.SizeBytes)
}

func (c *VideoContent) FailMigration(orphaned bool) error {
	next := MigrationFailed
	if orphaned {
		next = MigrationFailedOrphan
	}
	return c.transitionMigration(next)
}

func (c *VideoContent) transitionMigration(next MigrationState) error {
	if !c.MigrationState.CanTransitionTo(next) {
		return ErrInvalidMigration
	}
	c.MigrationState = next
	c.UpdatedAt = time.Now()
	return nil
}
