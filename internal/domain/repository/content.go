package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
)

// ContentRepository defines persistence operations for video content records.
// Implementations are provided by the infrastructure layer (PostgreSQL).
type ContentRepository interface {
	// Create persists a new content record.
	// Returns ErrDuplicateContent if the record already exists.
	Create(ctx context.Context, content *model.VideoContent) error

	// GetByID retrieves a content record by its unique identifier.
	// Returns nil and ErrContentNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.VideoContent, error)

	// GetByCourseID retrieves all content belonging to a course,
	// newest first. Returns an empty slice when the course has none.
	GetByCourseID(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error)

	// Update persists changes to an existing content record.
	// Returns ErrContentNotFound if the record does not exist.
	Update(ctx context.Context, content *model.VideoContent) error

	// UpdateStorageLocation repoints a record at a new provider and path in a
	// single statement, used when a migration completes.
	// Returns ErrContentNotFound if the record does not exist.
	UpdateStorageLocation(ctx context.Context, id uuid.UUID, provider model.Provider, path string, state model.MigrationState) error

	// UpdateMigrationState updates only the migration state field.
	// Returns ErrContentNotFound if the record does not exist.
	UpdateMigrationState(ctx context.Context, id uuid.UUID, state model.MigrationState) error

	// Delete removes a content record.
	// Returns ErrContentNotFound if the record does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
