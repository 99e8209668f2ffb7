package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ContentRepository implements repository.ContentRepository using PostgreSQL.
type ContentRepository struct {
	db DBTX
}

// NewContentRepository creates a new ContentRepository instance.
func NewContentRepository(db DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, course_id, title, provider, storage_path, raw_url, size_bytes, migration_state, free_preview, locked, created_at, updated_at`

// Create persists a new content record.
func (r *ContentRepository) Create(ctx context.Context, content *model.VideoContent) error {
	const query = `
		INSERT INTO video_contents (id, course_id, title, provider, storage_path, raw_url, size_bytes, migration_state, free_preview, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		content.ID,
		content.CourseID,
		content.Title,
		content.Provider.String(),
		nullString(content.StoragePath),
		nullString(content.RawURL),
		content.SizeBytes,
		content.MigrationState.String(),
		content.FreePreview,
		content.Locked,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateContent
		}
		return fmt.Errorf("failed to create video content: %w", err)
	}

	return nil
}

// GetByID retrieves a content record by its unique identifier.
func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
	query := `SELECT ` + contentColumns + ` FROM video_contents WHERE id = $1`

	content, err := scanContent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get video content by ID: %w", err)
	}

	return content, nil
}

// GetByCourseID retrieves all content belonging to a course, newest first.
func (r *ContentRepository) GetByCourseID(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error) {
	query := `SELECT ` + contentColumns + ` FROM video_contents WHERE course_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query video contents by course ID: %w", err)
	}
	defer rows.Close()

	var contents []*model.VideoContent
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video content: %w", err)
		}
		contents = append(contents, content)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video contents: %w", err)
	}

	return contents, nil
}

// Update persists changes to an existing content record.
func (r *ContentRepository) Update(ctx context.Context, content *model.VideoContent) error {
	const query = `
		UPDATE video_contents
		SET title = $2, provider = $3, storage_path = $4, raw_url = $5, size_bytes = $6,
		    migration_state = $7, free_preview = $8, locked = $9, updated_at = $10
		WHERE id = $1
	`

	content.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		content.ID,
		content.Title,
		content.Provider.String(),
		nullString(content.StoragePath),
		nullString(content.RawURL),
		content.SizeBytes,
		content.MigrationState.String(),
		content.FreePreview,
		content.Locked,
		content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update video content: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrContentNotFound
	}

	return nil
}

// UpdateStorageLocation repoints a record at a new provider and path.
func (r *ContentRepository) UpdateStorageLocation(ctx context.Context, id uuid.UUID, provider model.Provider, path string, state model.MigrationState) error {
	const query = `
		UPDATE video_contents
		SET provider = $2, storage_path = $3, migration_state = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, provider.String(), nullString(path), state.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update storage location: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrContentNotFound
	}

	return nil
}

// UpdateMigrationState updates only the migration state field.
func (r *ContentRepository) UpdateMigrationState(ctx context.Context, id uuid.UUID, state model.MigrationState) error {
	const query = `
		UPDATE video_contents
		SET migration_state = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, state.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update migration state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrContentNotFound
	}

	return nil
}

// Delete removes a content record.
func (r *ContentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM video_contents WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video content: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrContentNotFound
	}

	return nil
}

// scanContent scans a single row into a VideoContent model.
func scanContent(row pgx.Row) (*model.VideoContent, error) {
	var (
		content        model.VideoContent
		provider       string
		storagePath    *string
		rawURL         *string
		migrationState string
	)

	err := row.Scan(
		&content.ID,
		&content.CourseID,
		&content.Title,
		&provider,
		&storagePath,
		&rawURL,
		&content.SizeBytes,
		&migrationState,
		&content.FreePreview,
		&content.Locked,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	content.Provider = model.Provider(provider)
	content.MigrationState = model.MigrationState(migrationState)
	if storagePath != nil {
		content.StoragePath = *storagePath
	}
	if rawURL != nil {
		content.RawURL = *rawURL
	}

	return &content, nil
}

// nullString returns nil for empty strings, otherwise a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that ContentRepository implements repository.ContentRepository.
var _ repository.ContentRepository = (*ContentRepository)(nil)
