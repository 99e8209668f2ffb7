package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/infrastructure/cache"
	"github.com/coursestream/mediahub/internal/infrastructure/metrics"
	"github.com/coursestream/mediahub/internal/storage"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts before
	// a migration is marked as failed.
	DefaultMaxRetries = 3
)

// MigrationServiceConfig holds configuration for MigrationService.
type MigrationServiceConfig struct {
	// MaxRetries is the maximum number of retry attempts before marking the
	// migration as failed.
	MaxRetries int
	// DownloadTimeout bounds the source-object download.
	DownloadTimeout time.Duration
}

// DefaultMigrationServiceConfig returns the default configuration.
func DefaultMigrationServiceConfig() MigrationServiceConfig {
	return MigrationServiceConfig{
		MaxRetries:      DefaultMaxRetries,
		DownloadTimeout: 30 * time.Minute,
	}
}

// MigrationService moves a video's bytes from its current provider to a
// target provider.
type MigrationService interface {
	// ProcessTask handles a migration task from the message queue.
	// Returns nil on success or permanent failure (max retries exceeded).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.MigrateTask) error
}

// migrationHTTPDoer abstracts the HTTP client used to download the source
// object, for testability.
type migrationHTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type migrationService struct {
	contents     repository.ContentRepository
	storage      StorageService
	contentCache cache.ContentCache
	httpClient   migrationHTTPDoer

	maxRetries      int
	downloadTimeout time.Duration
}

// NewMigrationService creates a new MigrationService instance.
func NewMigrationService(
	contents repository.ContentRepository,
	storage StorageService,
	contentCache cache.ContentCache,
	httpClient *http.Client,
	cfg MigrationServiceConfig,
) MigrationService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &migrationService{
		contents:        contents,
		storage:         storage,
		contentCache:    contentCache,
		httpClient:      httpClient,
		maxRetries:      cfg.MaxRetries,
		downloadTimeout: cfg.DownloadTimeout,
	}
}

// ProcessTask handles a migration task.
// It streams the object from the source provider to the target provider,
// repoints the content record, then removes the old copy best-effort.
func (s *migrationService) ProcessTask(ctx context.Context, task repository.MigrateTask) error {
	// Check if max retries exceeded - mark as failed and return nil (ack the message)
	if task.RetryCount >= s.maxRetries {
		if err := s.markMigrationFailed(ctx, task); err != nil {
			slog.Error("failed to mark migration as failed",
				"content_id", task.ContentID,
				"retry_count", task.RetryCount,
				"error", err,
			)
			// Still return nil to ack the message. The content remains in
			// PENDING migration state, which is acceptable.
			return nil
		}
		metrics.MigrationsTotal.WithLabelValues(metrics.MigrationFailed).Inc()
		return nil
	}

	target := model.Provider(task.TargetProvider)
	if !target.IsStored() {
		// Malformed task. Retrying cannot help, so settle the record.
		slog.Error("migrate task names an unusable target provider",
			"content_id", task.ContentID,
			"target_provider", task.TargetProvider,
		)
		if err := s.markMigrationFailed(ctx, task); err == nil {
			metrics.MigrationsTotal.WithLabelValues(metrics.MigrationFailed).Inc()
		}
		return nil
	}

	content, err := s.contents.GetByID(ctx, task.ContentID)
	if err != nil {
		if errors.Is(err, repository.ErrContentNotFound) {
			// Content deleted between enqueue and processing. Nothing to do.
			slog.Warn("migrate task for deleted content", "content_id", task.ContentID)
			return nil
		}
		return fmt.Errorf("get content: %w", err)
	}

	if content.MigrationState != model.MigrationPending {
		// Stale or duplicate task. The record already settled.
		return nil
	}

	if content.Provider == target {
		// Already on the target (e.g. a duplicated task). Just settle.
		if err := s.contents.UpdateMigrationState(ctx, content.ID, model.MigrationDone); err != nil {
			return fmt.Errorf("settle migration state: %w", err)
		}
		s.invalidateContent(ctx, content.ID)
		return nil
	}

	oldProvider := content.Provider
	oldPath := content.StoragePath

	finalPath, err := s.copyToTarget(ctx, content, target)
	if err != nil {
		return err
	}

	if err := s.contents.UpdateStorageLocation(ctx, content.ID, target, finalPath, model.MigrationDone); err != nil {
		return fmt.Errorf("repoint content record: %w", err)
	}
	metrics.MigrationsTotal.WithLabelValues(metrics.MigrationCompleted).Inc()

	// Old-copy cleanup is best-effort. The record already points at the new
	// provider, so a cleanup failure only leaves an orphaned copy behind.
	// FAILED_ORPHAN makes that copy discoverable instead of silent.
	if err := s.storage.DeleteObject(ctx, oldProvider, oldPath); err != nil {
		slog.Warn("failed to delete old copy after migration",
			"content_id", content.ID,
			"provider", oldProvider,
			"path", oldPath,
			"error", err,
		)
		if stateErr := s.contents.UpdateMigrationState(ctx, content.ID, model.MigrationFailedOrphan); stateErr != nil {
			slog.Error("failed to mark migration as orphaned",
				"content_id", content.ID,
				"error", stateErr,
			)
		}
		metrics.MigrationsTotal.WithLabelValues(metrics.MigrationOrphaned).Inc()
	}

	s.invalidateContent(ctx, content.ID)
	return nil
}

// copyToTarget streams the source object into the target provider and returns
// the authoritative path on the target.
func (s *migrationService) copyToTarget(ctx context.Context, content *model.VideoContent, target model.Provider) (string, error) {
	sourceURL, err := s.storage.GetPlaybackURL(ctx, content.ID)
	if err != nil {
		return "", fmt.Errorf("resolve source URL: %w", err)
	}

	dlCtx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download source object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download source object: unexpected status %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size <= 0 {
		size = content.SizeBytes
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj := storage.Object{
		Reader:      resp.Body,
		Size:        size,
		ContentType: contentType,
		FileName:    path.Base(content.StoragePath),
		CourseID:    content.CourseID,
	}
	finalPath, err := s.storage.UploadToProvider(dlCtx, target, obj, content.StoragePath, nil)
	if err != nil {
		return "", fmt.Errorf("upload to %s: %w", target, err)
	}
	return finalPath, nil
}

// markMigrationFailed settles the record in FAILED state.
func (s *migrationService) markMigrationFailed(ctx context.Context, task repository.MigrateTask) error {
	content, err := s.contents.GetByID(ctx, task.ContentID)
	if err != nil {
		if errors.Is(err, repository.ErrContentNotFound) {
			return nil
		}
		return fmt.Errorf("get content: %w", err)
	}

	// Only transition if still pending.
	if content.MigrationState != model.MigrationPending {
		return nil
	}

	if err := s.contents.UpdateMigrationState(ctx, content.ID, model.MigrationFailed); err != nil {
		return fmt.Errorf("update migration state: %w", err)
	}
	s.invalidateContent(ctx, content.ID)
	return nil
}

func (s *migrationService) invalidateContent(ctx context.Context, contentID uuid.UUID) {
	if s.contentCache == nil {
		return
	}
	if err := s.contentCache.Delete(ctx, contentID); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeContent).Inc()
		slog.Warn("failed to invalidate content cache", "content_id", contentID, "error", err)
		return
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeContent).Inc()
}
