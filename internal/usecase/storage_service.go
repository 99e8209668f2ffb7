package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/infrastructure/cache"
	"github.com/coursestream/mediahub/internal/infrastructure/metrics"
	"github.com/coursestream/mediahub/internal/storage"
)

// UploadVideoInput contains the input parameters for creating video content.
// When ExternalURL is set the content is registered as a raw external link
// and no bytes are uploaded; Reader/Size are ignored.
type UploadVideoInput struct {
	CourseID    uuid.UUID
	Title       string
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
	FreePreview bool
	Locked      bool
	ExternalURL string
}

// StorageService is the single entry point for video storage operations. It
// owns the settings cache and dispatches uploads, URL resolution, deletion
// and migration to the provider matching each content record.
type StorageService interface {
	// GetSettings returns storage settings through the TTL cache.
	// Returns repository.ErrSettingsNotFound when no settings row exists.
	GetSettings(ctx context.Context) (*model.StorageSettings, error)

	// SaveSettings validates and persists settings, then invalidates the
	// settings cache so the next read observes the new record.
	SaveSettings(ctx context.Context, settings *model.StorageSettings) error

	// UploadVideo validates the upload against settings, streams the bytes
	// to the active provider and persists the resulting content record.
	UploadVideo(ctx context.Context, input UploadVideoInput, progress storage.ProgressFunc) (*model.VideoContent, error)

	// UploadToProvider uploads bytes to an explicitly chosen provider,
	// bypassing the active-provider selection. Used by migration so it never
	// has to touch the cached settings.
	UploadToProvider(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error)

	// DeleteObject removes a single object from the given provider. Unlike
	// DeleteVideo this returns backend errors; callers decide the policy.
	DeleteObject(ctx context.Context, provider model.Provider, path string) error

	// GetVideo retrieves content metadata by ID.
	GetVideo(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error)

	// ListCourseVideos retrieves all content for a course, newest first.
	ListCourseVideos(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error)

	// GetPlaybackURL resolves a time-bounded playable URL for the content.
	// External content returns its stored raw URL verbatim.
	GetPlaybackURL(ctx context.Context, contentID uuid.UUID) (string, error)

	// DeleteVideo removes the content record. Backend deletion is
	// best-effort: failures are logged and never block the record deletion.
	DeleteVideo(ctx context.Context, contentID uuid.UUID) error

	// RequestMigration marks the content as pending migration and enqueues
	// the move to the target provider.
	RequestMigration(ctx context.Context, contentID uuid.UUID, target model.Provider) error
}

// StorageServiceConfig holds configuration for StorageService.
type StorageServiceConfig struct {
	// SettingsCacheTTL bounds settings staleness between explicit
	// invalidations.
	SettingsCacheTTL time.Duration
}

// DefaultStorageServiceConfig returns the default configuration.
func DefaultStorageServiceConfig() StorageServiceConfig {
	return StorageServiceConfig{
		SettingsCacheTTL: 5 * time.Minute,
	}
}

type storageService struct {
	contents      repository.ContentRepository
	settings      repository.SettingsRepository
	settingsCache cache.SettingsCache
	registry      *storage.Registry
	queue         repository.MessageQueue

	settingsCacheTTL time.Duration
}

// NewStorageService creates a new StorageService instance.
func NewStorageService(
	contents repository.ContentRepository,
	settings repository.SettingsRepository,
	settingsCache cache.SettingsCache,
	registry *storage.Registry,
	queue repository.MessageQueue,
	cfg StorageServiceConfig,
) StorageService {
	return &storageService{
		contents:         contents,
		settings:         settings,
		settingsCache:    settingsCache,
		registry:         registry,
		queue:            queue,
		settingsCacheTTL: cfg.SettingsCacheTTL,
	}
}

// GetSettings implements the cache-aside pattern over the settings row.
func (s *storageService) GetSettings(ctx context.Context) (*model.StorageSettings, error) {
	cached, err := s.settingsCache.Get(ctx)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeSettings).Inc()
		slog.Warn("settings cache get failed, falling back to repository", "error", err)
	}
	if cached != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeSettings).Inc()
		return cached, nil
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeSettings).Inc()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.settingsCache.Set(ctx, settings, s.settingsCacheTTL); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeSettings).Inc()
		slog.Warn("failed to cache storage settings", "error", err)
	}

	return settings, nil
}

// SaveSettings persists settings and invalidates the cache. Invalidation
// failure is returned as an error: serving stale settings after an explicit
// save would violate the settings-write contract.
func (s *storageService) SaveSettings(ctx context.Context, settings *model.StorageSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if err := s.settingsCache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate settings cache: %w", err)
	}

	return nil
}

// UploadVideo validates, uploads and persists a new content record.
func (s *storageService) UploadVideo(ctx context.Context, input UploadVideoInput, progress storage.ProgressFunc) (*model.VideoContent, error) {
	content, err := model.NewVideoContent(input.CourseID, input.Title)
	if err != nil {
		return nil, err
	}
	content.FreePreview = input.FreePreview
	content.Locked = input.Locked

	if input.ExternalURL != "" {
		if err := content.SetExternalURL(input.ExternalURL); err != nil {
			return nil, err
		}
		if err := s.contents.Create(ctx, content); err != nil {
			return nil, fmt.Errorf("create content: %w", err)
		}
		return content, nil
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if input.Size > settings.MaxFileSizeBytes() {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %dMB limit", ErrFileTooLarge, input.Size, settings.MaxFileSizeMB)
	}

	path := storage.BuildObjectPath(input.CourseID, input.FileName, time.Now())
	obj := storage.Object{
		Reader:      input.Reader,
		Size:        input.Size,
		ContentType: input.ContentType,
		FileName:    input.FileName,
		CourseID:    input.CourseID,
	}

	finalPath, err := s.uploadWith(ctx, settings, settings.ActiveProvider, obj, path, progress)
	if err != nil {
		return nil, err
	}

	if err := content.SetStoredObject(settings.ActiveProvider, finalPath, input.Size); err != nil {
		return nil, err
	}

	if err := s.contents.Create(ctx, content); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	return content, nil
}

// UploadToProvider uploads to an explicit provider, bypassing the
// active-provider selection.
func (s *storageService) UploadToProvider(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	return s.uploadWith(ctx, settings, provider, obj, path, progress)
}

func (s *storageService) uploadWith(ctx context.Context, settings *model.StorageSettings, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
	set, err := s.registry.For(provider, settings)
	if err != nil {
		return "", err
	}

	start := time.Now()
	finalPath, err := set.Uploader.Upload(ctx, obj, path, progress)
	if err != nil {
		metrics.ProviderOperationsTotal.WithLabelValues(provider.String(), metrics.OpUpload, metrics.StatusError).Inc()
		return "", err
	}

	metrics.ProviderOperationsTotal.WithLabelValues(provider.String(), metrics.OpUpload, metrics.StatusSuccess).Inc()
	metrics.UploadBytesTotal.WithLabelValues(provider.String()).Add(float64(obj.Size))
	metrics.UploadDuration.WithLabelValues(provider.String()).Observe(time.Since(start).Seconds())
	return finalPath, nil
}

// DeleteObject removes an object from the given provider and reports errors
// to the caller.
func (s *storageService) DeleteObject(ctx context.Context, provider model.Provider, path string) error {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}

	set, err := s.registry.For(provider, settings)
	if err != nil {
		return err
	}

	if err := set.Deleter.Delete(ctx, path); err != nil {
		metrics.ProviderOperationsTotal.WithLabelValues(provider.String(), metrics.OpDelete, metrics.StatusError).Inc()
		return err
	}
	metrics.ProviderOperationsTotal.WithLabelValues(provider.String(), metrics.OpDelete, metrics.StatusSuccess).Inc()
	return nil
}

// GetVideo retrieves content metadata by ID.
func (s *storageService) GetVideo(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error) {
	return s.contents.GetByID(ctx, contentID)
}

// ListCourseVideos retrieves all content for a course.
func (s *storageService) ListCourseVideos(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error) {
	return s.contents.GetByCourseID(ctx, courseID)
}

// GetPlaybackURL resolves a playable URL for the content.
func (s *storageService) GetPlaybackURL(ctx context.Context, contentID uuid.UUID) (string, error) {
	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		return "", err
	}

	// External links are returned verbatim without touching any backend.
	if content.IsExternal() {
		return content.RawURL, nil
	}

	if content.StoragePath == "" {
		return "", ErrMissingStoragePath
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return "", err
	}

	set, err := s.registry.For(content.Provider, settings)
	if err != nil {
		return "", err
	}

	url, err := set.Resolver.ResolveURL(ctx, content.StoragePath, settings.SignedURLExpiry())
	if err != nil {
		metrics.ProviderOperationsTotal.WithLabelValues(content.Provider.String(), metrics.OpResolve, metrics.StatusError).Inc()
		return "", fmt.Errorf("resolve playback URL: %w", err)
	}
	metrics.ProviderOperationsTotal.WithLabelValues(content.Provider.String(), metrics.OpResolve, metrics.StatusSuccess).Inc()
	return url, nil
}

// DeleteVideo removes the content record. The backend object deletion is
// best-effort: a storage hiccup must never block removing the record, so
// backend errors are logged and swallowed here.
func (s *storageService) DeleteVideo(ctx context.Context, contentID uuid.UUID) error {
	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		return err
	}

	if content.Provider.IsStored() && content.StoragePath != "" {
		if err := s.DeleteObject(ctx, content.Provider, content.StoragePath); err != nil {
			slog.Warn("best-effort backend deletion failed",
				"content_id", contentID,
				"provider", content.Provider,
				"path", content.StoragePath,
				"error", err,
			)
		}
	}

	if err := s.contents.Delete(ctx, contentID); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

// RequestMigration validates and enqueues a migration to the target provider.
func (s *storageService) RequestMigration(ctx context.Context, contentID uuid.UUID, target model.Provider) error {
	if !target.IsValid() {
		return fmt.Errorf("%w: %s", storage.ErrUnsupportedProvider, target)
	}
	if !target.IsStored() {
		return fmt.Errorf("%w: cannot migrate to the external provider", ErrInvalidOperation)
	}

	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		return err
	}

	if content.IsExternal() {
		return fmt.Errorf("%w: external links have no stored object to migrate", ErrInvalidOperation)
	}
	if content.Provider == target {
		return fmt.Errorf("%w: content already lives on %s", ErrInvalidOperation, target)
	}

	if err := content.BeginMigration(); err != nil {
		if errors.Is(err, model.ErrInvalidMigration) {
			return fmt.Errorf("%w: a migration is already pending", ErrInvalidOperation)
		}
		return err
	}

	if err := s.contents.UpdateMigrationState(ctx, contentID, model.MigrationPending); err != nil {
		return fmt.Errorf("mark migration pending: %w", err)
	}

	task := repository.MigrateTask{
		ContentID:      contentID,
		TargetProvider: target.String(),
	}
	if err := s.queue.PublishMigrateTask(ctx, task); err != nil {
		return fmt.Errorf("publish migrate task: %w", err)
	}

	return nil
}
