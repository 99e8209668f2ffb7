package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/infrastructure/cache"
	"github.com/coursestream/mediahub/internal/infrastructure/metrics"
	"github.com/coursestream/mediahub/internal/storage"
)

// CachedStorageServiceConfig holds configuration for CachedStorageService.
type CachedStorageServiceConfig struct {
	// ContentCacheTTL is the TTL for cached content metadata.
	ContentCacheTTL time.Duration
}

// DefaultCachedStorageServiceConfig returns the default configuration.
func DefaultCachedStorageServiceConfig() CachedStorageServiceConfig {
	return CachedStorageServiceConfig{
		ContentCacheTTL: 5 * time.Minute,
	}
}

// cachedStorageService wraps StorageService with content metadata caching.
// It implements the decorator pattern so the underlying service stays unaware
// of the cache.
type cachedStorageService struct {
	delegate StorageService
	cache    cache.ContentCache
	sfGroup  singleflight.Group

	cacheTTL time.Duration
}

// NewCachedStorageService creates a StorageService decorator that caches
// content metadata reads and invalidates on every mutation.
func NewCachedStorageService(
	delegate StorageService,
	contentCache cache.ContentCache,
	cfg CachedStorageServiceConfig,
) StorageService {
	return &cachedStorageService{
		delegate: delegate,
		cache:    contentCache,
		cacheTTL: cfg.ContentCacheTTL,
	}
}

// GetSettings delegates to the underlying service, which owns the settings
// cache already.
func (s *cachedStorageService) GetSettings(ctx context.Context) (*model.StorageSettings, error) {
	return s.delegate.GetSettings(ctx)
}

// SaveSettings delegates to the underlying service.
func (s *cachedStorageService) SaveSettings(ctx context.Context, settings *model.StorageSettings) error {
	return s.delegate.SaveSettings(ctx, settings)
}

// UploadVideo delegates to the underlying service.
// No caching for create operations, the record is returned directly.
func (s *cachedStorageService) UploadVideo(ctx context.Context, input UploadVideoInput, progress storage.ProgressFunc) (*model.VideoContent, error) {
	return s.delegate.UploadVideo(ctx, input, progress)
}

// UploadToProvider delegates to the underlying service.
func (s *cachedStorageService) UploadToProvider(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
	return s.delegate.UploadToProvider(ctx, provider, obj, path, progress)
}

// DeleteObject delegates to the underlying service.
func (s *cachedStorageService) DeleteObject(ctx context.Context, provider model.Provider, path string) error {
	return s.delegate.DeleteObject(ctx, provider, path)
}

// GetVideo retrieves content metadata with caching.
// Uses singleflight to prevent cache stampede on concurrent requests for the
// same content.
func (s *cachedStorageService) GetVideo(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error) {
	key := contentID.String()
	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		return s.getVideoWithCache(ctx, contentID)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}
	return result.(*model.VideoContent), nil
}

// getVideoWithCache implements the cache-aside pattern.
func (s *cachedStorageService) getVideoWithCache(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error) {
	content, err := s.cache.Get(ctx, contentID)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeContent).Inc()
		slog.Warn("content cache get failed, falling back to database",
			"content_id", contentID,
			"error", err,
		)
	}

	if content != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeContent).Inc()
		return content, nil
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeContent).Inc()

	content, err = s.delegate.GetVideo(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, content, s.cacheTTL); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeContent).Inc()
		slog.Warn("failed to cache content",
			"content_id", contentID,
			"error", err,
		)
	}

	return content, nil
}

// ListCourseVideos delegates to the underlying service. Course listings are
// not cached; only single-item lookups are hot enough to matter.
func (s *cachedStorageService) ListCourseVideos(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error) {
	return s.delegate.ListCourseVideos(ctx, courseID)
}

// GetPlaybackURL delegates to the underlying service. Signed URLs are
// time-bounded and must not be served from cache.
func (s *cachedStorageService) GetPlaybackURL(ctx context.Context, contentID uuid.UUID) (string, error) {
	return s.delegate.GetPlaybackURL(ctx, contentID)
}

// DeleteVideo delegates to the underlying service and invalidates the cache
// once the delete succeeded. Invalidating first would leave a window where a
// concurrent GetVideo re-caches the record that is about to disappear.
func (s *cachedStorageService) DeleteVideo(ctx context.Context, contentID uuid.UUID) error {
	if err := s.delegate.DeleteVideo(ctx, contentID); err != nil {
		return err
	}
	s.invalidate(ctx, contentID)
	return nil
}

// RequestMigration delegates to the underlying service and invalidates the
// cache once the pending state is persisted, so no stale entry can hide it.
func (s *cachedStorageService) RequestMigration(ctx context.Context, contentID uuid.UUID, target model.Provider) error {
	if err := s.delegate.RequestMigration(ctx, contentID, target); err != nil {
		return err
	}
	s.invalidate(ctx, contentID)
	return nil
}

func (s *cachedStorageService) invalidate(ctx context.Context, contentID uuid.UUID) {
	if err := s.cache.Delete(ctx, contentID); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeContent).Inc()
		slog.Warn("failed to invalidate content cache",
			"content_id", contentID,
			"error", err,
		)
		return
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeContent).Inc()
}
