package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/storage"
)

// mockContentRepository provides a configurable mock for ContentRepository.
type mockContentRepository struct {
	createFn                func(ctx context.Context, content *model.VideoContent) error
	getByIDFn               func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error)
	getByCourseIDFn         func(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error)
	updateFn                func(ctx context.Context, content *model.VideoContent) error
	updateStorageLocationFn func(ctx context.Context, id uuid.UUID, provider model.Provider, path string, state model.MigrationState) error
	updateMigrationStateFn  func(ctx context.Context, id uuid.UUID, state model.MigrationState) error
	deleteFn                func(ctx context.Context, id uuid.UUID) error
}

func (m *mockContentRepository) Create(ctx context.Context, content *model.VideoContent) error {
	if m.createFn != nil {
		return m.createFn(ctx, content)
	}
	return nil
}

func (m *mockContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrContentNotFound
}

func (m *mockContentRepository) GetByCourseID(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error) {
	if m.getByCourseIDFn != nil {
		return m.getByCourseIDFn(ctx, courseID)
	}
	return nil, nil
}

func (m *mockContentRepository) Update(ctx context.Context, content *model.VideoContent) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, content)
	}
	return nil
}

func (m *mockContentRepository) UpdateStorageLocation(ctx context.Context, id uuid.UUID, provider model.Provider, path string, state model.MigrationState) error {
	if m.updateStorageLocationFn != nil {
		return m.updateStorageLocationFn(ctx, id, provider, path, state)
	}
	return nil
}

func (m *mockContentRepository) UpdateMigrationState(ctx context.Context, id uuid.UUID, state model.MigrationState) error {
	if m.updateMigrationStateFn != nil {
		return m.updateMigrationStateFn(ctx, id, state)
	}
	return nil
}

func (m *mockContentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockSettingsRepository provides a configurable mock for SettingsRepository.
type mockSettingsRepository struct {
	getFn  func(ctx context.Context) (*model.StorageSettings, error)
	saveFn func(ctx context.Context, settings *model.StorageSettings) error
}

func (m *mockSettingsRepository) Get(ctx context.Context) (*model.StorageSettings, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return model.DefaultStorageSettings(), nil
}

func (m *mockSettingsRepository) Save(ctx context.Context, settings *model.StorageSettings) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, settings)
	}
	return nil
}

// mockSettingsCache provides a configurable mock for cache.SettingsCache.
type mockSettingsCache struct {
	getFn        func(ctx context.Context) (*model.StorageSettings, error)
	setFn        func(ctx context.Context, settings *model.StorageSettings, ttl time.Duration) error
	invalidateFn func(ctx context.Context) error
}

func (m *mockSettingsCache) Get(ctx context.Context) (*model.StorageSettings, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return nil, nil
}

func (m *mockSettingsCache) Set(ctx context.Context, settings *model.StorageSettings, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, settings, ttl)
	}
	return nil
}

func (m *mockSettingsCache) Invalidate(ctx context.Context) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx)
	}
	return nil
}

// mockContentCache provides a configurable mock for cache.ContentCache.
type mockContentCache struct {
	getFn    func(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error)
	setFn    func(ctx context.Context, content *model.VideoContent, ttl time.Duration) error
	deleteFn func(ctx context.Context, contentID uuid.UUID) error
}

func (m *mockContentCache) Get(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error) {
	if m.getFn != nil {
		return m.getFn(ctx, contentID)
	}
	return nil, nil
}

func (m *mockContentCache) Set(ctx context.Context, content *model.VideoContent, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, content, ttl)
	}
	return nil
}

func (m *mockContentCache) Delete(ctx context.Context, contentID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, contentID)
	}
	return nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishMigrateTaskFn  func(ctx context.Context, task repository.MigrateTask) error
	consumeMigrateTasksFn func(ctx context.Context, handler func(task repository.MigrateTask) error) error
}

func (m *mockMessageQueue) PublishMigrateTask(ctx context.Context, task repository.MigrateTask) error {
	if m.publishMigrateTaskFn != nil {
		return m.publishMigrateTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeMigrateTasks(ctx context.Context, handler func(task repository.MigrateTask) error) error {
	if m.consumeMigrateTasksFn != nil {
		return m.consumeMigrateTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockUploader, mockResolver and mockDeleter back a fake ProviderSet for
// registry dispatch tests.
type mockUploader struct {
	uploadFn func(ctx context.Context, obj storage.Object, path string, progress storage.ProgressFunc) (string, error)
}

func (m *mockUploader) Upload(ctx context.Context, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, obj, path, progress)
	}
	return path, nil
}

type mockResolver struct {
	resolveURLFn func(ctx context.Context, path string, expiry time.Duration) (string, error)
}

func (m *mockResolver) ResolveURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if m.resolveURLFn != nil {
		return m.resolveURLFn(ctx, path, expiry)
	}
	return "http://example.com/" + path, nil
}

type mockDeleter struct {
	deleteFn func(ctx context.Context, path string) error
}

func (m *mockDeleter) Delete(ctx context.Context, path string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, path)
	}
	return nil
}

// newTestRegistry registers the same mock ProviderSet for all stored providers.
func newTestRegistry(set storage.ProviderSet) *storage.Registry {
	registry := storage.NewRegistry()
	factory := func(_ *model.StorageSettings) storage.ProviderSet { return set }
	registry.Register(model.ProviderObjectStore, factory)
	registry.Register(model.ProviderGateway, factory)
	registry.Register(model.ProviderCDNZone, factory)
	return registry
}

// mockStorageService provides a configurable mock for StorageService, used by
// the migration and caching decorator tests.
type mockStorageService struct {
	getSettingsFn      func(ctx context.Context) (*model.StorageSettings, error)
	saveSettingsFn     func(ctx context.Context, settings *model.StorageSettings) error
	uploadVideoFn      func(ctx context.Context, input UploadVideoInput, progress storage.ProgressFunc) (*model.VideoContent, error)
	uploadToProviderFn func(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error)
	deleteObjectFn     func(ctx context.Context, provider model.Provider, path string) error
	getVideoFn         func(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error)
	listCourseVideosFn func(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error)
	getPlaybackURLFn   func(ctx context.Context, contentID uuid.UUID) (string, error)
	deleteVideoFn      func(ctx context.Context, contentID uuid.UUID) error
	requestMigrationFn func(ctx context.Context, contentID uuid.UUID, target model.Provider) error
}

func (m *mockStorageService) GetSettings(ctx context.Context) (*model.StorageSettings, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn(ctx)
	}
	return model.DefaultStorageSettings(), nil
}

func (m *mockStorageService) SaveSettings(ctx context.Context, settings *model.StorageSettings) error {
	if m.saveSettingsFn != nil {
		return m.saveSettingsFn(ctx, settings)
	}
	return nil
}

func (m *mockStorageService) UploadVideo(ctx context.Context, input UploadVideoInput, progress storage.ProgressFunc) (*model.VideoContent, error) {
	if m.uploadVideoFn != nil {
		return m.uploadVideoFn(ctx, input, progress)
	}
	return nil, nil
}

func (m *mockStorageService) UploadToProvider(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
	if m.uploadToProviderFn != nil {
		return m.uploadToProviderFn(ctx, provider, obj, path, progress)
	}
	return path, nil
}

func (m *mockStorageService) DeleteObject(ctx context.Context, provider model.Provider, path string) error {
	if m.deleteObjectFn != nil {
		return m.deleteObjectFn(ctx, provider, path)
	}
	return nil
}

func (m *mockStorageService) GetVideo(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(ctx, contentID)
	}
	return nil, repository.ErrContentNotFound
}

func (m *mockStorageService) ListCourseVideos(ctx context.Context, courseID uuid.UUID) ([]*model.VideoContent, error) {
	if m.listCourseVideosFn != nil {
		return m.listCourseVideosFn(ctx, courseID)
	}
	return nil, nil
}

func (m *mockStorageService) GetPlaybackURL(ctx context.Context, contentID uuid.UUID) (string, error) {
	if m.getPlaybackURLFn != nil {
		return m.getPlaybackURLFn(ctx, contentID)
	}
	return "", repository.ErrContentNotFound
}

func (m *mockStorageService) DeleteVideo(ctx context.Context, contentID uuid.UUID) error {
	if m.deleteVideoFn != nil {
		return m.deleteVideoFn(ctx, contentID)
	}
	return nil
}

func (m *mockStorageService) RequestMigration(ctx context.Context, contentID uuid.UUID, target model.Provider) error {
	if m.requestMigrationFn != nil {
		return m.requestMigrationFn(ctx, contentID, target)
	}
	return nil
}
