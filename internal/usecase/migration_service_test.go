package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/storage"
)

func TestMigrationService_ProcessTask(t *testing.T) {
	contentID := uuid.New()
	sourceBody := "video bytes"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = io.WriteString(w, sourceBody)
	}))
	defer server.Close()

	pending := func() *model.VideoContent {
		return &model.VideoContent{
			ID:             contentID,
			Provider:       model.ProviderObjectStore,
			StoragePath:    "courses/x/video.mp4",
			SizeBytes:      int64(len(sourceBody)),
			MigrationState: model.MigrationPending,
		}
	}

	tests := []struct {
		name      string
		task      repository.MigrateTask
		setupMock func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache)
		wantErr   bool
	}{
		{
			name: "successful migration repoints record and removes old copy",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String()},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					return pending(), nil
				}
				svc.getPlaybackURLFn = func(ctx context.Context, id uuid.UUID) (string, error) {
					return server.URL, nil
				}
				uploaded := false
				svc.uploadToProviderFn = func(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
					uploaded = true
					if provider != model.ProviderCDNZone {
						t.Errorf("expected upload to cdn_zone, got %s", provider)
					}
					data, err := io.ReadAll(obj.Reader)
					if err != nil || string(data) != sourceBody {
						t.Errorf("unexpected uploaded bytes: %q (%v)", data, err)
					}
					return path, nil
				}
				repointed := false
				contents.updateStorageLocationFn = func(ctx context.Context, id uuid.UUID, provider model.Provider, path string, state model.MigrationState) error {
					repointed = true
					if provider != model.ProviderCDNZone {
						t.Errorf("expected repoint to cdn_zone, got %s", provider)
					}
					if state != model.MigrationDone {
						t.Errorf("expected MIGRATED state, got %s", state)
					}
					return nil
				}
				oldDeleted := false
				svc.deleteObjectFn = func(ctx context.Context, provider model.Provider, path string) error {
					oldDeleted = true
					if provider != model.ProviderObjectStore {
						t.Errorf("expected old-copy delete on object_store, got %s", provider)
					}
					if path != "courses/x/video.mp4" {
						t.Errorf("unexpected old path: %s", path)
					}
					return nil
				}
				invalidated := false
				contentCache.deleteFn = func(ctx context.Context, id uuid.UUID) error {
					invalidated = true
					return nil
				}
				t.Cleanup(func() {
					if !uploaded || !repointed || !oldDeleted || !invalidated {
						t.Errorf("incomplete migration: uploaded=%v repointed=%v oldDeleted=%v invalidated=%v",
							uploaded, repointed, oldDeleted, invalidated)
					}
				})
			},
		},
		{
			name: "old-copy delete failure marks record orphaned",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String()},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					return pending(), nil
				}
				svc.getPlaybackURLFn = func(ctx context.Context, id uuid.UUID) (string, error) {
					return server.URL, nil
				}
				svc.deleteObjectFn = func(ctx context.Context, provider model.Provider, path string) error {
					return errors.New("backend unavailable")
				}
				orphaned := false
				contents.updateMigrationStateFn = func(ctx context.Context, id uuid.UUID, state model.MigrationState) error {
					if state == model.MigrationFailedOrphan {
						orphaned = true
					}
					return nil
				}
				t.Cleanup(func() {
					if !orphaned {
						t.Error("expected FAILED_ORPHAN state after old-copy delete failure")
					}
				})
			},
		},
		{
			name: "retry exhaustion marks migration failed and acks",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String(), RetryCount: 3},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					return pending(), nil
				}
				failed := false
				contents.updateMigrationStateFn = func(ctx context.Context, id uuid.UUID, state model.MigrationState) error {
					failed = true
					if state != model.MigrationFailed {
						t.Errorf("expected FAILED, got %s", state)
					}
					return nil
				}
				svc.getPlaybackURLFn = func(ctx context.Context, id uuid.UUID) (string, error) {
					t.Error("no work should happen after retries are exhausted")
					return "", nil
				}
				t.Cleanup(func() {
					if !failed {
						t.Error("expected migration to be marked failed")
					}
				})
			},
		},
		{
			name: "upload failure returns error for retry",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String()},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					return pending(), nil
				}
				svc.getPlaybackURLFn = func(ctx context.Context, id uuid.UUID) (string, error) {
					return server.URL, nil
				}
				svc.uploadToProviderFn = func(ctx context.Context, provider model.Provider, obj storage.Object, path string, progress storage.ProgressFunc) (string, error) {
					return "", errors.New("backend unavailable")
				}
				contents.updateStorageLocationFn = func(ctx context.Context, id uuid.UUID, provider model.Provider, path string, state model.MigrationState) error {
					t.Error("record must not be repointed when upload fails")
					return nil
				}
			},
			wantErr: true,
		},
		{
			name: "deleted content acks the task",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String()},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					return nil, repository.ErrContentNotFound
				}
			},
		},
		{
			name: "settled record makes the task a no-op",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String()},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					c := pending()
					c.MigrationState = model.MigrationDone
					return c, nil
				}
				svc.getPlaybackURLFn = func(ctx context.Context, id uuid.UUID) (string, error) {
					t.Error("settled record must not trigger work")
					return "", nil
				}
			},
		},
		{
			name: "unusable target provider settles as failed",
			task: repository.MigrateTask{ContentID: contentID, TargetProvider: "external"},
			setupMock: func(contents *mockContentRepository, svc *mockStorageService, contentCache *mockContentCache) {
				contents.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
					return pending(), nil
				}
				failed := false
				contents.updateMigrationStateFn = func(ctx context.Context, id uuid.UUID, state model.MigrationState) error {
					failed = true
					if state != model.MigrationFailed {
						t.Errorf("expected FAILED, got %s", state)
					}
					return nil
				}
				t.Cleanup(func() {
					if !failed {
						t.Error("expected migration to be marked failed")
					}
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := &mockContentRepository{}
			svc := &mockStorageService{}
			contentCache := &mockContentCache{}
			tt.setupMock(contents, svc, contentCache)

			ms := NewMigrationService(contents, svc, contentCache, server.Client(), DefaultMigrationServiceConfig())

			err := ms.ProcessTask(context.Background(), tt.task)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMigrationService_ProcessTask_DownloadFailure(t *testing.T) {
	contentID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	contents := &mockContentRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.VideoContent, error) {
			return &model.VideoContent{
				ID:             contentID,
				Provider:       model.ProviderObjectStore,
				StoragePath:    "courses/x/video.mp4",
				MigrationState: model.MigrationPending,
			}, nil
		},
	}
	svc := &mockStorageService{
		getPlaybackURLFn: func(ctx context.Context, id uuid.UUID) (string, error) {
			return server.URL, nil
		},
	}

	ms := NewMigrationService(contents, svc, &mockContentCache{}, server.Client(), DefaultMigrationServiceConfig())

	task := repository.MigrateTask{ContentID: contentID, TargetProvider: model.ProviderCDNZone.String()}
	err := ms.ProcessTask(context.Background(), task)
	if err == nil {
		t.Fatal("expected error for failed download")
	}
	if !strings.Contains(err.Error(), "unexpected status") {
		t.Errorf("expected status error, got %v", err)
	}
}
