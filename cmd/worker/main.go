package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/coursestream/mediahub/internal/config"
	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/infrastructure/cache"
	"github.com/coursestream/mediahub/internal/infrastructure/postgres"
	"github.com/coursestream/mediahub/internal/infrastructure/queue"
	"github.com/coursestream/mediahub/internal/storage"
	"github.com/coursestream/mediahub/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize infrastructure clients
	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build provider registry: %w", err)
	}
	logger.Info("storage providers registered")

	// Wire repositories and services
	contentRepo := postgres.NewContentRepository(pgClient.Pool())
	settingsRepo := postgres.NewSettingsRepository(pgClient.Pool())
	settingsCache := cache.NewRedisSettingsCache(redisClient)
	contentCache := cache.NewRedisContentCache(redisClient)

	storageSvc := usecase.NewStorageService(
		contentRepo,
		settingsRepo,
		settingsCache,
		registry,
		queueClient,
		usecase.StorageServiceConfig{SettingsCacheTTL: cfg.Cache.SettingsTTL},
	)
	migrationSvc := usecase.NewMigrationService(
		contentRepo,
		storageSvc,
		contentCache,
		http.DefaultClient,
		usecase.MigrationServiceConfig{
			MaxRetries:      cfg.Worker.MaxRetries,
			DownloadTimeout: cfg.Worker.DownloadTimeout,
		},
	)

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming migrate tasks")
		err := queueClient.ConsumeMigrateTasks(ctx, func(task repository.MigrateTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing migration",
				slog.String("content_id", task.ContentID.String()),
				slog.String("target_provider", task.TargetProvider),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := migrationSvc.ProcessTask(ctx, task); err != nil {
				logger.Error("migration failed",
					slog.String("content_id", task.ContentID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("migration task completed",
				slog.String("content_id", task.ContentID.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Cancel the main context to stop consuming new messages
	cancel()

	// Wait for in-flight tasks to complete (or timeout)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight migrations completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some migrations may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// buildRegistry mirrors the API server's provider wiring: the object store
// connects once at startup, gateway and CDN zone rebuild from settings per
// dispatch.
func buildRegistry(ctx context.Context, cfg *config.Config) (*storage.Registry, error) {
	objectStore, err := storage.NewObjectStoreProvider(ctx, storage.ObjectStoreConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	registry := storage.NewRegistry()
	registry.Register(model.ProviderObjectStore, func(_ *model.StorageSettings) storage.ProviderSet {
		return objectStore.Set()
	})
	registry.Register(model.ProviderGateway, func(s *model.StorageSettings) storage.ProviderSet {
		return storage.NewGatewayProvider(storage.GatewayConfig{
			Endpoint:      s.GatewayEndpoint,
			PublicBaseURL: s.GatewayPublicBaseURL,
		}, http.DefaultClient).Set()
	})
	registry.Register(model.ProviderCDNZone, func(s *model.StorageSettings) storage.ProviderSet {
		return storage.NewCDNZoneProvider(storage.CDNZoneConfig{
			StorageZoneURL: s.CDNStorageZoneURL,
			AccessKey:      s.CDNAccessKey,
			PullZoneURL:    s.CDNPullZoneURL,
			SecurityKey:    s.CDNSecurityKey,
		}, http.DefaultClient).Set()
	})
	return registry, nil
}
