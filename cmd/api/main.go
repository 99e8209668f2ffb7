package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/coursestream/mediahub/internal/api/handler"
	"github.com/coursestream/mediahub/internal/api/middleware"
	"github.com/coursestream/mediahub/internal/config"
	"github.com/coursestream/mediahub/internal/domain/model"
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

	// Wire repositories, caches and services
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
	cachedSvc := usecase.NewCachedStorageService(
		storageSvc,
		contentCache,
		usecase.CachedStorageServiceConfig{ContentCacheTTL: cfg.Cache.ContentTTL},
	)

	r := setupRouter(logger, cachedSvc, cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildRegistry installs one factory per storage backend. The object store is
// connected once at startup (it fails fast on a missing bucket); gateway and
// CDN zone providers are rebuilt from the settings record on every dispatch
// so endpoint changes apply as soon as the settings cache rolls over.
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

func setupRouter(logger *slog.Logger, svc usecase.StorageService, maxUploadBytes int64) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	videoHandler := handler.NewVideoHandler(svc, maxUploadBytes)
	settingsHandler := handler.NewSettingsHandler(svc)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/videos", videoHandler.Create)
		r.Get("/videos/{id}", videoHandler.Get)
		r.Get("/videos/{id}/url", videoHandler.GetURL)
		r.Get("/videos/{id}/playback", videoHandler.GetPlayback)
		r.Delete("/videos/{id}", videoHandler.Delete)
		r.Post("/videos/{id}/migrate", videoHandler.Migrate)
		r.Get("/courses/{courseID}/videos", videoHandler.ListByCourse)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Save)
	})

	return r
}
