package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beamhq/adgallery/internal/api"
	"github.com/beamhq/adgallery/internal/api/middleware"
	"github.com/beamhq/adgallery/internal/config"
	"github.com/beamhq/adgallery/internal/logger"
	"github.com/beamhq/adgallery/internal/repository"
	"github.com/beamhq/adgallery/internal/service"
	"github.com/beamhq/adgallery/internal/storage"
)

func main() {
	appLogger := logger.New(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	imageRepo := repository.NewImageRepository(db)
	vectorRepo, err := repository.NewVectorRepository(&repository.VectorConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Replicate.Dimensions,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize vector repository")
	}
	defer vectorRepo.Close()

	ctx := context.Background()
	if err := vectorRepo.EnsureCollection(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure vector collection")
	}

	objectStorage, err := storage.NewS3Storage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		APIToken:     cfg.Replicate.APIToken,
		BaseURL:      cfg.Replicate.BaseURL,
		ModelVersion: cfg.Replicate.ModelVersion,
		Dimensions:   cfg.Replicate.Dimensions,
		PollInterval: cfg.Replicate.PollInterval,
		PollAttempts: cfg.Replicate.PollAttempts,
	})

	searchService := service.NewSearchService(embeddingService, vectorRepo, imageRepo, &service.SearchConfig{
		ScoreThreshold: cfg.Search.ScoreThreshold,
		CandidateLimit: cfg.Search.CandidateLimit,
	})

	catalogService := service.NewCatalogService(imageRepo, objectStorage)

	router := api.SetupRouter(embeddingService, searchService, catalogService, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
