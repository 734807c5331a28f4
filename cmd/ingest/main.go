package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/beamhq/adgallery/internal/config"
	"github.com/beamhq/adgallery/internal/logger"
	"github.com/beamhq/adgallery/internal/repository"
	"github.com/beamhq/adgallery/internal/service"
	"github.com/beamhq/adgallery/internal/storage"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "adgallery-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	manifestPath := flag.String("manifest", "", "Path to JSON manifest of assets to ingest")
	workers := flag.Int("workers", 4, "Number of concurrent ingest workers")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *manifestPath == "" {
		appLogger.Fatal("Missing required -manifest flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	items, err := loadManifest(*manifestPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load manifest")
	}

	appLogger.WithFields(logger.Fields{
		"manifest": *manifestPath,
		"items":    len(items),
		"workers":  *workers,
	}).Info("Starting ingestion")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the run on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Warn("Received shutdown signal, stopping ingestion")
		cancel()
	}()

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

	ingestService := service.NewIngestService(imageRepo, vectorRepo, objectStorage, embeddingService, &service.IngestConfig{
		Workers:    *workers,
		Collection: cfg.Qdrant.Collection,
	})

	stats, err := ingestService.Ingest(ctx, items)
	if err != nil {
		appLogger.WithError(err).Fatal("Ingestion failed")
	}

	appLogger.WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"failed":    stats.FailedItems,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Ingestion finished")

	if stats.FailedItems > 0 {
		os.Exit(1)
	}
}

// loadManifest reads a JSON array of ingest items.
func loadManifest(path string) ([]service.IngestItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []service.IngestItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
