package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/beamhq/adgallery/internal/logger"
	"github.com/beamhq/adgallery/internal/storage"
	"github.com/google/uuid"
)

// ImageWriter persists catalog records. Only the ingest pipeline writes.
type ImageWriter interface {
	Upsert(ctx context.Context, image *domain.ImageRecord) error
}

// VectorWriter persists embedding points for catalog records.
type VectorWriter interface {
	UpsertImageVector(ctx context.Context, pointID string, vector domain.Vector, imageID int64, brandName, industry string) error
}

// IngestItem describes one creative asset to ingest.
type IngestItem struct {
	FilePath          string  `json:"file"`
	OriginalID        int64   `json:"original_id"`
	BrandID           string  `json:"brand_id"`
	BrandName         string  `json:"brand_name"`
	BrandImage        string  `json:"brand_image"`
	Industry          string  `json:"industry"`
	Priority          int     `json:"priority"`
	PerformanceRating float64 `json:"performance_rating"`
	Description       string  `json:"description,omitempty"`
}

// IngestConfig holds configuration for the ingest pipeline.
type IngestConfig struct {
	Workers    int
	Collection string
}

// IngestStats aggregates counters for one ingest run.
type IngestStats struct {
	TotalItems     int64
	ProcessedItems int64
	FailedItems    int64
	StartTime      time.Time
	EndTime        time.Time
}

// IngestService loads creative assets into the catalog: pixel dimension
// probe, object storage upload, description embedding, catalog row and
// vector point upsert.
type IngestService struct {
	images     ImageWriter
	vectors    VectorWriter
	storage    storage.ObjectStorage
	embedding  EmbeddingProvider
	workers    int
	collection string
}

// NewIngestService creates a new ingest service.
// Parameters:
//   - images: catalog writer.
//   - vectors: vector point writer.
//   - objectStorage: asset upload target.
//   - embedding: embedding provider for description text.
//   - cfg: worker count and collection name.
// Returns:
//   - *IngestService: initialized service.
func NewIngestService(images ImageWriter, vectors VectorWriter, objectStorage storage.ObjectStorage, embedding EmbeddingProvider, cfg *IngestConfig) *IngestService {
	workers := 4
	collection := "ad_images"
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.Collection != "" {
			collection = cfg.Collection
		}
	}
	return &IngestService{
		images:     images,
		vectors:    vectors,
		storage:    objectStorage,
		embedding:  embedding,
		workers:    workers,
		collection: collection,
	}
}

// Ingest processes the given items with a fixed worker pool.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - items: assets to ingest.
// Returns:
//   - *IngestStats: run counters.
//   - error: non-nil only when the run could not start.
func (s *IngestService) Ingest(ctx context.Context, items []IngestItem) (*IngestStats, error) {
	stats := &IngestStats{
		TotalItems: int64(len(items)),
		StartTime:  time.Now(),
	}

	logger.CtxInfo(ctx, "Starting ingest: items=%d, workers=%d", len(items), s.workers)

	itemsChan := make(chan IngestItem, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemsChan {
				if err := s.processItem(ctx, &item); err != nil {
					atomic.AddInt64(&stats.FailedItems, 1)
					logger.FromContext(ctx).WithError(err).
						Errorf("Failed to ingest item: original_id=%d", item.OriginalID)
					continue
				}
				atomic.AddInt64(&stats.ProcessedItems, 1)
			}
		}()
	}

	for _, item := range items {
		select {
		case itemsChan <- item:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(itemsChan)
	wg.Wait()

	stats.EndTime = time.Now()

	logger.With(logger.Fields{
		logger.FieldCount:      stats.ProcessedItems,
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
	}).Info(ctx, "Ingest completed: failed=%d", stats.FailedItems)

	return stats, nil
}

// processItem runs the full pipeline for one asset.
func (s *IngestService) processItem(ctx context.Context, item *IngestItem) error {
	data, err := os.ReadFile(item.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read asset: %w", err)
	}

	width, height, format, err := probeDimensions(data)
	if err != nil {
		return fmt.Errorf("failed to decode asset: %w", err)
	}

	key := fmt.Sprintf("creatives/%d%s", item.OriginalID, strings.ToLower(filepath.Ext(item.FilePath)))
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypeFor(format)); err != nil {
		return fmt.Errorf("failed to upload asset: %w", err)
	}

	record := &domain.ImageRecord{
		OriginalID:        item.OriginalID,
		ImageWidth:        width,
		ImageHeight:       height,
		BrandID:           item.BrandID,
		BrandName:         item.BrandName,
		BrandImage:        item.BrandImage,
		Industry:          item.Industry,
		Priority:          item.Priority,
		PerformanceRating: item.PerformanceRating,
		StorageKey:        key,
		DisplayURL:        s.storage.GetURL(key),
	}

	vector, err := s.embedding.Embed(ctx, buildDescriptionText(item))
	if err != nil {
		return fmt.Errorf("failed to embed description: %w", err)
	}
	record.TemplateVector = vector

	if err := s.images.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert catalog record: %w", err)
	}

	pointID := deterministicPointID(item.OriginalID, s.collection)
	if err := s.vectors.UpsertImageVector(ctx, pointID, vector, record.ID, item.BrandName, item.Industry); err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}

	return nil
}

// buildDescriptionText assembles the text embedded for a creative. Brand and
// industry are what queries match against; an optional curator description
// adds detail.
func buildDescriptionText(item *IngestItem) string {
	segments := make([]string, 0, 3)
	if item.BrandName != "" {
		segments = append(segments, item.BrandName)
	}
	if item.Industry != "" {
		segments = append(segments, item.Industry)
	}
	if item.Description != "" {
		segments = append(segments, item.Description)
	}
	return strings.Join(segments, "\n")
}

// deterministicPointID derives a stable UUID so re-ingesting the same asset
// overwrites its point instead of duplicating it.
func deterministicPointID(originalID int64, collection string) string {
	name := fmt.Sprintf("%s/%d", collection, originalID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func probeDimensions(data []byte) (int, int, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", err
	}
	return config.Width, config.Height, format, nil
}

func contentTypeFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
