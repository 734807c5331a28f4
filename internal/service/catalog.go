package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/beamhq/adgallery/internal/logger"
	"github.com/beamhq/adgallery/internal/storage"
)

// CatalogService is the non-semantic listing path. It is used when no query
// text is present and as the fallback when semantic search fails.
type CatalogService struct {
	images  ImageStore
	storage storage.ObjectStorage
}

// NewCatalogService creates a new catalog fetcher.
// Parameters:
//   - images: catalog store.
//   - objectStorage: optional storage client for display URL generation.
// Returns:
//   - *CatalogService: initialized service.
func NewCatalogService(images ImageStore, objectStorage storage.ObjectStorage) *CatalogService {
	return &CatalogService{
		images:  images,
		storage: objectStorage,
	}
}

// List retrieves a page of catalog records ordered by display priority.
// A non-empty searchQuery adds a case-insensitive substring filter over
// brand name and industry.
//
// hasMore is an approximation: a full page is assumed to mean more records
// exist. A final page whose size exactly equals perPage therefore reports
// hasMore=true even when nothing follows.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - page: 1-indexed page number; values below 1 are clamped to 1.
//   - perPage: page size; non-positive uses the default, large values are capped.
//   - searchQuery: optional substring filter.
// Returns:
//   - *SearchResponse: page of records plus pagination metadata.
//   - error: non-nil if the query fails.
func (s *CatalogService) List(ctx context.Context, page, perPage int, searchQuery string) (*SearchResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	offset := (page - 1) * perPage

	images, err := s.images.List(ctx, perPage, offset, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch images: %w", err)
	}

	for i := range images {
		s.fillDisplayURL(&images[i])
	}

	if trimmed := strings.TrimSpace(searchQuery); trimmed != "" {
		logger.CtxDebug(ctx, "Catalog listing with filter: query=%q, page=%d, returned=%d", trimmed, page, len(images))
	}

	return &SearchResponse{
		Images:     images,
		HasMore:    len(images) == perPage,
		TotalCount: len(images),
	}, nil
}

// Get retrieves a single catalog record for the detail view.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: catalog ID.
// Returns:
//   - *domain.ImageRecord: record if found.
//   - error: non-nil if lookup fails.
func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.ImageRecord, error) {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillDisplayURL(image)
	return image, nil
}

// fillDisplayURL derives the display URL from the storage key when the
// record does not carry one already.
func (s *CatalogService) fillDisplayURL(image *domain.ImageRecord) {
	if image.DisplayURL == "" && image.StorageKey != "" && s.storage != nil {
		image.DisplayURL = s.storage.GetURL(image.StorageKey)
	}
}
