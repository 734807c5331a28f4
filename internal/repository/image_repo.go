package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/beamhq/adgallery/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImageRepository handles catalog data operations for ad creatives.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImageRepository: repository instance bound to db.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// List retrieves catalog records ordered by display priority (descending).
// Records without a display URL are excluded. A non-empty searchQuery adds a
// case-insensitive substring filter across brand name and industry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//   - searchQuery: optional substring filter; empty means all.
// Returns:
//   - []domain.ImageRecord: matching records in display order.
//   - error: non-nil if the query fails.
func (r *ImageRepository) List(ctx context.Context, limit, offset int, searchQuery string) ([]domain.ImageRecord, error) {
	var images []domain.ImageRecord
	query := r.db.WithContext(ctx).
		Where("display_url IS NOT NULL AND display_url <> ''")

	if trimmed := strings.TrimSpace(searchQuery); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		query = query.Where("LOWER(brand_name) LIKE ? OR LOWER(industry) LIKE ?", pattern, pattern)
	}

	if err := query.
		Order("priority DESC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// GetByIDsByPriority retrieves records for the given ID set, ordered by
// display priority (descending). Similarity decides membership, priority
// decides display order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: catalog IDs to fetch.
// Returns:
//   - []domain.ImageRecord: matching records in priority order.
//   - error: non-nil if the query fails.
func (r *ImageRepository) GetByIDsByPriority(ctx context.Context, ids []int64) ([]domain.ImageRecord, error) {
	if len(ids) == 0 {
		return []domain.ImageRecord{}, nil
	}
	var images []domain.ImageRecord
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("priority DESC").
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to get images by IDs: %w", err)
	}
	return images, nil
}

// GetByID retrieves a single catalog record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: catalog ID.
// Returns:
//   - *domain.ImageRecord: record if found.
//   - error: non-nil if lookup fails.
func (r *ImageRepository) GetByID(ctx context.Context, id int64) (*domain.ImageRecord, error) {
	var image domain.ImageRecord
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Upsert creates or updates a catalog record keyed by its original ID.
// Used only by the ingest pipeline; the API treats the catalog as read-only.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - image: record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ImageRepository) Upsert(ctx context.Context, image *domain.ImageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "original_id"}},
		UpdateAll: true,
	}).Create(image).Error
}

// Count returns the number of displayable catalog records.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of records with a display URL.
//   - error: non-nil if the query fails.
func (r *ImageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.ImageRecord{}).
		Where("display_url IS NOT NULL AND display_url <> ''").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
