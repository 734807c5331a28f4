package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Vector is a fixed-length embedding stored as JSON text in the database.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the vector.
//   - error: non-nil if marshaling fails.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// ImageRecord represents an advertisement creative in the catalog.
// Records are read-only from the application's perspective; the ingest
// pipeline is the only writer.
type ImageRecord struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	OriginalID        int64     `gorm:"uniqueIndex:idx_images_original" json:"original_id"`
	ImageURL          string    `gorm:"type:text" json:"imageUrl"`
	ImageWidth        int       `json:"imageWidth"`
	ImageHeight       int       `json:"imageHeight"`
	BrandID           string    `gorm:"type:text;index:idx_images_brand" json:"brandId"`
	BrandName         string    `gorm:"type:text" json:"brandName"`
	BrandImage        string    `gorm:"type:text" json:"brandImage"`
	PerformanceRating float64   `json:"performanceRating"`
	Priority          int       `gorm:"index:idx_images_priority" json:"priority"`
	Industry          string    `gorm:"type:text;index:idx_images_industry" json:"industry"`
	StorageKey        string    `gorm:"type:text" json:"storage_key,omitempty"`
	DisplayURL        string    `gorm:"column:display_url;type:text" json:"display_url"`
	TemplateVector    Vector    `gorm:"type:text" json:"template_vector,omitempty"`
}

// TableName returns the database table name for ImageRecord.
func (ImageRecord) TableName() string {
	return "ad_images"
}

// SimilarityMatch pairs a catalog identifier with a similarity score.
// Produced by the vector lookup and consumed immediately; never persisted.
type SimilarityMatch struct {
	ImageID int64   `json:"image_id"`
	Score   float32 `json:"similarity"`
}
