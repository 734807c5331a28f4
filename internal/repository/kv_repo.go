package repository

import (
	"errors"

	"github.com/beamhq/adgallery/internal/viewgate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is a durable key-value row backing client-side view state.
type KVEntry struct {
	Key   string `gorm:"type:text;primaryKey" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// KVRepository is a durable key-value store backing the view gate.
type KVRepository struct {
	db *gorm.DB
}

var _ viewgate.Store = (*KVRepository)(nil)

// NewKVRepository creates a new KVRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *KVRepository: repository instance bound to db.
func NewKVRepository(db *gorm.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get reads a value by key.
// Parameters:
//   - key: entry key.
// Returns:
//   - string: stored value, empty when absent.
//   - bool: true if the key exists.
//   - error: non-nil if the lookup fails.
func (r *KVRepository) Get(key string) (string, bool, error) {
	var entry KVEntry
	err := r.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set writes a value by key, overwriting any existing entry.
// Parameters:
//   - key: entry key.
//   - value: value to store.
// Returns:
//   - error: non-nil if the write fails.
func (r *KVRepository) Set(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&KVEntry{Key: key, Value: value}).Error
}
