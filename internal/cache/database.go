package cache

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/orgcache/internal/models"
)

// DatabaseStore implements Store on the primary SQL database (table "objects").
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

// Get retrieves the document stored for key.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errStoreNotInitialised
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var record models.CacheRecord
	err := s.db.WithContext(ctx).Take(&record, "org_id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %q: %w", key, err)
	}

	return []byte(record.JSONObject), true, nil
}

// Put inserts the document unless a record for key already exists.
func (s *DatabaseStore) Put(ctx context.Context, key string, value []byte) error {
	if s == nil {
		return errStoreNotInitialised
	}
	if err := validateEntry(key, value); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := models.CacheRecord{
		OrgID:      key,
		JSONObject: datatypes.JSON(value),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoNothing: true,
		}).Create(&record).Error
	if err != nil && !isUniqueConstraintError(err) {
		return fmt.Errorf("cache: put %q: %w", key, err)
	}
	return nil
}

// Count returns the number of cached records.
func (s *DatabaseStore) Count(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errStoreNotInitialised
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CacheRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("cache: count records: %w", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	if s == nil {
		return errStoreNotInitialised
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
