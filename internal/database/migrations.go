package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/orgcache/internal/models"
)

// AutoMigrate creates the cache schema when it is missing. Existing tables are left intact.
func AutoMigrate(db *gorm.DB) error {
	if err := requireHandle(db); err != nil {
		return err
	}
	return db.AutoMigrate(&models.CacheRecord{})
}
