package models

import "gorm.io/datatypes"

// CacheRecordTable is the table holding cached organization documents.
const CacheRecordTable = "objects"

// CacheRecord is an organization document fetched from the registry. Records are written
// once and never updated.
type CacheRecord struct {
	OrgID      string         `gorm:"column:org_id;primaryKey;size:64" json:"org_id"`
	JSONObject datatypes.JSON `gorm:"column:json_object;type:text;not null" json:"json_object"`
}

// TableName pins the table name independent of gorm's naming strategy.
func (CacheRecord) TableName() string {
	return CacheRecordTable
}
