package entity

import (
	"time"

	"gorm.io/datatypes"
)

// MemoryItem 向量索引条目（每个事故一条，按 ID upsert）
type MemoryItem struct {
	ID           string         `gorm:"column:id;primaryKey;type:varchar(64)"`
	Summary      string         `gorm:"column:summary;type:text"`
	Labels       datatypes.JSON `gorm:"column:labels;type:json"`
	Service      string         `gorm:"column:service;type:varchar(128);index:idx_service"`
	IncidentType string         `gorm:"column:incident_type;type:varchar(16)"`
	Embedding    datatypes.JSON `gorm:"column:embedding;type:json;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (MemoryItem) TableName() string {
	return "memory_item"
}
