package entity

import (
	"time"

	"gorm.io/datatypes"
)

// RawEvent 原始事件实体
type RawEvent struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Source    string         `gorm:"column:source;type:varchar(128);not null;index:idx_source"`
	Type      string         `gorm:"column:type;type:varchar(16);not null"`
	Payload   string         `gorm:"column:payload;type:mediumtext"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:json"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_created_at"`
}

// TableName 指定表名
func (RawEvent) TableName() string {
	return "raw_events"
}
