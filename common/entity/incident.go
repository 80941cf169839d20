package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Incident 事故实体
type Incident struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	EventID      int64          `gorm:"column:event_id;not null;index:idx_event_id"`
	Labels       datatypes.JSON `gorm:"column:labels;type:json;not null"`
	SummaryText  string         `gorm:"column:summary_text;type:text;not null"`
	AnomalyScore *float64       `gorm:"column:anomaly_score"`
	Confidence   float64        `gorm:"column:confidence;not null"`
	Evidence     datatypes.JSON `gorm:"column:evidence;type:json"`
	EmbeddingRef *string        `gorm:"column:embedding_ref;type:varchar(64)"` // 仅索引步骤写入
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index:idx_created_at"`
}

// TableName 指定表名
func (Incident) TableName() string {
	return "incidents"
}
