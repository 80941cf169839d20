package pipeline

import (
	"context"

	"opsguard/common/model"
)

// EventStore 原始事件读取；不存在时返回 errorutil.NotFound
type EventStore interface {
	GetRawEvent(ctx context.Context, id int64) (*model.RawEvent, error)
}

// IncidentStore 事故持久化（单事务，提交后返回 id）
type IncidentStore interface {
	InsertIncident(ctx context.Context, inc *model.Incident) (int64, error)
}

// Classifier 威胁分类
type Classifier interface {
	Classify(p model.Payload) *model.Classification
}

// AnomalyDetector 滑动窗口异常检测
type AnomalyDetector interface {
	Score(ctx context.Context, service, metric string, value float64) (*model.AnomalyResult, error)
	Record(ctx context.Context, service, metric string, value float64) error
}

// Embedder 摘要向量化（带缓存）
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer 向量索引
type Indexer interface {
	Upsert(ctx context.Context, doc *model.IndexDocument, vec []float32) error
}

// Notifier 通知投递
type Notifier interface {
	NewIncident(incidentID int64, source, summary string) *model.Notification
	Publish(ctx context.Context, n *model.Notification) error
}
