package event

import (
	"context"

	"opsguard/common/model"
	"opsguard/pkg/logger"
)

// EventWriter 原始事件写入
type EventWriter interface {
	InsertRawEvent(ctx context.Context, ev *model.RawEvent) (int64, error)
}

// Enqueuer 事件入队
type Enqueuer interface {
	Push(ctx context.Context, queue string, data []byte) error
}

// EventHandler 事件接入 HTTP 处理器
type EventHandler struct {
	store     EventWriter
	queue     Enqueuer
	queueName string
	logger    logger.Logger
}

// NewEventHandler 创建事件处理器实例
func NewEventHandler(store EventWriter, queue Enqueuer, queueName string, log logger.Logger) *EventHandler {
	return &EventHandler{
		store:     store,
		queue:     queue,
		queueName: queueName,
		logger:    log,
	}
}
