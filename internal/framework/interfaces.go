package framework

import (
	"context"
	"time"
)

// MessageSource 消息源接口（适配 redis list / lmstfy）
type MessageSource interface {
	// Consume 消费消息（阻塞，直到拉取到消息或超时），超时返回 nil, nil
	Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 确认消息（删除消息）
	Ack(ctx context.Context, queue string, jobID string) error

	// Release 放回队列等待重新投递
	Release(ctx context.Context, msg *Message) error
}

// Logger 日志接口
type Logger interface {
	Debugf(ctx context.Context, format string, args ...interface{})
	Infof(ctx context.Context, format string, args ...interface{})
	Warnf(ctx context.Context, format string, args ...interface{})
	Errorf(ctx context.Context, format string, args ...interface{})
}

// ProcessorFunc 处理函数类型
type ProcessorFunc func(ctx context.Context) error
