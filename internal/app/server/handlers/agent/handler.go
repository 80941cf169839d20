package agent

import (
	"context"

	"opsguard/pkg/logger"
)

// NotificationSource 通知列表 + 实时广播
type NotificationSource interface {
	Drain(ctx context.Context, limit int) ([][]byte, error)
	Listen(ctx context.Context) (<-chan []byte, error)
}

// AgentHandler 供 agent 拉取事故通知
type AgentHandler struct {
	source NotificationSource
	logger logger.Logger
}

// NewAgentHandler 创建处理器实例
func NewAgentHandler(source NotificationSource, log logger.Logger) *AgentHandler {
	return &AgentHandler{
		source: source,
		logger: log,
	}
}
