package event

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"opsguard/common/model"
	"opsguard/internal/app/server/ginx"
	"opsguard/internal/app/server/middlewares"
	"opsguard/pkg/errorutil"
	"opsguard/pkg/logger"
)

// CreateEventRequest 事件接入请求
type CreateEventRequest struct {
	Source   string                 `json:"source" binding:"required,max=128"`
	Type     string                 `json:"type" binding:"required,oneof=log metric"`
	Payload  string                 `json:"payload" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// CreateEventResponse 事件接入响应
type CreateEventResponse struct {
	Status  string `json:"status"`
	EventID int64  `json:"event_id"`
	Message string `json:"message"`
}

// queueMessage 入队消息，worker 只依赖 id（trace_id 可选）
type queueMessage struct {
	ID       int64                  `json:"id"`
	Source   string                 `json:"source"`
	Type     string                 `json:"type"`
	Payload  string                 `json:"payload"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	TraceID  string                 `json:"trace_id,omitempty"`
}

// Create 接入事件：落库后入队
// POST /events
func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	ctx := c.Request.Context()
	ev := &model.RawEvent{
		Source:   req.Source,
		Kind:     model.EventKind(req.Type),
		Payload:  req.Payload,
		Metadata: req.Metadata,
	}
	eventID, err := h.store.InsertRawEvent(ctx, ev)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ctx = logger.WithEventID(ctx, eventID)

	data, err := json.Marshal(queueMessage{
		ID:       eventID,
		Source:   req.Source,
		Type:     req.Type,
		Payload:  req.Payload,
		Metadata: req.Metadata,
		TraceID:  middlewares.TraceID(c),
	})
	if err != nil {
		_ = c.Error(errorutil.NonRetriable(err.Error()))
		return
	}
	if err := h.queue.Push(ctx, h.queueName, data); err != nil {
		h.logger.Errorf(ctx, "[API] Event %d stored but enqueue failed: %v", eventID, err)
		_ = c.Error(errorutil.Transient("event stored but enqueue failed", err))
		return
	}

	h.logger.Infof(ctx, "[API] Event %d queued on %s", eventID, h.queueName)
	ginx.Accepted(c, CreateEventResponse{
		Status:  "queued",
		EventID: eventID,
		Message: "Event queued for processing",
	})
}
