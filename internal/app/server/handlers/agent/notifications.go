package agent

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"opsguard/internal/app/server/ginx"
	"opsguard/pkg/errorutil"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// NotificationsResponse 拉取结果（按入队顺序）
type NotificationsResponse struct {
	Status        string            `json:"status"`
	Count         int               `json:"count"`
	Notifications []json.RawMessage `json:"notifications"`
}

// Notifications 弹出待处理通知
// GET /agent/notifications?limit=10
func (h *AgentHandler) Notifications(c *gin.Context) {
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			ginx.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	ctx := c.Request.Context()
	raws, err := h.source.Drain(ctx, limit)
	if err != nil && len(raws) == 0 {
		_ = c.Error(errorutil.Transient("failed to get notifications", err))
		return
	}
	if err != nil {
		h.logger.Warnf(ctx, "[API] Notification drain stopped early after %d items: %v", len(raws), err)
	}

	out := make([]json.RawMessage, 0, len(raws))
	for _, raw := range raws {
		if !json.Valid(raw) {
			h.logger.Warnf(ctx, "[API] Dropping malformed notification: %q", raw)
			continue
		}
		out = append(out, json.RawMessage(raw))
	}

	ginx.Success(c, NotificationsResponse{
		Status:        "success",
		Count:         len(out),
		Notifications: out,
	})
}

// Stream 以 SSE 推送实时事故广播
// GET /agent/notifications/stream
func (h *AgentHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	ch, err := h.source.Listen(ctx)
	if err != nil {
		_ = c.Error(errorutil.Transient("failed to subscribe notifications", err))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("message", gin.H{"type": "connected", "message": "Listening for incidents..."})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		}
	})
}
