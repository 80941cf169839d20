package domains

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"opsguard/pkg/errorutil"
)

// QueueItem 事件队列消息
// 当前格式为 JSON 对象 {"id": 42, ...}；兼容历史格式：裸 id 42 或 "42"
type QueueItem struct {
	EventID int64
	TraceID string
}

// queueEnvelope JSON 格式的消息体，其余字段（source/type/payload…）忽略
type queueEnvelope struct {
	ID      json.RawMessage `json:"id"`
	TraceID string          `json:"trace_id"`
}

// ParseQueueItem 解析队列消息，失败返回 Malformed 错误
func ParseQueueItem(data []byte) (*QueueItem, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil, errorutil.Malformed("empty queue item", nil)
	}

	if raw[0] == '{' {
		var env queueEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, errorutil.Malformed("invalid queue item json", err)
		}
		if len(env.ID) == 0 {
			return nil, errorutil.Malformed("queue item has no id", nil)
		}
		id, err := parseID(env.ID)
		if err != nil {
			return nil, err
		}
		return &QueueItem{EventID: id, TraceID: env.TraceID}, nil
	}

	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	return &QueueItem{EventID: id}, nil
}

// parseID 接受数字或数字字符串
func parseID(raw []byte) (int64, error) {
	token := string(raw)
	if strings.HasPrefix(token, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errorutil.Malformed("invalid id string", err)
		}
		token = strings.TrimSpace(s)
	}

	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, errorutil.Malformed(fmt.Sprintf("invalid event id %q", token), err)
	}
	if id <= 0 {
		return 0, errorutil.Malformed(fmt.Sprintf("invalid event id %d", id), nil)
	}
	return id, nil
}
