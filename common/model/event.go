package model

import (
	"strings"
	"time"
)

// EventKind 事件类型
type EventKind string

const (
	EventKindLog    EventKind = "log"
	EventKindMetric EventKind = "metric"
)

// Valid 是否为已知类型
func (k EventKind) Valid() bool {
	return k == EventKindLog || k == EventKindMetric
}

// RawEvent 原始事件（入库后不可变）
type RawEvent struct {
	ID        int64                  `json:"id"`
	Source    string                 `json:"source"`
	Kind      EventKind              `json:"type"`
	Payload   string                 `json:"payload"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// Payload 分类器输入：纯文本或结构化三元组
// 结构化输入在归一化入口处一次性拼接成文本
type Payload interface {
	Flatten() string
}

// PlainText 纯文本输入
type PlainText string

// Flatten 原样返回
func (p PlainText) Flatten() string {
	return string(p)
}

// Structured 结构化输入，缺失字段按空串处理
// Extra 为其余字段的 JSON 文本（含字段名），同样参与分类
type Structured struct {
	Message string `json:"message"`
	Payload string `json:"payload"`
	Meta    string `json:"meta"`
	Extra   string `json:"extra,omitempty"`
}

// Flatten 以空格拼接 message / payload / meta / extra
func (s Structured) Flatten() string {
	return strings.Join([]string{s.Message, s.Payload, s.Meta, s.Extra}, " ")
}
