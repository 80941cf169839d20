package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"opsguard/common/model"
)

const (
	// DefaultSummaryChars 摘要中 payload 的截取字符数
	DefaultSummaryChars = 100
	// notificationChars 通知摘要中 payload 的截取字符数
	notificationChars = 50
	latencyIndicator  = "latency"
)

var latencyRe = regexp.MustCompile(`(\d+)\s*ms`)

// BuildSummary "{source} {kind}: {payload 前 n 个字符}"
func BuildSummary(ev *model.RawEvent, n int) string {
	return fmt.Sprintf("%s %s: %s", ev.Source, ev.Kind, firstRunes(ev.Payload, n))
}

// notificationSummary 通知里的短摘要
func notificationSummary(ev *model.RawEvent) string {
	return fmt.Sprintf("%s %s: %s...", ev.Source, ev.Kind, firstRunes(ev.Payload, notificationChars))
}

// ExtractLatency metric 事件中提取第一个毫秒数
func ExtractLatency(ev *model.RawEvent) (float64, bool) {
	if ev.Kind != model.EventKindMetric || !strings.Contains(ev.Payload, latencyIndicator) {
		return 0, false
	}
	m := latencyRe.FindStringSubmatch(ev.Payload)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PayloadOf 确定分类器输入
// JSON 对象且带 message/payload/meta 任一字段按结构化处理，其余按纯文本。
// 结构化时其它字段不丢弃，整体放入 Extra
func PayloadOf(raw string) model.Payload {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return model.PlainText(raw)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return model.PlainText(raw)
	}

	for _, k := range structuredKeys {
		if _, ok := fields[k]; ok {
			return model.Structured{
				Message: jsonText(fields["message"]),
				Payload: jsonText(fields["payload"]),
				Meta:    jsonText(fields["meta"]),
				Extra:   restText(fields),
			}
		}
	}
	return model.PlainText(raw)
}

var structuredKeys = []string{"message", "payload", "meta"}

// restText 除 message/payload/meta 外的字段，按字段名排序编码；不转义 <>&
func restText(fields map[string]json.RawMessage) string {
	rest := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		rest[k] = v
	}
	for _, k := range structuredKeys {
		delete(rest, k)
	}
	if len(rest) == 0 {
		return ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rest); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// jsonText 字符串取原值，其它类型保留 JSON 文本
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
