package model

import "fmt"

// Label 威胁标签
type Label string

const (
	LabelXSS       Label = "XSS"
	LabelSQLI      Label = "SQLI"
	LabelSSRF      Label = "SSRF"
	LabelDBTimeout Label = "DB_TIMEOUT"
)

// RiskTier 风险等级（按分值全序）
type RiskTier string

const (
	RiskNone   RiskTier = "NONE"
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Rank 用于比较风险等级
func (t RiskTier) Rank() int {
	switch t {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// AtLeast 是否不低于 other
func (t RiskTier) AtLeast(other RiskTier) bool {
	return t.Rank() >= other.Rank()
}

// Evidence 命中的信号及权重
type Evidence struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

// String 形如 "SQLi:OR 1=1 (+3.5)"
func (e Evidence) String() string {
	return fmt.Sprintf("%s (+%g)", e.Tag, e.Weight)
}

// Classification 分类结果，只由归一化后的文本决定
type Classification struct {
	Labels     []Label    `json:"labels"` // 排序后输出
	Risk       RiskTier   `json:"risk"`
	Score      float64    `json:"score"`      // 2 位小数
	Confidence float64    `json:"confidence"` // 3 位小数
	Evidence   []Evidence `json:"evidence"`   // 最多 5 条，按权重降序
}

// HasLabel 是否包含标签
func (c *Classification) HasLabel(l Label) bool {
	for _, x := range c.Labels {
		if x == l {
			return true
		}
	}
	return false
}

// LabelStrings 标签转字符串切片（持久化用）
func (c *Classification) LabelStrings() []string {
	out := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		out = append(out, string(l))
	}
	return out
}
