// Package classifier 基于规则的威胁分类：归一化 → 规则/提示/启发式打分 → 置信度
//
// 分类器是确定性的线性打分器，权重与阈值都是常量，结果只取决于归一化后的文本。
package classifier

import (
	"sort"
	"strings"

	"opsguard/common/model"
)

const (
	// DefaultPayloadLimit 参与分析的最大字符数
	DefaultPayloadLimit = 8000
	// maxEvidence 报告中保留的证据条数
	maxEvidence = 5
)

// Classifier 规则分类器（无状态，可并发使用）
type Classifier struct {
	rules        []Rule
	hints        []Rule
	tokens       []Token
	payloadLimit int
}

// Option 分类器选项
type Option func(*Classifier)

// WithPayloadLimit 设置截断长度
func WithPayloadLimit(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.payloadLimit = n
		}
	}
}

// New 使用内置规则表创建分类器
func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:        defaultRules,
		hints:        defaultHints,
		tokens:       defaultTokens,
		payloadLimit: DefaultPayloadLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify 对载荷分类；结构化载荷先拼接为文本
func (c *Classifier) Classify(p model.Payload) *model.Classification {
	var raw string
	if p != nil {
		raw = p.Flatten()
	}
	return c.ClassifyText(raw)
}

// ClassifyText 对原始文本分类
func (c *Classifier) ClassifyText(raw string) *model.Classification {
	text := Normalize(truncateRunes(raw, c.payloadLimit))
	return c.Evaluate(text)
}

// Evaluate 对已归一化的文本打分
// 命中顺序固定为：规则 → 提示 → 子串 → 启发式，证据排序时同权重保持该顺序
func (c *Classifier) Evaluate(text string) *model.Classification {
	var (
		score    float64
		labels   = make(map[model.Label]struct{})
		evidence = make([]model.Evidence, 0, 8)
	)

	add := func(tag string, weight float64, label model.Label) {
		score += weight
		evidence = append(evidence, model.Evidence{Tag: tag, Weight: round(weight, 2)})
		if label != "" {
			labels[label] = struct{}{}
		}
	}

	if strings.TrimSpace(text) != "" {
		for _, group := range [][]Rule{c.rules, c.hints} {
			for _, r := range group {
				if n := len(r.Pattern.FindAllStringIndex(text, -1)); n > 0 {
					add(r.Tag, r.Weight*float64(n), r.Label)
				}
			}
		}

		for _, tk := range c.tokens {
			if n := strings.Count(text, tk.Needle); n > 0 {
				add(tk.Tag, tk.Weight*float64(n), tk.Label)
			}
		}

		for _, sig := range structuralSignals(text) {
			add(sig.Tag, sig.Weight, "")
		}
	}

	score = round(score, 2)

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Weight > evidence[j].Weight
	})
	if len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}

	return &model.Classification{
		Labels:     sortedLabels(labels),
		Risk:       TierFor(score),
		Score:      score,
		Confidence: Confidence(score),
		Evidence:   evidence,
	}
}

// structuralSignals 与具体模式无关的启发式信号
func structuralSignals(text string) []model.Evidence {
	out := make([]model.Evidence, 0, 3)

	specials := 0
	for _, r := range text {
		if strings.ContainsRune(specialChars, r) {
			specials++
		}
	}
	if specials >= specialBurstMin {
		out = append(out, model.Evidence{
			Tag:    "signal:special-char-burst",
			Weight: minFloat(specialWeightCap, float64(specials)*specialWeightPerHit),
		})
	}

	if strings.Count(text, "'")%2 == 1 || strings.Count(text, `"`)%2 == 1 {
		out = append(out, model.Evidence{Tag: "signal:unbalanced-quotes", Weight: unbalancedQuoteWeight})
	}

	if schemes := len(schemeRe.FindAllStringIndex(text, -1)); schemes >= multiSchemeMin {
		out = append(out, model.Evidence{
			Tag:    "signal:multi-scheme",
			Weight: minFloat(schemeWeightCap, float64(schemes)*schemeWeightPerHit),
		})
	}

	return out
}

func sortedLabels(set map[model.Label]struct{}) []model.Label {
	out := make([]model.Label, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
