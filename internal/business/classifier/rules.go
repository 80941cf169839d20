package classifier

import (
	"regexp"

	"opsguard/common/model"
)

// Rule 带权重的正则规则
// 每次（不重叠的）命中都计一次权重
type Rule struct {
	Tag     string
	Pattern *regexp.Regexp
	Weight  float64
	Label   model.Label // 为空表示不贡献标签
}

// Token 子串规则（数据库超时类信号）
type Token struct {
	Tag    string
	Needle string // 小写，匹配归一化后的文本
	Weight float64
	Label  model.Label
}

// 强特征规则
var defaultRules = []Rule{
	// XSS
	{Tag: "XSS:<script>", Pattern: regexp.MustCompile(`<\s*script\b`), Weight: 4.0, Label: model.LabelXSS},
	{Tag: "XSS:on* handler", Pattern: regexp.MustCompile(`\bon(?:error|load)\s*=`), Weight: 3.0, Label: model.LabelXSS},
	{Tag: "XSS:javascript:", Pattern: regexp.MustCompile(`javascript\s*:`), Weight: 2.5, Label: model.LabelXSS},

	// SQLi
	{Tag: "SQLi:UNION SELECT", Pattern: regexp.MustCompile(`\bunion\s+select\b`), Weight: 4.5, Label: model.LabelSQLI},
	{Tag: "SQLi:OR 1=1", Pattern: regexp.MustCompile(`\bor\s+1\s*=\s*1\b`), Weight: 3.5, Label: model.LabelSQLI},
	{Tag: "SQLi:comment", Pattern: regexp.MustCompile(`--\s|;--`), Weight: 2.5, Label: model.LabelSQLI},
	{Tag: "SQLi:DROP", Pattern: regexp.MustCompile(`;\s*drop\b`), Weight: 4.0, Label: model.LabelSQLI},
	{Tag: "SQLi:information_schema", Pattern: regexp.MustCompile(`\binformation_schema\b`), Weight: 2.5, Label: model.LabelSQLI},

	// SSRF
	{Tag: "SSRF:metadata IP", Pattern: regexp.MustCompile(`\b169\.254\.169\.254\b`), Weight: 5.0, Label: model.LabelSSRF},
	{Tag: "SSRF:GCP metadata", Pattern: regexp.MustCompile(`/metadata/computemetadata`), Weight: 3.5, Label: model.LabelSSRF},
	{Tag: "SSRF:gopher", Pattern: regexp.MustCompile(`\bgopher://`), Weight: 3.0, Label: model.LabelSSRF},
	{Tag: "SSRF:file-scheme", Pattern: regexp.MustCompile(`\bfile://`), Weight: 2.5, Label: model.LabelSSRF},
}

// 弱特征，用于佐证
var defaultHints = []Rule{
	{Tag: "SQLi:SELECT FROM", Pattern: regexp.MustCompile(`(?s)\bselect\b.*\bfrom\b`), Weight: 1.0, Label: model.LabelSQLI},
	{Tag: "SQLi:drop table", Pattern: regexp.MustCompile(`\bdrop\s+table\b`), Weight: 1.5, Label: model.LabelSQLI},
	{Tag: "SQLi:load_file(", Pattern: regexp.MustCompile(`\bload_file\s*\(`), Weight: 1.5, Label: model.LabelSQLI},
	{Tag: "XSS:data:text/html", Pattern: regexp.MustCompile(`\bdata:\s*text/html`), Weight: 1.5, Label: model.LabelXSS},
}

// 数据库超时子串
var defaultTokens = []Token{
	{Tag: "DB:timeout", Needle: "dbconnectiontimeout", Weight: 1.0, Label: model.LabelDBTimeout},
	{Tag: "DB:timeout", Needle: "timeout", Weight: 0.5, Label: model.LabelDBTimeout},
}

// 结构性启发式
const (
	specialChars        = `<>'";(){}$`
	specialBurstMin     = 8
	specialWeightPerHit = 0.1
	specialWeightCap    = 2.0

	unbalancedQuoteWeight = 0.8

	multiSchemeMin     = 3
	schemeWeightPerHit = 0.4
	schemeWeightCap    = 1.5
)

var schemeRe = regexp.MustCompile(`\b(?:http|https|file|gopher|ftp)://`)

// 风险等级阈值（作用于四舍五入后的分值）
const (
	highThreshold   = 7.0
	mediumThreshold = 3.0
)

// TierFor 分值到风险等级的映射（全函数）
func TierFor(score float64) model.RiskTier {
	switch {
	case score >= highThreshold:
		return model.RiskHigh
	case score >= mediumThreshold:
		return model.RiskMedium
	case score > 0:
		return model.RiskLow
	default:
		return model.RiskNone
	}
}
