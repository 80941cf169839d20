package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsguard/common/model"
)

func TestClassifyExamples(t *testing.T) {
	c := New()

	tests := []struct {
		name       string
		text       string
		wantLabels []model.Label
		wantRisk   model.RiskTier
		wantScore  float64
	}{
		{
			name:       "tautology injection",
			text:       "' OR 1=1 --",
			wantLabels: []model.Label{model.LabelSQLI},
			wantRisk:   model.RiskMedium,
			wantScore:  4.3, // OR 1=1 (3.5) + unbalanced quote (0.8)
		},
		{
			name:       "double encoded script tag",
			text:       "q=%253Cscript%253Ealert(1)",
			wantLabels: []model.Label{model.LabelXSS},
			wantRisk:   model.RiskMedium,
			wantScore:  4.0,
		},
		{
			name:       "html escaped script",
			text:       "&lt;script&gt;alert(1)&lt;/script&gt;",
			wantLabels: []model.Label{model.LabelXSS},
			wantRisk:   model.RiskMedium,
			wantScore:  4.0,
		},
		{
			name:       "metadata service",
			text:       "GET http://169.254.169.254/latest/meta-data/",
			wantLabels: []model.Label{model.LabelSSRF},
			wantRisk:   model.RiskMedium,
			wantScore:  5.0,
		},
		{
			name:       "db timeout",
			text:       "DBConnectionTimeout after 30s",
			wantLabels: []model.Label{model.LabelDBTimeout},
			wantRisk:   model.RiskLow,
			wantScore:  1.5,
		},
		{
			name:       "fullwidth select from",
			text:       "ＳＥＬＥＣＴ * ＦＲＯＭ users",
			wantLabels: []model.Label{model.LabelSQLI},
			wantRisk:   model.RiskLow,
			wantScore:  1.0,
		},
		{
			name:       "benign log line",
			text:       "user 1234 logged in from web",
			wantLabels: []model.Label{},
			wantRisk:   model.RiskNone,
			wantScore:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyText(tt.text)
			assert.Equal(t, tt.wantLabels, got.Labels)
			assert.Equal(t, tt.wantRisk, got.Risk)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, Confidence(got.Score), got.Confidence)
		})
	}
}

func TestRepeatedScriptTagsSaturate(t *testing.T) {
	got := New().ClassifyText(strings.Repeat("<script>", 10))

	assert.Equal(t, model.RiskHigh, got.Risk)
	assert.Greater(t, got.Confidence, 0.9)
	assert.True(t, got.HasLabel(model.LabelXSS))
	require.NotEmpty(t, got.Evidence)
	assert.Equal(t, "XSS:<script>", got.Evidence[0].Tag)
	assert.Equal(t, 40.0, got.Evidence[0].Weight)
}

func TestEmptyText(t *testing.T) {
	for _, text := range []string{"", "   \t\n  "} {
		got := New().ClassifyText(text)
		assert.Equal(t, model.RiskNone, got.Risk)
		assert.Zero(t, got.Score)
		assert.Empty(t, got.Evidence)
		assert.Empty(t, got.Labels)
		assert.Equal(t, Confidence(0), got.Confidence)
	}
}

func TestEvidenceTopFiveByWeight(t *testing.T) {
	text := "<script> onerror= javascript: union select or 1=1 ; drop 169.254.169.254"
	got := New().ClassifyText(text)

	require.Len(t, got.Evidence, 5)
	tags := make([]string, 0, 5)
	for _, e := range got.Evidence {
		tags = append(tags, e.Tag)
	}
	assert.Equal(t, []string{
		"SSRF:metadata IP",
		"SQLi:UNION SELECT",
		"XSS:<script>", // 同权重按声明顺序
		"SQLi:DROP",
		"SQLi:OR 1=1",
	}, tags)
	assert.Equal(t, 26.5, got.Score)
	assert.Equal(t, model.RiskHigh, got.Risk)
	assert.Equal(t, []model.Label{model.LabelSQLI, model.LabelSSRF, model.LabelXSS}, got.Labels)
}

func TestEvidenceTiesKeepDeclarationOrder(t *testing.T) {
	got := New().ClassifyText("javascript:alert(1) file:///etc/passwd")

	require.Len(t, got.Evidence, 2)
	assert.Equal(t, "XSS:javascript:", got.Evidence[0].Tag)
	assert.Equal(t, "SSRF:file-scheme", got.Evidence[1].Tag)
	assert.Equal(t, []model.Label{model.LabelSSRF, model.LabelXSS}, got.Labels)
}

func TestStructuralSignals(t *testing.T) {
	got := New().ClassifyText(`a=${x};b=(y);c={z};d=<w>`)
	assert.Contains(t, got.Evidence, model.Evidence{Tag: "signal:special-char-burst", Weight: 1.2})

	got = New().ClassifyText("mirror http://a http://b ftp://c")
	assert.Contains(t, got.Evidence, model.Evidence{Tag: "signal:multi-scheme", Weight: 1.2})
	assert.Empty(t, got.Labels)
	assert.Equal(t, model.RiskLow, got.Risk)

	got = New().ClassifyText(`say "hi`)
	assert.Equal(t, []model.Evidence{{Tag: "signal:unbalanced-quotes", Weight: 0.8}}, got.Evidence)
}

func TestStructuredPayloadFlattening(t *testing.T) {
	c := New()

	got := c.Classify(model.Structured{Message: "login failed", Payload: "' OR 1=1 --"})
	assert.True(t, got.HasLabel(model.LabelSQLI))

	got = c.Classify(model.Structured{})
	assert.Equal(t, model.RiskNone, got.Risk)

	got = c.Classify(nil)
	assert.Equal(t, model.RiskNone, got.Risk)

	assert.Equal(t, c.ClassifyText("<script>"), c.Classify(model.PlainText("<script>")))
}

func TestPayloadTruncation(t *testing.T) {
	text := strings.Repeat("a", DefaultPayloadLimit) + "<script>"
	assert.Equal(t, model.RiskNone, New().ClassifyText(text).Risk)

	got := New(WithPayloadLimit(DefaultPayloadLimit+8)).ClassifyText(text)
	assert.Equal(t, model.RiskMedium, got.Risk)
}

func TestClassificationIsDeterministic(t *testing.T) {
	c := New()
	text := "GET /?q=%27%20UNION%20SELECT%20password%20FROM%20users--%20 HTTP/1.1"
	first := c.ClassifyText(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.ClassifyText(text))
	}
	assert.True(t, first.HasLabel(model.LabelSQLI))
	assert.True(t, first.Risk.AtLeast(model.RiskMedium))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, model.RiskNone, TierFor(0))
	assert.Equal(t, model.RiskLow, TierFor(0.01))
	assert.Equal(t, model.RiskLow, TierFor(2.99))
	assert.Equal(t, model.RiskMedium, TierFor(3.0))
	assert.Equal(t, model.RiskMedium, TierFor(6.99))
	assert.Equal(t, model.RiskHigh, TierFor(7.0))
}
