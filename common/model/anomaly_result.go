package model

// AnomalyResult 异常检测结果
// Sufficient=false 表示样本不足，不是错误
type AnomalyResult struct {
	Service    string  `json:"service"`
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Samples    int     `json:"samples"`
	Sufficient bool    `json:"sufficient"`
	Mean       float64 `json:"mean,omitempty"`
	StdDev     float64 `json:"std_dev,omitempty"`
	ZScore     float64 `json:"z_score,omitempty"`
}

// Score 样本不足时返回 nil
func (r *AnomalyResult) Score() *float64 {
	if r == nil || !r.Sufficient {
		return nil
	}
	z := r.ZScore
	return &z
}

// Observation 窗口中的一次观测
type Observation struct {
	TS float64 `json:"ts"` // unix 秒
	V  float64 `json:"v"`
}

// 指标名常量
const (
	MetricLatency = "latency"
)
