package classifier

import "math"

// 逻辑斯蒂曲线参数：斜率与中点（score=5 时置信度约 0.5）
const (
	DefaultSlope    = 0.6
	DefaultMidpoint = 5.0
)

// Confidence 将无上界的累加分映射到 [0,1]，保留 3 位小数
func Confidence(score float64) float64 {
	return ConfidenceWith(score, DefaultSlope, DefaultMidpoint)
}

// ConfidenceWith 自定义斜率与中点
func ConfidenceWith(score, k, x0 float64) float64 {
	c := 1.0 / (1.0 + math.Exp(-k*(score-x0)))
	return round(c, 3)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
