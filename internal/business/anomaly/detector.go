// Package anomaly 基于滑动窗口的 z-score 异常检测
package anomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"opsguard/common/model"
)

const (
	// DefaultCapacity 窗口容量
	DefaultCapacity = 50
	// DefaultTTL 窗口过期时间（每次写入刷新）
	DefaultTTL = time.Hour
	// minSamplesFloor 最少样本数下限
	minSamplesFloor = 10
	// stdEpsilon 防止除零
	stdEpsilon = 1e-6
)

// WindowStore 窗口存储
// Push 必须在存储层原子完成 写入最新 → 截断到容量 → 刷新过期，不依赖进程内锁
type WindowStore interface {
	Push(ctx context.Context, key string, obs model.Observation, capacity int, ttl time.Duration) error
	// Range 返回最新的至多 limit 条观测，最新在前；limit<=0 表示全部
	Range(ctx context.Context, key string, limit int) ([]model.Observation, error)
}

// WindowKey 窗口 key：win:{metric}:{service}
func WindowKey(service, metric string) string {
	return fmt.Sprintf("win:%s:%s", metric, service)
}

// Detector 异常检测器
type Detector struct {
	store    WindowStore
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// Option 检测器选项
type Option func(*Detector)

// WithCapacity 设置窗口容量
func WithCapacity(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.capacity = n
		}
	}
}

// WithTTL 设置窗口过期时间
func WithTTL(ttl time.Duration) Option {
	return func(d *Detector) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// NewDetector 创建检测器
func NewDetector(store WindowStore, opts ...Option) *Detector {
	d := &Detector{
		store:    store,
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Capacity 窗口容量
func (d *Detector) Capacity() int {
	return d.capacity
}

// MinSamples 打分所需的最少样本数：max(10, capacity/2)
func (d *Detector) MinSamples() int {
	if half := d.capacity / 2; half > minSamplesFloor {
		return half
	}
	return minSamplesFloor
}

// Record 写入一次观测
func (d *Detector) Record(ctx context.Context, service, metric string, value float64) error {
	obs := model.Observation{
		TS: float64(d.now().UnixNano()) / float64(time.Second),
		V:  value,
	}
	if err := d.store.Push(ctx, WindowKey(service, metric), obs, d.capacity, d.ttl); err != nil {
		return fmt.Errorf("record %s/%s failed: %w", service, metric, err)
	}
	return nil
}

// Score 计算 value 相对窗口的 z-score
// 样本不足时返回 Sufficient=false 的结果，不是错误
func (d *Detector) Score(ctx context.Context, service, metric string, value float64) (*model.AnomalyResult, error) {
	// 容量调小后旧窗口可能更长，只取最新 capacity 条
	history, err := d.store.Range(ctx, WindowKey(service, metric), d.capacity)
	if err != nil {
		return nil, fmt.Errorf("read window %s/%s failed: %w", service, metric, err)
	}

	res := &model.AnomalyResult{
		Service: service,
		Metric:  metric,
		Value:   value,
		Samples: len(history),
	}
	if len(history) < d.MinSamples() {
		return res, nil
	}

	mean, std := meanStd(history)
	res.Sufficient = true
	res.Mean = mean
	res.StdDev = std
	res.ZScore = (value - mean) / (std + stdEpsilon)
	return res, nil
}

// meanStd 均值与总体标准差
func meanStd(obs []model.Observation) (float64, float64) {
	var sum float64
	for _, o := range obs {
		sum += o.V
	}
	mean := sum / float64(len(obs))

	var sq float64
	for _, o := range obs {
		diff := o.V - mean
		sq += diff * diff
	}
	return mean, math.Sqrt(sq / float64(len(obs)))
}
