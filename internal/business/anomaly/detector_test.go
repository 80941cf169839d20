package anomaly

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsguard/common/model"
)

func seed(t *testing.T, d *Detector, service string, values ...float64) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, d.Record(context.Background(), service, model.MetricLatency, v))
	}
}

func TestScoreFarOutlier(t *testing.T) {
	d := NewDetector(NewMemoryStore(), WithCapacity(20))

	// 20 个样本，均值 100，总体标准差 10
	for i := 0; i < 10; i++ {
		seed(t, d, "checkout", 90, 110)
	}

	res, err := d.Score(context.Background(), "checkout", model.MetricLatency, 900)
	require.NoError(t, err)
	require.True(t, res.Sufficient)
	assert.Equal(t, 20, res.Samples)
	assert.InDelta(t, 100, res.Mean, 1e-9)
	assert.InDelta(t, 10, res.StdDev, 1e-9)
	assert.InDelta(t, 80, res.ZScore, 1e-3)
	require.NotNil(t, res.Score())
	assert.Greater(t, *res.Score(), 3.0)
}

func TestScoreInsufficientData(t *testing.T) {
	d := NewDetector(NewMemoryStore())
	assert.Equal(t, 25, d.MinSamples())

	for i := 0; i < 24; i++ {
		seed(t, d, "api", 100)
	}
	res, err := d.Score(context.Background(), "api", model.MetricLatency, 500)
	require.NoError(t, err)
	assert.False(t, res.Sufficient)
	assert.Equal(t, 24, res.Samples)
	assert.Nil(t, res.Score())

	seed(t, d, "api", 100)
	res, err = d.Score(context.Background(), "api", model.MetricLatency, 500)
	require.NoError(t, err)
	assert.True(t, res.Sufficient)
}

func TestMinSamplesFloor(t *testing.T) {
	assert.Equal(t, 10, NewDetector(nil, WithCapacity(4)).MinSamples())
	assert.Equal(t, 10, NewDetector(nil, WithCapacity(20)).MinSamples())
	assert.Equal(t, 50, NewDetector(nil, WithCapacity(100)).MinSamples())
}

func TestConstantWindowDoesNotDivideByZero(t *testing.T) {
	d := NewDetector(NewMemoryStore(), WithCapacity(20))
	for i := 0; i < 20; i++ {
		seed(t, d, "db", 50)
	}
	res, err := d.Score(context.Background(), "db", model.MetricLatency, 50)
	require.NoError(t, err)
	assert.Zero(t, res.ZScore)

	res, err = d.Score(context.Background(), "db", model.MetricLatency, 51)
	require.NoError(t, err)
	assert.Greater(t, res.ZScore, 1e5)
}

func TestWindowNeverExceedsCapacityAndDropsOldest(t *testing.T) {
	store := NewMemoryStore()
	d := NewDetector(store, WithCapacity(5))

	for i := 1; i <= 12; i++ {
		seed(t, d, "svc", float64(i))
		got, err := store.Range(context.Background(), WindowKey("svc", model.MetricLatency), 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), 5)
	}

	got, err := store.Range(context.Background(), WindowKey("svc", model.MetricLatency), 0)
	require.NoError(t, err)
	values := make([]float64, 0, len(got))
	for _, o := range got {
		values = append(values, o.V)
	}
	assert.Equal(t, []float64{12, 11, 10, 9, 8}, values)
}

func TestWindowsAreKeyedByServiceAndMetric(t *testing.T) {
	assert.Equal(t, "win:latency:checkout", WindowKey("checkout", "latency"))

	store := NewMemoryStore()
	d := NewDetector(store)
	seed(t, d, "a", 1)

	got, err := store.Range(context.Background(), WindowKey("b", model.MetricLatency), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWindowExpires(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	d := NewDetector(store, WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	seed(t, d, "svc", 1)
	got, _ := store.Range(context.Background(), WindowKey("svc", model.MetricLatency), 0)
	require.Len(t, got, 1)
	assert.Equal(t, float64(1700000000), got[0].TS)

	now = now.Add(30 * time.Second)
	seed(t, d, "svc", 2)

	now = now.Add(45 * time.Second)
	got, _ = store.Range(context.Background(), WindowKey("svc", model.MetricLatency), 0)
	assert.Len(t, got, 2, "each write refreshes the ttl")

	now = now.Add(time.Minute)
	got, _ = store.Range(context.Background(), WindowKey("svc", model.MetricLatency), 0)
	assert.Empty(t, got)
}

type failingStore struct{}

func (failingStore) Push(context.Context, string, model.Observation, int, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Range(context.Context, string, int) ([]model.Observation, error) {
	return nil, errors.New("connection refused")
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	d := NewDetector(failingStore{})

	err := d.Record(context.Background(), "svc", "latency", 1)
	assert.ErrorContains(t, err, "record svc/latency failed")

	_, err = d.Score(context.Background(), "svc", "latency", 1)
	assert.ErrorContains(t, err, "read window svc/latency failed")
}

func TestScoreReadsAtMostCapacity(t *testing.T) {
	store := NewMemoryStore()

	// 旧配置容量 40 写满，之后容量调小到 20
	wide := NewDetector(store, WithCapacity(40))
	for i := 0; i < 20; i++ {
		seed(t, wide, "checkout", 1000)
	}
	for i := 0; i < 10; i++ {
		seed(t, wide, "checkout", 90, 110)
	}

	narrow := NewDetector(store, WithCapacity(20))
	res, err := narrow.Score(context.Background(), "checkout", model.MetricLatency, 900)
	require.NoError(t, err)
	require.True(t, res.Sufficient)
	assert.Equal(t, 20, res.Samples)
	assert.InDelta(t, 100, res.Mean, 1e-9)
	assert.InDelta(t, 80, res.ZScore, 1e-3)

	all, err := store.Range(context.Background(), WindowKey("checkout", model.MetricLatency), 0)
	require.NoError(t, err)
	assert.Len(t, all, 40)
}
