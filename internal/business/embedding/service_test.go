package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"opsguard/pkg/errorutil"
	"opsguard/pkg/logger"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	args := m.Called(ctx, key)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	return m.Called(ctx, key, vec, ttl).Error(0)
}

type countingModel struct {
	calls int
	vec   []float32
	err   error
}

func (m *countingModel) Name() string { return "test-model" }
func (m *countingModel) Dim() int     { return len(m.vec) }

func (m *countingModel) Embed(context.Context, string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vec, nil
}

func testLogger(t *testing.T) logger.Logger {
	return logger.FromZap(zaptest.NewLogger(t))
}

func TestCacheKey(t *testing.T) {
	want := "emb:m:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	assert.Equal(t, want, CacheKey("m", "hello"))
	assert.Equal(t, want, CacheKey("m", "  hello\n"))
	assert.NotEqual(t, want, CacheKey("other", "hello"))
}

func TestEmbedCacheHitSkipsModel(t *testing.T) {
	m := &countingModel{vec: []float32{1, 0}}
	cache := &mockCache{}
	key := CacheKey("test-model", "checkout log: boom")
	cache.On("Get", mock.Anything, key).Return([]float32{0, 1}, true, nil).Once()

	s := NewService(m, testLogger(t), WithCache(cache), WithLocalSize(0))
	vec, err := s.Embed(context.Background(), "checkout log: boom")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
	assert.Zero(t, m.calls)
	cache.AssertExpectations(t)
}

func TestEmbedCacheMissStoresResult(t *testing.T) {
	m := &countingModel{vec: []float32{0.6, 0.8}}
	cache := &mockCache{}
	key := CacheKey("test-model", "text")
	cache.On("Get", mock.Anything, key).Return(nil, false, nil).Once()
	cache.On("Set", mock.Anything, key, []float32{0.6, 0.8}, time.Hour).Return(nil).Once()

	s := NewService(m, testLogger(t), WithCache(cache), WithCacheTTL(time.Hour))
	vec, err := s.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
	assert.Equal(t, 1, m.calls)

	// 进程内缓存命中，不再访问共享缓存
	_, err = s.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls)
	cache.AssertExpectations(t)
}

func TestEmbedCacheFailuresAreNotFatal(t *testing.T) {
	m := &countingModel{vec: []float32{1}}
	cache := &mockCache{}
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	s := NewService(m, testLogger(t), WithCache(cache), WithLocalSize(0))
	vec, err := s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 1, m.calls)
}

func TestEmbedModelFailureIsTransient(t *testing.T) {
	m := &countingModel{vec: []float32{1}, err: errors.New("503 from model server")}
	s := NewService(m, testLogger(t))

	_, err := s.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errorutil.IsRetryable(err))
	assert.Equal(t, errorutil.KindTransient, errorutil.KindOf(err))
	assert.ErrorContains(t, err, "503 from model server")
}

func TestHashModel(t *testing.T) {
	m := NewHashModel(64)
	a, err := m.Embed(context.Background(), "checkout log: timeout talking to db")
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), "checkout log: timeout talking to db")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)

	c, err := m.Embed(context.Background(), "payments metric: latency 900ms")
	require.NoError(t, err)
	assert.Greater(t, CosineDistance(a, c), CosineDistance(a, b))

	empty, err := m.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 64), empty)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
}
