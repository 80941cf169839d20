// Package embedding 摘要向量化：缓存优先，未命中再调用模型
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"opsguard/pkg/errorutil"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

const (
	// DefaultCacheTTL 共享缓存过期时间
	DefaultCacheTTL = 24 * time.Hour
	// defaultLocalSize 进程内缓存条数
	defaultLocalSize = 1024
)

// Model 文本向量模型，输出定长且已 L2 归一化
type Model interface {
	Name() string
	Dim() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache 跨进程共享缓存（redis）
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// Service 带缓存的向量服务
type Service struct {
	model  Model
	cache  Cache
	local  *lru.Cache[string, []float32]
	ttl    time.Duration
	logger logger.Logger
}

// ServiceOption 服务选项
type ServiceOption func(*Service)

// WithCache 设置共享缓存
func WithCache(c Cache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// WithCacheTTL 设置共享缓存过期时间
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLocalSize 设置进程内缓存大小，0 表示关闭
func WithLocalSize(n int) ServiceOption {
	return func(s *Service) {
		if n <= 0 {
			s.local = nil
			return
		}
		s.local, _ = lru.New[string, []float32](n)
	}
}

// NewService 创建向量服务
func NewService(m Model, log logger.Logger, opts ...ServiceOption) *Service {
	local, _ := lru.New[string, []float32](defaultLocalSize)
	s := &Service{
		model:  m,
		local:  local,
		ttl:    DefaultCacheTTL,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey emb:{model}:{sha256(去首尾空白后的文本)}
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return fmt.Sprintf("emb:%s:%s", model, hex.EncodeToString(sum[:]))
}

// ModelName 模型标识
func (s *Service) ModelName() string {
	return s.model.Name()
}

// Embed 返回文本向量
// 缓存读写失败只记日志；模型失败返回 Transient 错误
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(s.model.Name(), text)

	if s.local != nil {
		if vec, ok := s.local.Get(key); ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("local_hit").Inc()
			return vec, nil
		}
	}

	if s.cache != nil {
		vec, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
			s.logger.Warnf(ctx, "[Embedding] cache get failed, key=%s: %v", key, err)
		case ok && len(vec) == s.model.Dim():
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			s.remember(key, vec)
			return vec, nil
		default:
			metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	vec, err := s.model.Embed(ctx, strings.TrimSpace(text))
	if err != nil {
		return nil, errorutil.Transient(fmt.Sprintf("embed with %s failed", s.model.Name()), err)
	}
	if len(vec) != s.model.Dim() {
		return nil, errorutil.NonRetriable(fmt.Sprintf("model %s returned dim %d, want %d", s.model.Name(), len(vec), s.model.Dim()))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, vec, s.ttl); err != nil {
			s.logger.Warnf(ctx, "[Embedding] cache set failed, key=%s: %v", key, err)
		}
	}
	s.remember(key, vec)
	return vec, nil
}

func (s *Service) remember(key string, vec []float32) {
	if s.local != nil {
		s.local.Add(key, vec)
	}
}
