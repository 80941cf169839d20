package anomaly

import (
	"context"
	"sync"
	"time"

	"opsguard/common/model"
)

// MemoryStore 进程内窗口存储，单实例部署与测试使用
// 多实例部署必须使用 redis 实现
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	entries  []model.Observation // 最新在前
	expireAt time.Time
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Push 头插并截断，刷新过期时间
func (s *MemoryStore) Push(_ context.Context, key string, obs model.Observation, capacity int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.live(key)
	if w == nil {
		w = &memoryWindow{}
		s.windows[key] = w
	}

	entries := make([]model.Observation, 0, len(w.entries)+1)
	entries = append(entries, obs)
	entries = append(entries, w.entries...)
	if capacity > 0 && len(entries) > capacity {
		entries = entries[:capacity]
	}
	w.entries = entries
	w.expireAt = s.now().Add(ttl)
	return nil
}

// Range 返回窗口副本
func (s *MemoryStore) Range(_ context.Context, key string, limit int) ([]model.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.live(key)
	if w == nil {
		return nil, nil
	}
	entries := w.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]model.Observation, len(entries))
	copy(out, entries)
	return out, nil
}

// live 返回未过期的窗口，过期的直接删除
func (s *MemoryStore) live(key string) *memoryWindow {
	w, ok := s.windows[key]
	if !ok {
		return nil
	}
	if !w.expireAt.IsZero() && !s.now().Before(w.expireAt) {
		delete(s.windows, key)
		return nil
	}
	return w
}
