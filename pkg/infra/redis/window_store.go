package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"opsguard/common/model"
	"opsguard/pkg/errorutil"
)

// WindowStore 异常检测窗口（实现 anomaly.WindowStore）
// 写入使用 MULTI/EXEC：LPUSH → LTRIM → EXPIRE，多实例并发写同一 key 也不会超过容量
type WindowStore struct {
	client *redis.Client
}

// NewWindowStore 创建窗口存储
func NewWindowStore(client *redis.Client) *WindowStore {
	return &WindowStore{client: client}
}

// Push 写入最新观测
func (s *WindowStore) Push(ctx context.Context, key string, obs model.Observation, capacity int, ttl time.Duration) error {
	entry, err := json.Marshal(obs)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, entry)
		pipe.LTrim(ctx, key, 0, int64(capacity-1))
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return errorutil.Transient("redis window push failed", err)
	}
	return nil
}

// Range 读取最新的 limit 条（最新在前），limit<=0 读整个列表；无法解析的条目跳过
func (s *WindowStore) Range(ctx context.Context, key string, limit int) ([]model.Observation, error) {
	entries, err := s.client.LRange(ctx, key, 0, rangeStop(limit)).Result()
	if err != nil {
		return nil, errorutil.Transient("redis window range failed", err)
	}

	out := make([]model.Observation, 0, len(entries))
	for _, e := range entries {
		if obs, ok := decodeObservation(e); ok {
			out = append(out, obs)
		}
	}
	return out, nil
}

// rangeStop LRANGE 的结束下标
func rangeStop(limit int) int64 {
	if limit <= 0 {
		return -1
	}
	return int64(limit - 1)
}

// decodeObservation 兼容 {"ts":..,"v":..} 与裸数值两种条目
func decodeObservation(entry string) (model.Observation, bool) {
	var obs model.Observation
	if err := json.Unmarshal([]byte(entry), &obs); err == nil {
		return obs, true
	}
	if v, err := strconv.ParseFloat(entry, 64); err == nil {
		return model.Observation{V: v}, true
	}
	return model.Observation{}, false
}
