package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"opsguard/internal/framework"
	"opsguard/pkg/errorutil"
)

// Queue 基于 list 的事件队列：生产者 LPUSH，消费者 BRPOP（破坏性出队，多实例互斥）
type Queue struct {
	client *redis.Client
}

// NewQueue 创建队列
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Push 入队
func (q *Queue) Push(ctx context.Context, queue string, data []byte) error {
	if err := q.client.LPush(ctx, queue, data).Err(); err != nil {
		return errorutil.Transient("redis lpush failed", err)
	}
	return nil
}

// Consume 阻塞出队（实现 MessageSource 接口），超时返回 nil, nil
func (q *Queue) Consume(ctx context.Context, queue string, timeout time.Duration, _ time.Duration) (*framework.Message, error) {
	res, err := q.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis brpop failed: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis brpop returned %d elements", len(res))
	}

	data := []byte(res[1])
	return &framework.Message{
		ID:       uuid.New().String(),
		Queue:    res[0],
		Data:     data,
		Attempts: peekAttempts(data),
		Extra:    make(map[string]interface{}),
	}, nil
}

// Ack BRPOP 已删除消息，无需确认
func (q *Queue) Ack(context.Context, string, string) error {
	return nil
}

// Release 带上投递次数重新入队（排到队尾）
func (q *Queue) Release(ctx context.Context, msg *framework.Message) error {
	data, err := withAttempts(msg.Data, msg.Attempts+1)
	if err != nil {
		return fmt.Errorf("rewrite queue item failed: %w", err)
	}
	return q.Push(ctx, msg.Queue, data)
}

// Len 队列长度
func (q *Queue) Len(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, queue).Result()
}

type attemptsProbe struct {
	Attempts int `json:"attempts"`
}

// peekAttempts 读取 JSON 消息中的 attempts 字段，其它格式视为首次投递
func peekAttempts(data []byte) int {
	var p attemptsProbe
	if err := json.Unmarshal(data, &p); err != nil {
		return 0
	}
	return p.Attempts
}

// withAttempts 写入 attempts 字段；裸 id 消息转换为 {"id": ..., "attempts": n}
func withAttempts(data []byte, attempts int) ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		id := json.RawMessage(data)
		if !json.Valid(data) {
			quoted, err := json.Marshal(string(data))
			if err != nil {
				return nil, err
			}
			id = quoted
		}
		fields = map[string]json.RawMessage{"id": id}
	}

	n, err := json.Marshal(attempts)
	if err != nil {
		return nil, err
	}
	fields["attempts"] = n
	return json.Marshal(fields)
}
