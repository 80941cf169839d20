package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PubSub 本地通知通道：LPUSH 到通知列表，同时 PUBLISH 到广播频道
type PubSub struct {
	client  *redis.Client
	list    string
	channel string
}

// NewPubSub 创建通知通道
func NewPubSub(client *redis.Client, list, channel string) *PubSub {
	return &PubSub{
		client:  client,
		list:    list,
		channel: channel,
	}
}

// Name 通道名（日志与指标标签）
func (p *PubSub) Name() string {
	return "local"
}

// Send 投递通知（实现 notify.Channel）
// 列表是必达通道；频道只服务在线订阅者，没有订阅者不算失败
func (p *PubSub) Send(ctx context.Context, payload []byte) error {
	if err := p.client.LPush(ctx, p.list, payload).Err(); err != nil {
		return fmt.Errorf("failed to push notification to %s: %w", p.list, err)
	}
	if p.channel == "" {
		return nil
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", p.channel, err)
	}
	return nil
}

// Drain 按入队顺序弹出最多 limit 条通知（RPOP）
func (p *PubSub) Drain(ctx context.Context, limit int) ([][]byte, error) {
	out := make([][]byte, 0, limit)
	for i := 0; i < limit; i++ {
		raw, err := p.client.RPop(ctx, p.list).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return out, fmt.Errorf("failed to pop notification from %s: %w", p.list, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// Listen 订阅广播频道；ctx 结束时退订并关闭返回的 channel
func (p *PubSub) Listen(ctx context.Context) (<-chan []byte, error) {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe %s: %w", p.channel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
