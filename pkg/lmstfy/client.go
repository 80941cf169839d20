package lmstfy

import (
	"context"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"

	"opsguard/internal/framework"
	"opsguard/pkg/errorutil"
)

// defaultTries 发布时的最大投递次数（由 lmstfy 服务端计数）
const defaultTries = 3

// Client Lmstfy 客户端封装
type Client struct {
	cli       *client.LmstfyClient
	namespace string
	tries     uint16
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace string, token string) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("lmstfy host is required")
	}
	cli := client.NewLmstfyClient(host, port, namespace, token)
	return &Client{
		cli:       cli,
		namespace: namespace,
		tries:     defaultTries,
	}, nil
}

// WithTries 设置发布时的最大投递次数
func (c *Client) WithTries(tries int) *Client {
	if tries > 0 {
		c.tries = uint16(tries)
	}
	return c
}

// Consume 消费消息（实现 MessageSource 接口）
func (c *Client) Consume(_ context.Context, queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	timeoutSec := uint32(timeout.Seconds())
	ttrSec := uint32(ttr.Seconds())

	job, err := c.cli.Consume(queue, ttrSec, timeoutSec)
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}

	// 超时未拉到消息
	if job == nil {
		return nil, nil
	}

	return &framework.Message{
		ID:    job.ID,
		Queue: job.Queue,
		Data:  job.Data,
		Extra: map[string]interface{}{"namespace": c.namespace},
	}, nil
}

// Ack 确认消息（实现 MessageSource 接口）
func (c *Client) Ack(_ context.Context, queue string, jobID string) error {
	if err := c.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}

// Release 不确认即可：TTR 到期后服务端重新投递，投递次数由 tries 限制
func (c *Client) Release(context.Context, *framework.Message) error {
	return nil
}

// Push 发布事件（API 入队）
func (c *Client) Push(_ context.Context, queue string, data []byte) error {
	if err := c.Publish(queue, data, 0, 0); err != nil {
		return errorutil.Transient("lmstfy publish failed", err)
	}
	return nil
}

// Publish 发布消息
func (c *Client) Publish(queue string, data []byte, ttl, delay uint32) error {
	_, err := c.cli.Publish(queue, data, ttl, c.tries, delay)
	if err != nil {
		return fmt.Errorf("lmstfy publish failed: %w", err)
	}
	return nil
}
