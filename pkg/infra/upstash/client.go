package upstash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client Upstash REST 客户端：POST {url}/lpush/{list}，body 为 ["<json>"]
type Client struct {
	baseURL string
	token   string
	list    string
	client  *http.Client
}

// NewClient 创建 REST 客户端
func NewClient(baseURL, token, list string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		list:    list,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name 通道名
func (c *Client) Name() string {
	return "upstash"
}

// Send LPUSH 一条通知（实现 notify.Channel）
func (c *Client) Send(ctx context.Context, payload []byte) error {
	body, err := json.Marshal([]string{string(payload)})
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/lpush/" + url.PathEscape(c.list)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upstash request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upstash lpush failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upstash lpush returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
