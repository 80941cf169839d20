package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody 错误响应体截取长度
const maxErrorBody = 512

// HTTPModel 远端推理服务（text-embeddings-inference 风格）
// 请求 POST {endpoint} {"inputs": text}，响应 [[float]] 或 [float]
type HTTPModel struct {
	name     string
	endpoint string
	token    string
	dim      int
	client   *http.Client
}

// NewHTTPModel 创建远端模型
func NewHTTPModel(name, endpoint, token string, dim int, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPModel{
		name:     name,
		endpoint: endpoint,
		token:    token,
		dim:      dim,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name 模型标识
func (m *HTTPModel) Name() string {
	return m.name
}

// Dim 向量维度
func (m *HTTPModel) Dim() int {
	return m.dim
}

type embedRequest struct {
	Inputs string `json:"inputs"`
}

// Embed 调用远端服务
func (m *HTTPModel) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending embed request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embed response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, fmt.Errorf("embed endpoint returned status %d: %s", resp.StatusCode, raw)
	}

	vec, err := decodeVector(raw)
	if err != nil {
		return nil, err
	}
	if len(vec) != m.dim {
		return nil, fmt.Errorf("embed endpoint returned dim %d, want %d", len(vec), m.dim)
	}
	return Normalize(vec), nil
}

// decodeVector 兼容批量 [[...]] 与单条 [...] 两种响应
func decodeVector(raw []byte) ([]float32, error) {
	var batch [][]float32
	if err := json.Unmarshal(raw, &batch); err == nil {
		if len(batch) == 0 {
			return nil, fmt.Errorf("embed endpoint returned empty batch")
		}
		return batch[0], nil
	}

	var single []float32
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return single, nil
}
