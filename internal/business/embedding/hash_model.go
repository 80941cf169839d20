package embedding

import (
	"context"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashModel 特征哈希模型：词与相邻词对哈希到固定维度，离线/开发环境使用
type HashModel struct {
	name string
	dim  int
}

// NewHashModel 创建哈希模型
func NewHashModel(dim int) *HashModel {
	return &HashModel{name: "hash-v1", dim: dim}
}

// Name 模型标识（参与缓存 key）
func (m *HashModel) Name() string {
	return m.name
}

// Dim 向量维度
func (m *HashModel) Dim() int {
	return m.dim
}

// Embed 计算哈希向量
func (m *HashModel) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.dim)
	tokens := strings.Fields(strings.ToLower(text))
	for i, tok := range tokens {
		m.add(vec, tok, 1)
		if i > 0 {
			m.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return Normalize(vec), nil
}

func (m *HashModel) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(m.dim)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
