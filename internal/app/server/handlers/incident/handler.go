package incident

import (
	"context"

	"opsguard/common/model"
	"opsguard/pkg/logger"
)

// IncidentReader 事故查询
type IncidentReader interface {
	GetIncident(ctx context.Context, id int64) (*model.Incident, error)
}

// Embedder 查询文本向量化
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher 向量相似检索
type Searcher interface {
	Query(ctx context.Context, vec []float32, service string, k int) ([]model.SearchHit, error)
}

// IncidentHandler 事故查询与检索
type IncidentHandler struct {
	incidents IncidentReader
	embedder  Embedder
	index     Searcher
	logger    logger.Logger
}

// NewIncidentHandler 创建事故处理器实例
func NewIncidentHandler(incidents IncidentReader, embedder Embedder, index Searcher, log logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		incidents: incidents,
		embedder:  embedder,
		index:     index,
		logger:    log,
	}
}
