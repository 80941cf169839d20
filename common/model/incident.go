package model

import "time"

// Incident 流水线产出的事故记录
type Incident struct {
	ID           int64      `json:"id"`
	EventID      int64      `json:"event_id"`
	Labels       []string   `json:"labels"`
	SummaryText  string     `json:"summary_text"`
	AnomalyScore *float64   `json:"anomaly_score"`
	Confidence   float64    `json:"confidence"`
	Evidence     []Evidence `json:"evidence"`
	EmbeddingRef string     `json:"embedding_ref,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IndexDocument 写入向量索引的文档
type IndexDocument struct {
	IncidentID int64    `json:"id"`
	Summary    string   `json:"summary"`
	Labels     []string `json:"labels"`
	Service    string   `json:"service"`
	Type       string   `json:"type"`
}

// SearchHit 相似检索结果，Distance 越小越相似
type SearchHit struct {
	IncidentID int64    `json:"id"`
	Summary    string   `json:"summary"`
	Labels     []string `json:"labels"`
	Service    string   `json:"service"`
	Type       string   `json:"type"`
	Distance   float64  `json:"distance"`
}
