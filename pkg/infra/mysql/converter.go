package mysql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"opsguard/common/entity"
	"opsguard/common/model"
	"opsguard/internal/business/embedding"
)

func rawEventToEntity(ev *model.RawEvent) (*entity.RawEvent, error) {
	var meta datatypes.JSON
	if ev.Metadata != nil {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		meta = b
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &entity.RawEvent{
		ID:        ev.ID,
		Source:    ev.Source,
		Type:      string(ev.Kind),
		Payload:   ev.Payload,
		Metadata:  meta,
		CreatedAt: createdAt,
	}, nil
}

func rawEventFromEntity(e *entity.RawEvent) (*model.RawEvent, error) {
	ev := &model.RawEvent{
		ID:        e.ID,
		Source:    e.Source,
		Kind:      model.EventKind(e.Type),
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
	if len(e.Metadata) > 0 && string(e.Metadata) != "null" {
		if err := json.Unmarshal(e.Metadata, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata of event %d: %w", e.ID, err)
		}
	}
	return ev, nil
}

func incidentToEntity(inc *model.Incident) (*entity.Incident, error) {
	labels := inc.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal labels: %w", err)
	}
	evidence := inc.Evidence
	if evidence == nil {
		evidence = []model.Evidence{}
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	createdAt := inc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	e := &entity.Incident{
		ID:           inc.ID,
		EventID:      inc.EventID,
		Labels:       labelsJSON,
		SummaryText:  inc.SummaryText,
		AnomalyScore: inc.AnomalyScore,
		Confidence:   inc.Confidence,
		Evidence:     evidenceJSON,
		CreatedAt:    createdAt,
	}
	if inc.EmbeddingRef != "" {
		ref := inc.EmbeddingRef
		e.EmbeddingRef = &ref
	}
	return e, nil
}

func incidentFromEntity(e *entity.Incident) (*model.Incident, error) {
	inc := &model.Incident{
		ID:           e.ID,
		EventID:      e.EventID,
		SummaryText:  e.SummaryText,
		AnomalyScore: e.AnomalyScore,
		Confidence:   e.Confidence,
		CreatedAt:    e.CreatedAt,
	}
	if len(e.Labels) > 0 {
		if err := json.Unmarshal(e.Labels, &inc.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels of incident %d: %w", e.ID, err)
		}
	}
	if len(e.Evidence) > 0 && string(e.Evidence) != "null" {
		if err := json.Unmarshal(e.Evidence, &inc.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence of incident %d: %w", e.ID, err)
		}
	}
	if e.EmbeddingRef != nil {
		inc.EmbeddingRef = *e.EmbeddingRef
	}
	return inc, nil
}

// memoryItemID 索引条目 ID 即事故 ID
func memoryItemID(incidentID int64) string {
	return strconv.FormatInt(incidentID, 10)
}

func memoryItemFromDoc(doc *model.IndexDocument, vec []float32, now time.Time) (*entity.MemoryItem, error) {
	labels := doc.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}
	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return &entity.MemoryItem{
		ID:           memoryItemID(doc.IncidentID),
		Summary:      doc.Summary,
		Labels:       labelsJSON,
		Service:      doc.Service,
		IncidentType: doc.Type,
		Embedding:    vecJSON,
		UpdatedAt:    now,
	}, nil
}

// rankItems 按余弦距离升序取前 k 条，距离相同按事故 ID 升序；无法解析的条目跳过
func rankItems(items []entity.MemoryItem, query []float32, k int) []model.SearchHit {
	hits := make([]model.SearchHit, 0, len(items))
	for i := range items {
		item := &items[i]
		id, err := strconv.ParseInt(item.ID, 10, 64)
		if err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal(item.Embedding, &vec); err != nil {
			continue
		}
		var labels []string
		_ = json.Unmarshal(item.Labels, &labels)

		hits = append(hits, model.SearchHit{
			IncidentID: id,
			Summary:    item.Summary,
			Labels:     labels,
			Service:    item.Service,
			Type:       item.IncidentType,
			Distance:   embedding.CosineDistance(query, vec),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].IncidentID < hits[j].IncidentID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
