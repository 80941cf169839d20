package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"opsguard/common/entity"
	"opsguard/common/model"
)

func TestRawEventRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := &model.RawEvent{
		Source:    "payments",
		Kind:      model.EventKindMetric,
		Payload:   "latency 950ms",
		Metadata:  map[string]interface{}{"region": "eu"},
		CreatedAt: created,
	}

	e, err := rawEventToEntity(ev)
	require.NoError(t, err)
	assert.Equal(t, "metric", e.Type)
	assert.JSONEq(t, `{"region":"eu"}`, string(e.Metadata))

	e.ID = 9
	back, err := rawEventFromEntity(e)
	require.NoError(t, err)
	assert.Equal(t, int64(9), back.ID)
	assert.Equal(t, model.EventKindMetric, back.Kind)
	assert.Equal(t, "eu", back.Metadata["region"])
	assert.Equal(t, created, back.CreatedAt)
}

func TestRawEventWithoutMetadata(t *testing.T) {
	e, err := rawEventToEntity(&model.RawEvent{Source: "web", Kind: model.EventKindLog})
	require.NoError(t, err)
	assert.Nil(t, e.Metadata)
	assert.False(t, e.CreatedAt.IsZero())

	back, err := rawEventFromEntity(e)
	require.NoError(t, err)
	assert.Nil(t, back.Metadata)
}

func TestIncidentConversion(t *testing.T) {
	score := 79.99
	inc := &model.Incident{
		EventID:      3,
		Labels:       []string{"SQLI"},
		SummaryText:  "web log: ' OR 1=1 --",
		AnomalyScore: &score,
		Confidence:   0.35,
		Evidence:     []model.Evidence{{Tag: "SQLi:OR 1=1", Weight: 3.5}},
	}

	e, err := incidentToEntity(inc)
	require.NoError(t, err)
	assert.JSONEq(t, `["SQLI"]`, string(e.Labels))
	assert.Nil(t, e.EmbeddingRef)

	back, err := incidentFromEntity(e)
	require.NoError(t, err)
	assert.Equal(t, inc.Labels, back.Labels)
	assert.Equal(t, inc.Evidence, back.Evidence)
	require.NotNil(t, back.AnomalyScore)
	assert.Equal(t, score, *back.AnomalyScore)
	assert.Empty(t, back.EmbeddingRef)
}

func TestIncidentWithoutLabels(t *testing.T) {
	e, err := incidentToEntity(&model.Incident{EventID: 1, SummaryText: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(e.Labels))
	assert.JSONEq(t, `[]`, string(e.Evidence))
}

func memoryItem(t *testing.T, id int64, service string, vec []float32) entity.MemoryItem {
	t.Helper()
	item, err := memoryItemFromDoc(&model.IndexDocument{
		IncidentID: id,
		Summary:    "incident",
		Labels:     []string{"XSS"},
		Service:    service,
		Type:       "log",
	}, vec, time.Now())
	require.NoError(t, err)
	return *item
}

func TestRankItems(t *testing.T) {
	items := []entity.MemoryItem{
		memoryItem(t, 3, "web", []float32{0, 1}),
		memoryItem(t, 2, "web", []float32{1, 0}),
		memoryItem(t, 1, "web", []float32{1, 0}),
		memoryItem(t, 4, "web", []float32{-1, 0}),
	}

	hits := rankItems(items, []float32{1, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(1), hits[0].IncidentID)
	assert.Equal(t, int64(2), hits[1].IncidentID)
	assert.Equal(t, int64(3), hits[2].IncidentID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1, hits[2].Distance, 1e-9)
	assert.Equal(t, []string{"XSS"}, hits[0].Labels)
}

func TestRankItemsSkipsBrokenEntries(t *testing.T) {
	broken := memoryItem(t, 5, "web", []float32{1, 0})
	broken.Embedding = datatypes.JSON(`not json`)
	badID := memoryItem(t, 6, "web", []float32{1, 0})
	badID.ID = "abc"

	hits := rankItems([]entity.MemoryItem{broken, badID, memoryItem(t, 7, "web", []float32{1, 0})}, []float32{1, 0}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(7), hits[0].IncidentID)
}
