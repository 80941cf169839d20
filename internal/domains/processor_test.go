package domains

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"opsguard/internal/business/pipeline"
	"opsguard/pkg/errorutil"
	"opsguard/pkg/lmstfyx"
	"opsguard/pkg/logger"
)

func TestParseQueueItem(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int64
		wantTID string
	}{
		{name: "json object", data: `{"id": 42}`, want: 42},
		{name: "json object with fields", data: `{"id":42,"source":"web","type":"log","payload":"x","trace_id":"abc"}`, want: 42, wantTID: "abc"},
		{name: "json string id", data: `{"id":"42"}`, want: 42},
		{name: "bare token", data: `42`, want: 42},
		{name: "quoted token", data: `"42"`, want: 42},
		{name: "padded", data: " 42\n", want: 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ParseQueueItem([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, item.EventID)
			assert.Equal(t, tt.wantTID, item.TraceID)
		})
	}
}

func TestParseQueueItemMalformed(t *testing.T) {
	for _, data := range []string{``, `   `, `{`, `{"source":"web"}`, `{"id":null}`, `{"id":4.2}`, `abc`, `-1`, `0`, `"x"`} {
		t.Run(data, func(t *testing.T) {
			_, err := ParseQueueItem([]byte(data))
			require.Error(t, err)
			assert.Equal(t, errorutil.KindMalformed, errorutil.KindOf(err))
		})
	}
}

type stubProcessor struct {
	got  []int64
	out  *pipeline.Outcome
	boom bool
}

func (s *stubProcessor) Process(_ context.Context, id int64) *pipeline.Outcome {
	if s.boom {
		panic("unexpected")
	}
	s.got = append(s.got, id)
	out := *s.out
	out.EventID = id
	return &out
}

func TestGetProcessActions(t *testing.T) {
	tests := []struct {
		name string
		data string
		out  *pipeline.Outcome
		want lmstfyx.JobRespStatus
	}{
		{
			name: "processed",
			data: `{"id": 42}`,
			out:  &pipeline.Outcome{IncidentID: 7, State: pipeline.StateNotified},
			want: lmstfyx.JobRespStatusSuccess,
		},
		{
			name: "missing event",
			data: `"42"`,
			out:  &pipeline.Outcome{State: pipeline.StateSkipped},
			want: lmstfyx.JobRespStatusSuccess,
		},
		{
			name: "transient failure",
			data: `42`,
			out: &pipeline.Outcome{
				State:    pipeline.StateFailed,
				FailedAt: "embed",
				Err:      errorutil.Transient("embed failed", errors.New("timeout")),
			},
			want: lmstfyx.JobRespStatusRelease,
		},
		{
			name: "permanent failure",
			data: `42`,
			out: &pipeline.Outcome{
				State:    pipeline.StateFailed,
				FailedAt: "panic",
				Err:      errorutil.NonRetriable("panic: boom"),
			},
			want: lmstfyx.JobRespStatusBury,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{out: tt.out}
			fn := GetProcess(logger.FromZap(zaptest.NewLogger(t)), proc)

			resp := fn(context.Background(), &client.Job{ID: "job-1", Data: []byte(tt.data)})

			assert.Equal(t, tt.want, resp.Action)
			assert.Equal(t, []int64{42}, proc.got)

			var report jobReport
			require.NoError(t, json.Unmarshal(resp.Data, &report))
			assert.Equal(t, int64(42), report.EventID)
			assert.Equal(t, string(tt.out.State), report.State)
		})
	}
}

func TestGetProcessBuriesMalformedItems(t *testing.T) {
	proc := &stubProcessor{out: &pipeline.Outcome{}}
	fn := GetProcess(logger.NewNop(), proc)

	resp := fn(context.Background(), &client.Job{ID: "job-1", Data: []byte(`not-an-id`)})

	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
	assert.Empty(t, proc.got)
}

func TestGetProcessRecoversPanics(t *testing.T) {
	fn := GetProcess(logger.NewNop(), &stubProcessor{boom: true})

	var resp *lmstfyx.JobResp
	require.NotPanics(t, func() {
		resp = fn(context.Background(), &client.Job{ID: "job-1", Data: []byte(`1`)})
	})
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
}
