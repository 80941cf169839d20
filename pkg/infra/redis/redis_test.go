package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsguard/common/model"
)

func TestPeekAttempts(t *testing.T) {
	assert.Equal(t, 0, peekAttempts([]byte(`{"id": 1}`)))
	assert.Equal(t, 2, peekAttempts([]byte(`{"id": 1, "attempts": 2}`)))
	assert.Equal(t, 0, peekAttempts([]byte(`42`)))
	assert.Equal(t, 0, peekAttempts([]byte(`garbage`)))
}

func TestWithAttempts(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{name: "json object", input: `{"id": 7, "trace_id": "t-1"}`, wantID: `7`},
		{name: "bare number", input: `42`, wantID: `42`},
		{name: "quoted id", input: `"42"`, wantID: `"42"`},
		{name: "not json", input: `abc`, wantID: `"abc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := withAttempts([]byte(tt.input), 1)
			require.NoError(t, err)

			var fields map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(out, &fields))
			assert.JSONEq(t, tt.wantID, string(fields["id"]))
			assert.Equal(t, 1, peekAttempts(out))
		})
	}
}

func TestWithAttemptsKeepsOtherFields(t *testing.T) {
	out, err := withAttempts([]byte(`{"id": 7, "trace_id": "t-1", "attempts": 1}`), 2)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 7, "trace_id": "t-1", "attempts": 2}`, string(out))
}

func TestDecodeObservation(t *testing.T) {
	obs, ok := decodeObservation(`{"ts": 1700000000.5, "v": 120}`)
	require.True(t, ok)
	assert.Equal(t, model.Observation{TS: 1700000000.5, V: 120}, obs)

	obs, ok = decodeObservation(`95.5`)
	require.True(t, ok)
	assert.Equal(t, 95.5, obs.V)

	_, ok = decodeObservation(`not a number`)
	assert.False(t, ok)
}

func TestRangeStop(t *testing.T) {
	assert.Equal(t, int64(-1), rangeStop(0))
	assert.Equal(t, int64(-1), rangeStop(-3))
	assert.Equal(t, int64(0), rangeStop(1))
	assert.Equal(t, int64(49), rangeStop(50))
}
