package assessment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokou-stm/kalanso/internal/answer"
)

func TestReplay(t *testing.T) {
	sink := &recordingSink{}
	m, err := New(mcqAndNumerical(), Options{Sink: sink})
	require.NoError(t, err)

	script := answer.Script{
		"mcq": {Selected: json.RawMessage(`1`), TimeSpent: ptr(4.0)},
		"num": {Value: json.RawMessage(`"103"`), TimeSpent: ptr(6.5)},
	}
	require.NoError(t, Replay(m, script, t0))

	require.Equal(t, PhaseResults, m.Phase())
	res := m.Result()
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 10, res.TimeTaken)
	assert.Equal(t, t0.Add(10500*time.Millisecond), res.CompletedAt)

	responses := m.Responses()
	require.Len(t, responses, 2)
	assert.Equal(t, 4.0, responses[0].Common().TimeSpent)
	assert.Equal(t, 6.5, responses[1].Common().TimeSpent)
	require.Len(t, sink.completions, 1)
}

func TestReplayMissingAnswer(t *testing.T) {
	m, err := New(mcqAndNumerical(), Options{})
	require.NoError(t, err)

	err = Replay(m, answer.Script{"mcq": {Selected: json.RawMessage(`"2"`)}}, t0)
	require.ErrorIs(t, err, ErrNotSubmittable)
	assert.Contains(t, err.Error(), "question num")
	assert.Equal(t, 1, m.Index())
}
