package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/pkg/core"
)

func TestSessionLifecycle(t *testing.T) {
	b := New()
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Nil(t, b.Session())

	require.NoError(t, b.StartSession(&core.Session{ID: "s1", StartTime: time.Now()}))
	require.NotNil(t, b.Session())
	assert.False(t, b.Finished())

	require.NoError(t, b.FinishSession())
	assert.True(t, b.Finished())
}

func TestFinishSession_NoSession(t *testing.T) {
	b := New()
	assert.Error(t, b.FinishSession())
}

func TestRecordCapture(t *testing.T) {
	b := New()
	require.NoError(t, b.StartSession(&core.Session{ID: "s1"}))

	attempt := &core.CaptureAttempt{ID: "a1", SessionID: "s1", FrameSeq: 3}
	outcome := &core.UploadOutcome{AttemptID: "a1", Status: core.OutcomeSuccess}
	require.NoError(t, b.RecordCapture(attempt, outcome))

	assert.Equal(t, 1, b.CaptureCount())
	assert.Equal(t, "a1", b.Captures[0].Attempt.ID)
	assert.True(t, b.Captures[0].Outcome.Succeeded())
}

func TestRecordCapture_NoSession(t *testing.T) {
	b := New()
	err := b.RecordCapture(&core.CaptureAttempt{ID: "a1"}, &core.UploadOutcome{})
	assert.Error(t, err)
}

func TestRecordPerformance(t *testing.T) {
	b := New()
	require.NoError(t, b.RecordPerformance(&model.ScannerPerformance{TicksProcessed: 10}))
	assert.Len(t, b.Performance, 1)
}
