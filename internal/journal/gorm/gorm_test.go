package gormjournal

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chifascan/scanner/internal/database"
	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/pkg/core"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB(t.TempDir() + "/journal.db")
	require.NoError(t, err)

	b := New(db, zerolog.Nop(), true)
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestStartSession_CreatesRow(t *testing.T) {
	b := newTestBackend(t)

	session := &core.Session{ID: "sess-1", StartTime: time.Now()}
	require.NoError(t, b.StartSession(session))

	var row model.ScanSession
	require.NoError(t, b.db.Where("session_id = ?", "sess-1").First(&row).Error)
	assert.Equal(t, "sess-1", row.SessionID)
	assert.False(t, row.FinishedAt.Valid)
}

func TestStartSession_Idempotent(t *testing.T) {
	b := newTestBackend(t)

	session := &core.Session{ID: "sess-1", StartTime: time.Now()}
	require.NoError(t, b.StartSession(session))
	require.NoError(t, b.StartSession(session))

	var count int64
	require.NoError(t, b.db.Model(&model.ScanSession{}).
		Where("session_id = ?", "sess-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFinishSession_StampsEndTime(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartSession(&core.Session{ID: "sess-1", StartTime: time.Now()}))
	require.NoError(t, b.FinishSession())

	var row model.ScanSession
	require.NoError(t, b.db.Where("session_id = ?", "sess-1").First(&row).Error)
	assert.True(t, row.FinishedAt.Valid)
}

func TestRecordCapture(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartSession(&core.Session{ID: "sess-1", StartTime: time.Now()}))

	attempt := &core.CaptureAttempt{
		ID:        "a1",
		SessionID: "sess-1",
		FrameSeq:  12,
		CreatedAt: time.Now(),
		JPEG:      make([]byte, 2048),
	}
	outcome := &core.UploadOutcome{
		AttemptID:  "a1",
		Status:     core.OutcomeSuccess,
		HTTPStatus: 200,
		Duration:   150 * time.Millisecond,
		Response:   []byte(`{"status":"success"}`),
	}
	require.NoError(t, b.RecordCapture(attempt, outcome))

	var rec model.CaptureRecord
	require.NoError(t, b.db.Where("attempt_id = ?", "a1").First(&rec).Error)
	assert.Equal(t, "success", rec.Status)
	assert.Equal(t, uint64(12), rec.FrameSeq)
	assert.Equal(t, 200, rec.HTTPStatus)
	assert.Equal(t, 2048, rec.ImageBytes)
	assert.InDelta(t, 150.0, rec.DurationMs, 0.001)

	var row model.ScanSession
	require.NoError(t, b.db.Where("session_id = ?", "sess-1").First(&row).Error)
	assert.Equal(t, uint(1), row.CaptureCount)
	assert.Equal(t, uint(1), row.SuccessCount)
}

func TestRecordCapture_FailureDoesNotCountSuccess(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartSession(&core.Session{ID: "sess-1", StartTime: time.Now()}))

	attempt := &core.CaptureAttempt{ID: "a2", SessionID: "sess-1", CreatedAt: time.Now()}
	outcome := &core.UploadOutcome{
		AttemptID: "a2",
		Status:    core.OutcomeFailure,
		Reason:    "Vignette illisible",
	}
	require.NoError(t, b.RecordCapture(attempt, outcome))

	var row model.ScanSession
	require.NoError(t, b.db.Where("session_id = ?", "sess-1").First(&row).Error)
	assert.Equal(t, uint(1), row.CaptureCount)
	assert.Equal(t, uint(0), row.SuccessCount)

	var rec model.CaptureRecord
	require.NoError(t, b.db.Where("attempt_id = ?", "a2").First(&rec).Error)
	assert.Equal(t, "Vignette illisible", rec.Reason)
}

func TestRecordCapture_NoSession(t *testing.T) {
	b := newTestBackend(t)

	err := b.RecordCapture(&core.CaptureAttempt{ID: "a3"}, &core.UploadOutcome{AttemptID: "a3"})
	assert.Error(t, err)
}

func TestNewPostgres_FallsBackWhenUnreachable(t *testing.T) {
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	t.Cleanup(func() {
		viper.Set("db.host", "localhost")
		viper.Set("db.port", "5432")
	})

	b, err := NewPostgres(zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, b.sqlite)

	// The fallback store is usable as a journal.
	require.NoError(t, b.StartSession(&core.Session{ID: "sess-fb", StartTime: time.Now()}))

	var row model.ScanSession
	require.NoError(t, b.db.Where("session_id = ?", "sess-fb").First(&row).Error)
	assert.Equal(t, "sess-fb", row.SessionID)
}

func TestRecordPerformance(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartSession(&core.Session{ID: "sess-1", StartTime: time.Now()}))

	perf := &model.ScannerPerformance{
		FramesDelivered: 100,
		TicksProcessed:  95,
		LockPhase:       "searching",
	}
	require.NoError(t, b.RecordPerformance(perf))

	var count int64
	require.NoError(t, b.db.Model(&model.ScannerPerformance{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
