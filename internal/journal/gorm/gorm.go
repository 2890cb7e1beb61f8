// Package gormjournal implements the journal on any GORM-backed database.
// SQLite and Postgres share this code; the driver-specific pieces live in
// their own packages.
package gormjournal

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chifascan/scanner/internal/database"
	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/pkg/core"
)

// Backend writes journal rows through GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger

	mu      sync.Mutex
	session *model.ScanSession
	sqlite  bool
}

// New wraps an existing GORM connection.
func New(db *gorm.DB, log zerolog.Logger, sqlite bool) *Backend {
	return &Backend{
		db:     db,
		log:    log.With().Str("component", "journal").Logger(),
		sqlite: sqlite,
	}
}

// NewPostgres connects through the database manager, which falls back to
// an in-memory SQLite store when Postgres is unreachable, and seeds the
// station info row on first run.
func NewPostgres(log zerolog.Logger) (*Backend, error) {
	mgr := database.NewManager(log)
	if err := mgr.Connect(); err != nil {
		return nil, fmt.Errorf("connecting journal database: %w", err)
	}
	if err := mgr.Setup(); err != nil {
		return nil, fmt.Errorf("preparing journal schema: %w", err)
	}
	return New(mgr.DB, log, mgr.ShouldSaveLocal), nil
}

// Init migrates the journal schema.
func (b *Backend) Init() error {
	models := model.DatabaseModels
	if b.sqlite {
		models = model.DatabaseModelsSQLite
	}
	if err := b.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrating journal schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartSession creates (or reuses) the session row for this visit.
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := model.ScanSession{
		SessionID: session.ID,
		StartedAt: session.StartTime,
	}
	if err := b.db.Where(model.ScanSession{SessionID: session.ID}).
		FirstOrCreate(&row).Error; err != nil {
		return fmt.Errorf("creating session row: %w", err)
	}
	b.session = &row
	return nil
}

// FinishSession stamps the session row's end time.
func (b *Backend) FinishSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.db.Model(b.session).
		Update("finished_at", time.Now()).Error
	b.session = nil
	return err
}

// RecordCapture journals one resolved capture attempt and bumps the
// session's counters.
func (b *Backend) RecordCapture(attempt *core.CaptureAttempt, outcome *core.UploadOutcome) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no active session")
	}

	rec := model.CaptureRecord{
		ScanSessionID: session.ID,
		AttemptID:     attempt.ID,
		FrameSeq:      attempt.FrameSeq,
		CapturedAt:    attempt.CreatedAt,
		Status:        string(outcome.Status),
		Reason:        outcome.Reason,
		HTTPStatus:    outcome.HTTPStatus,
		DurationMs:    float32(outcome.Duration.Seconds() * 1000),
		Timeout:       outcome.Timeout,
		ImageBytes:    len(attempt.JPEG),
		Response:      datatypes.JSON(outcome.Response),
	}
	if err := b.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("creating capture record: %w", err)
	}

	updates := map[string]any{"capture_count": gorm.Expr("capture_count + 1")}
	if outcome.Succeeded() {
		updates["success_count"] = gorm.Expr("success_count + 1")
	}
	return b.db.Model(session).Updates(updates).Error
}

// RecordLockProgress is a no-op for the database journal; per-tick lock
// traffic belongs to the streaming backend and the metrics pipeline.
func (b *Backend) RecordLockProgress(metric float64, progress float64, phase string) error {
	return nil
}

// RecordPerformance journals one performance sample.
func (b *Backend) RecordPerformance(perf *model.ScannerPerformance) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	if session != nil {
		perf.ScanSessionID = session.ID
	}
	if perf.Time.IsZero() {
		perf.Time = time.Now()
	}
	return b.db.Create(perf).Error
}

// RecordStatus is a no-op for the database journal.
func (b *Backend) RecordStatus(message string, severity string) error {
	return nil
}
