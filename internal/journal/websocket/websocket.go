package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/pkg/core"
	"github.com/chifascan/scanner/pkg/streaming"
)

// Config holds WebSocket journal configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams journal events over WebSocket to a live monitor. Unlike
// the database backends it retains nothing locally; a lost message is
// acceptable, the monitor is a viewing aid, not the system of record.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket journal backend.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		conn: newConnection(log.With().Str("component", "journal:websocket").Logger()),
		cfg:  cfg,
	}
}

// Init connects to the monitor.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the monitor.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession announces the session and waits for the monitor's ack.
func (b *Backend) StartSession(session *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: session})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// FinishSession sends finish_session and waits for the monitor's ack.
func (b *Backend) FinishSession() error {
	data, err := marshalEnvelope(streaming.TypeFinishSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeFinishSession, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// RecordCapture streams the attempt announcement and its outcome.
func (b *Backend) RecordCapture(attempt *core.CaptureAttempt, outcome *core.UploadOutcome) error {
	if err := b.sendEnvelope(streaming.TypeCapture, streaming.CapturePayload{
		AttemptID: attempt.ID,
		FrameSeq:  attempt.FrameSeq,
		SizeBytes: len(attempt.JPEG),
	}); err != nil {
		return err
	}
	return b.sendEnvelope(streaming.TypeOutcome, streaming.OutcomePayload{
		AttemptID: outcome.AttemptID,
		Status:    string(outcome.Status),
		Reason:    outcome.Reason,
	})
}

// RecordLockProgress streams the per-tick lock progress for live display.
func (b *Backend) RecordLockProgress(metric float64, progress float64, phase string) error {
	return b.sendEnvelope(streaming.TypeLockProgress, streaming.LockProgressPayload{
		Metric:   metric,
		Progress: progress,
		Phase:    phase,
	})
}

// RecordPerformance is a no-op; performance samples go to the metrics
// pipeline, not the monitor.
func (b *Backend) RecordPerformance(perf *model.ScannerPerformance) error {
	return nil
}

// RecordStatus streams the operator-facing status line.
func (b *Backend) RecordStatus(message string, severity string) error {
	return b.sendEnvelope(streaming.TypeStatus, streaming.StatusPayload{
		Message:  message,
		Severity: severity,
	})
}
