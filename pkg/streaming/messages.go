package streaming

import (
	"encoding/json"

	"github.com/chifascan/scanner/pkg/core"
)

// Message type constants matching the monitor streaming protocol.
const (
	TypeStartSession  = "start_session"
	TypeFinishSession = "finish_session"
	TypeLockProgress  = "lock_progress"
	TypeCapture       = "capture"
	TypeOutcome       = "outcome"
	TypeStatus        = "status"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the monitor's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a new scanning session to the monitor.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// LockProgressPayload carries the stability-lock progress for live display.
type LockProgressPayload struct {
	Metric   float64 `json:"metric"`
	Progress float64 `json:"progress"`
	Phase    string  `json:"phase"`
}

// CapturePayload announces that a capture attempt was created.
type CapturePayload struct {
	AttemptID string `json:"attemptId"`
	FrameSeq  uint64 `json:"frameSeq"`
	SizeBytes int    `json:"sizeBytes"`
}

// OutcomePayload carries a resolved upload outcome.
type OutcomePayload struct {
	AttemptID string `json:"attemptId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Count     int    `json:"count"`
}

// StatusPayload mirrors the operator-facing status line.
type StatusPayload struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}
