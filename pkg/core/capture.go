// pkg/core/capture.go
package core

import "time"

// CaptureAttempt is one full-resolution capture handed to the upload client.
// At most one attempt exists between its creation and the resolution of its
// upload plus the cooldown that follows.
type CaptureAttempt struct {
	ID        string
	SessionID string
	FrameSeq  uint64
	CreatedAt time.Time
	// JPEG is the compressed image payload submitted to the backend.
	JPEG []byte
}

// OutcomeStatus distinguishes upload success from failure.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// UploadOutcome is the resolved result of one CaptureAttempt.
type UploadOutcome struct {
	AttemptID string
	Status    OutcomeStatus
	// Reason carries the backend's failure message, verbatim.
	// Empty on success.
	Reason     string
	HTTPStatus int
	Duration   time.Duration
	// Response is the raw backend response body, kept for the journal.
	Response []byte
	// Timeout marks a synthetic failure produced by the client-side
	// upload deadline rather than a backend rejection.
	Timeout bool
}

// Succeeded reports whether the attempt was confirmed by the backend.
func (o UploadOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}
