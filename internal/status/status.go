// Package status holds the operator-facing feedback state: the current
// message, its severity color, the stabilization progress bar value and the
// confirmation tone. Written by the pipeline, read by the monitor and the
// streaming backend.
package status

import "sync"

// Severity maps to the feedback color shown to the operator.
type Severity string

const (
	SeverityNeutral Severity = "neutral"
	SeverityLocking Severity = "locking"
	SeveritySuccess Severity = "success"
	SeverityFailure Severity = "failure"
	SeverityFatal   Severity = "fatal"
)

// Operator-facing messages. The scanning stations run in French.
const (
	MsgSearching   = "Recherche de vignette..."
	MsgLocking     = "Vignette détectée, stabilisation..."
	MsgUploading   = "Envoi en cours..."
	MsgSuccess     = "Vignette enregistrée"
	MsgNoCamera    = "Caméra indisponible"
	MsgUnreachable = "Serveur injoignable"
)

// Beeper plays the confirmation tone on a successful upload.
type Beeper interface {
	Beep()
}

// NopBeeper is used when no audio device is wired in.
type NopBeeper struct{}

func (NopBeeper) Beep() {}

// Record is a snapshot of the feedback state.
type Record struct {
	Message  string
	Severity Severity
	// Progress is the stabilization progress in [0,100].
	Progress float64
	// Count mirrors the session's confirmed upload counter.
	Count int
}

// Board is the mutable feedback state shared between the pipeline and its
// observers.
type Board struct {
	mu  sync.RWMutex
	rec Record
}

// New returns a Board showing the searching state.
func New() *Board {
	return &Board{rec: Record{Message: MsgSearching, Severity: SeverityNeutral}}
}

// Snapshot returns the current feedback state.
func (b *Board) Snapshot() Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rec
}

// Searching resets the message and progress to the idle searching state
// without touching the counter.
func (b *Board) Searching() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Message = MsgSearching
	b.rec.Severity = SeverityNeutral
	b.rec.Progress = 0
}

// Locking shows the stabilization message with the given progress.
func (b *Board) Locking(progress float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Message = MsgLocking
	b.rec.Severity = SeverityLocking
	b.rec.Progress = progress
}

// Uploading marks a capture in flight.
func (b *Board) Uploading() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Message = MsgUploading
	b.rec.Severity = SeverityNeutral
	b.rec.Progress = 100
}

// Success shows the confirmation message and the updated counter.
func (b *Board) Success(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Message = MsgSuccess
	b.rec.Severity = SeveritySuccess
	b.rec.Count = count
}

// Failure surfaces the backend's rejection reason verbatim.
func (b *Board) Failure(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Message = reason
	b.rec.Severity = SeverityFailure
}

// Fatal reports an unrecoverable condition such as a missing camera. It is
// shown once and never cleared.
func (b *Board) Fatal(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Message = message
	b.rec.Severity = SeverityFatal
	b.rec.Progress = 0
}
