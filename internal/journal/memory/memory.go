// Package memory implements the journal in process memory. Used for tests
// and for stations that run without any persistence configured.
package memory

import (
	"fmt"
	"sync"

	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/pkg/core"
)

// CaptureEntry pairs an attempt with its resolved outcome.
type CaptureEntry struct {
	Attempt core.CaptureAttempt
	Outcome core.UploadOutcome
}

// Backend keeps all journal entries in memory.
type Backend struct {
	mu sync.Mutex

	session  *core.Session
	finished bool

	Captures    []CaptureEntry
	Performance []model.ScannerPerformance
}

// New creates an empty memory journal.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// StartSession records the active session.
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := *session
	b.session = &s
	b.finished = false
	return nil
}

// FinishSession marks the session finished.
func (b *Backend) FinishSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return fmt.Errorf("no active session")
	}
	b.finished = true
	return nil
}

// Finished reports whether FinishSession has been called.
func (b *Backend) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// Session returns the active session, if any.
func (b *Backend) Session() *core.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// RecordCapture appends one resolved capture attempt.
func (b *Backend) RecordCapture(attempt *core.CaptureAttempt, outcome *core.UploadOutcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return fmt.Errorf("no active session")
	}
	b.Captures = append(b.Captures, CaptureEntry{Attempt: *attempt, Outcome: *outcome})
	return nil
}

// RecordLockProgress is a no-op; per-tick lock traffic is not retained.
func (b *Backend) RecordLockProgress(metric float64, progress float64, phase string) error {
	return nil
}

// RecordPerformance appends one performance sample.
func (b *Backend) RecordPerformance(perf *model.ScannerPerformance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Performance = append(b.Performance, *perf)
	return nil
}

// RecordStatus is a no-op.
func (b *Backend) RecordStatus(message string, severity string) error {
	return nil
}

// CaptureCount returns the number of journaled attempts.
func (b *Backend) CaptureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Captures)
}

// PerformanceCount returns the number of journaled performance samples.
func (b *Backend) PerformanceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Performance)
}
