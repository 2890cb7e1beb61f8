// internal/journal/journal.go
package journal

import (
	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/pkg/core"
)

// Backend is the interface all journal implementations must satisfy.
// The journal records what happened during a scanning session: the session
// itself, every resolved capture attempt, and periodic performance samples.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	FinishSession() error

	// Event recording
	RecordCapture(attempt *core.CaptureAttempt, outcome *core.UploadOutcome) error
	RecordLockProgress(metric float64, progress float64, phase string) error
	RecordPerformance(perf *model.ScannerPerformance) error
	RecordStatus(message string, severity string) error
}

// Exportable is an optional interface for journal backends that can
// produce an on-disk snapshot of their contents.
type Exportable interface {
	Export(path string) error
}
