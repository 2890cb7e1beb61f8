// Package camera provides the live frame source feeding the analysis loop.
// Scanning stations expose their handheld camera as an MJPEG-over-HTTP
// stream; a synthetic source exists for bench runs without hardware.
package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chifascan/scanner/pkg/core"
)

// ErrUnavailable means no camera could be opened. This is terminal for the
// scanning page: it is reported once and never retried.
var ErrUnavailable = errors.New("camera unavailable")

// frameBufferSize bounds the frame channel. A consumer that falls behind
// by more than this many frames starts shedding instead of stalling the
// source.
const frameBufferSize = 8

// Stats describes the source's delivery rate.
type Stats struct {
	FramesDelivered uint64
	FramesDropped   uint64
	LastFrameAt     time.Time
}

// Source delivers full-resolution frames until stopped. The returned channel
// is closed when the source ends, either by Stop or a terminal error.
type Source interface {
	Start(ctx context.Context) (<-chan core.Frame, error)
	Stop()
	Stats() Stats
}

// Config describes the requested capture parameters.
type Config struct {
	// Source is the camera endpoint. http(s) URLs open an MJPEG stream;
	// the literal "synthetic" opens the test pattern source.
	Source string
	// Width and Height are the ideal capture resolution.
	Width  int
	Height int
	// MaxFPS caps frame delivery. Zero means unthrottled.
	MaxFPS int
}

// Open builds a Source from the config. An empty source string is treated
// as an absent camera.
func Open(cfg Config) (Source, error) {
	switch {
	case cfg.Source == "":
		return nil, ErrUnavailable
	case cfg.Source == "synthetic":
		return NewSynthetic(cfg), nil
	default:
		return NewMJPEG(cfg), nil
	}
}

// statsTracker is shared bookkeeping for the concrete sources.
type statsTracker struct {
	mu    sync.Mutex
	stats Stats
}

func (t *statsTracker) delivered() {
	t.mu.Lock()
	t.stats.FramesDelivered++
	t.stats.LastFrameAt = time.Now()
	t.mu.Unlock()
}

func (t *statsTracker) dropped() {
	t.mu.Lock()
	t.stats.FramesDropped++
	t.mu.Unlock()
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
