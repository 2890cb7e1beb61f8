package camera

import (
	"context"
	"sync"
	"time"

	"github.com/chifascan/scanner/internal/channel"
	"github.com/chifascan/scanner/pkg/core"
)

// Synthetic generates frames without hardware. It alternates between a
// neutral gray scene and a scene with a green patch, which is enough to
// drive the full detect-lock-capture path on a bench.
type Synthetic struct {
	cfg Config

	// PatchVisible controls whether generated frames contain the green
	// patch. Toggleable at runtime.
	mu           sync.Mutex
	patchVisible bool

	tracker statsTracker
	cancel  context.CancelFunc
	once    sync.Once
	started bool
	done    chan struct{}
}

// NewSynthetic creates a synthetic source at the configured resolution.
func NewSynthetic(cfg Config) *Synthetic {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.MaxFPS <= 0 {
		cfg.MaxFPS = 30
	}
	return &Synthetic{cfg: cfg, done: make(chan struct{})}
}

// SetPatchVisible shows or hides the green patch in generated frames.
func (s *Synthetic) SetPatchVisible(visible bool) {
	s.mu.Lock()
	s.patchVisible = visible
	s.mu.Unlock()
}

// Start begins generating frames at the configured rate.
func (s *Synthetic) Start(ctx context.Context) (<-chan core.Frame, error) {
	ctx, s.cancel = context.WithCancel(ctx)
	frames := channel.NewBuffered[core.Frame](frameBufferSize)
	s.started = true

	go func() {
		defer close(s.done)
		defer frames.Close()

		ticker := time.NewTicker(time.Second / time.Duration(s.cfg.MaxFPS))
		defer ticker.Stop()

		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				seq++
				if frames.TrySend(s.render(seq, now)) {
					s.tracker.delivered()
				} else {
					s.tracker.dropped()
				}
			}
		}
	}()

	return frames.Receive(), nil
}

// Stop ends frame generation.
func (s *Synthetic) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	if s.started {
		<-s.done
	}
}

// Stats returns delivery counters.
func (s *Synthetic) Stats() Stats {
	return s.tracker.snapshot()
}

func (s *Synthetic) render(seq uint64, ts time.Time) core.Frame {
	w, h := s.cfg.Width, s.cfg.Height
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = 128
		pix[i+1] = 128
		pix[i+2] = 128
		pix[i+3] = 255
	}

	s.mu.Lock()
	visible := s.patchVisible
	s.mu.Unlock()

	if visible {
		// Patch covering the center ninth of the frame, enough to clear
		// the presence threshold at analysis resolution.
		for y := h / 3; y < 2*h/3; y++ {
			for x := w / 3; x < 2*w/3; x++ {
				off := (y*w + x) * 4
				pix[off] = 40
				pix[off+1] = 160
				pix[off+2] = 50
			}
		}
	}

	return core.Frame{Seq: seq, Timestamp: ts, Width: w, Height: h, Pix: pix}
}
