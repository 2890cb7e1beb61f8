package camera

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/chifascan/scanner/internal/channel"
	"github.com/chifascan/scanner/pkg/core"
)

// MJPEG reads frames from a multipart/x-mixed-replace JPEG stream, the
// de facto wire format for IP and USB-gateway cameras.
type MJPEG struct {
	cfg    Config
	client *http.Client

	tracker statsTracker
	cancel  context.CancelFunc
	once    sync.Once
	started bool
	done    chan struct{}
}

// NewMJPEG creates an MJPEG source for the configured endpoint. The stream
// is not opened until Start.
func NewMJPEG(cfg Config) *MJPEG {
	return &MJPEG{
		cfg: cfg,
		// No overall timeout: the stream is long-lived. Dial problems
		// surface through the initial response.
		client: &http.Client{},
		done:   make(chan struct{}),
	}
}

// Start opens the stream and begins delivering frames. A connection or
// content-type failure maps to ErrUnavailable.
func (m *MJPEG) Start(ctx context.Context) (<-chan core.Frame, error) {
	ctx, m.cancel = context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: stream returned status %d", ErrUnavailable, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrUnavailable, resp.Header.Get("Content-Type"))
	}

	frames := channel.NewBuffered[core.Frame](frameBufferSize)
	m.started = true
	go m.readLoop(ctx, resp.Body, params["boundary"], frames)
	return frames.Receive(), nil
}

// Stop tears down the stream. Safe to call more than once.
func (m *MJPEG) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
	})
	if m.started {
		<-m.done
	}
}

// Stats returns delivery counters.
func (m *MJPEG) Stats() Stats {
	return m.tracker.snapshot()
}

func (m *MJPEG) readLoop(ctx context.Context, body io.ReadCloser, boundary string, frames *channel.Buffered[core.Frame]) {
	defer close(m.done)
	defer frames.Close()
	defer body.Close()

	var minInterval time.Duration
	if m.cfg.MaxFPS > 0 {
		minInterval = time.Second / time.Duration(m.cfg.MaxFPS)
	}

	reader := multipart.NewReader(body, boundary)
	var seq uint64
	var lastSent time.Time

	for {
		part, err := reader.NextPart()
		if err != nil {
			return
		}

		img, err := jpeg.Decode(part)
		part.Close()
		if err != nil {
			// A torn part mid-stream is not terminal, skip it.
			m.tracker.dropped()
			continue
		}

		now := time.Now()
		if minInterval > 0 && now.Sub(lastSent) < minInterval {
			m.tracker.dropped()
			continue
		}

		seq++
		if frames.TrySend(toFrame(img, seq, now)) {
			m.tracker.delivered()
			lastSent = now
		} else {
			m.tracker.dropped()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// toFrame converts a decoded image into the RGBA frame layout the pipeline
// expects, copying only when the decoder did not already produce RGBA.
func toFrame(img image.Image, seq uint64, ts time.Time) core.Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return core.Frame{
		Seq:       seq,
		Timestamp: ts,
		Width:     rgba.Rect.Dx(),
		Height:    rgba.Rect.Dy(),
		Pix:       rgba.Pix,
	}
}
