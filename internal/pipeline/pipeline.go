// Package pipeline runs the detect-lock-capture-upload loop. All lock and
// capture state lives on one goroutine: frames come in on a channel, and
// upload resolutions and cooldown re-arms come back in as events on the same
// loop, so no transition ever races another.
package pipeline

import (
	"bytes"
	"context"
	"image/jpeg"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chifascan/scanner/internal/cache"
	"github.com/chifascan/scanner/internal/detector"
	"github.com/chifascan/scanner/internal/dispatcher"
	"github.com/chifascan/scanner/internal/lock"
	"github.com/chifascan/scanner/internal/sampler"
	"github.com/chifascan/scanner/internal/session"
	"github.com/chifascan/scanner/internal/status"
	"github.com/chifascan/scanner/pkg/core"
)

// Event names dispatched off the hot loop.
const (
	EventLockProgress    = "lock.progress"
	EventCaptureResolved = "capture.resolved"
	EventStatusChanged   = "status.changed"
)

// Uploader submits one capture and resolves its outcome.
type Uploader interface {
	UploadVignette(ctx context.Context, attempt core.CaptureAttempt) core.UploadOutcome
}

// LockProgress is the payload for EventLockProgress.
type LockProgress struct {
	Metric   float64
	Progress float64
	Phase    string
}

// CaptureResolved is the payload for EventCaptureResolved.
type CaptureResolved struct {
	Attempt core.CaptureAttempt
	Outcome core.UploadOutcome
}

// StatusChanged is the payload for EventStatusChanged.
type StatusChanged struct {
	Message  string
	Severity string
}

// Dependencies holds everything the pipeline needs.
type Dependencies struct {
	Sampler    *sampler.Sampler
	Detector   *detector.Detector
	Uploader   Uploader
	Session    *session.Context
	Status     *status.Board
	Beeper     status.Beeper
	Dispatcher *dispatcher.Dispatcher
	Outcomes   *cache.OutcomeCache
	Logger     zerolog.Logger

	LockConfig  lock.Config
	Cooldown    time.Duration
	JPEGQuality int
}

// Stats is a snapshot of loop counters for the monitor.
type Stats struct {
	TicksProcessed uint64
	TicksSkipped   uint64
	LastMetric     float64
	LastTickMs     float64
	Phase          string
	Processing     bool
}

// internal loop events
type outcomeEvent struct {
	attempt core.CaptureAttempt
	outcome core.UploadOutcome
}

type rearmEvent struct{}

// Pipeline drives the detection loop. Create with New, feed with Run.
type Pipeline struct {
	deps Dependencies

	state      lock.State
	processing bool

	// events carries upload resolutions and cooldown re-arms back onto
	// the loop goroutine.
	events chan any

	// now is swappable for tests.
	now func() time.Time

	ticksProcessed atomic.Uint64
	ticksSkipped   atomic.Uint64
	lastMetric     atomic.Uint64 // float64 bits
	lastTickMs     atomic.Uint64 // float64 bits
	phase          atomic.Int32
	inFlight       atomic.Bool
}

// New creates a Pipeline.
func New(deps Dependencies) *Pipeline {
	if deps.Cooldown <= 0 {
		deps.Cooldown = 2 * time.Second
	}
	if deps.JPEGQuality <= 0 {
		deps.JPEGQuality = 85
	}
	if deps.Beeper == nil {
		deps.Beeper = status.NopBeeper{}
	}
	if deps.Outcomes == nil {
		deps.Outcomes = &cache.OutcomeCache{}
	}
	return &Pipeline{
		deps:   deps,
		events: make(chan any, 16),
		now:    time.Now,
	}
}

// Stats returns a snapshot of the loop counters. Safe from any goroutine.
func (p *Pipeline) Stats() Stats {
	return Stats{
		TicksProcessed: p.ticksProcessed.Load(),
		TicksSkipped:   p.ticksSkipped.Load(),
		LastMetric:     loadFloat(&p.lastMetric),
		LastTickMs:     loadFloat(&p.lastTickMs),
		Phase:          lock.Phase(p.phase.Load()).String(),
		Processing:     p.inFlight.Load(),
	}
}

// Run consumes frames until the context ends or the frame channel closes.
// It is the single writer for all lock and capture state.
func (p *Pipeline) Run(ctx context.Context, frames <-chan core.Frame) {
	log := p.deps.Logger.With().Str("component", "pipeline").Logger()
	log.Info().Msg("pipeline started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pipeline stopped")
			return

		case ev := <-p.events:
			p.handleEvent(ev)

		case frame, ok := <-frames:
			if !ok {
				log.Info().Msg("frame source ended")
				return
			}
			p.tick(ctx, frame)
		}
	}
}

// tick runs one analysis pass. While a capture is in flight the frame is
// consumed but no detection work happens, keeping the loop responsive
// without doing work whose result would be discarded.
func (p *Pipeline) tick(ctx context.Context, frame core.Frame) {
	if p.processing {
		p.ticksSkipped.Add(1)
		return
	}

	sample, ok := p.deps.Sampler.Sample(frame)
	if !ok {
		p.ticksSkipped.Add(1)
		return
	}
	p.ticksProcessed.Add(1)

	// Wall clock, not p.now: the monitor reads this as real analysis cost.
	start := time.Now()
	defer func() {
		storeFloat(&p.lastTickMs, float64(time.Since(start).Nanoseconds())/1e6)
	}()

	metric := p.deps.Detector.Analyze(sample)
	storeFloat(&p.lastMetric, metric)

	prev := p.state.Phase
	var fx lock.Effects
	p.state, fx = lock.Tick(p.state, metric, p.now(), p.deps.LockConfig)
	p.phase.Store(int32(p.state.Phase))

	switch p.state.Phase {
	case lock.Searching:
		if prev != lock.Searching {
			p.deps.Status.Searching()
			p.notifyStatus()
		}
	case lock.Locking:
		p.deps.Status.Locking(fx.Progress)
	}

	p.dispatch(EventLockProgress, LockProgress{
		Metric:   metric,
		Progress: fx.Progress,
		Phase:    p.state.Phase.String(),
	})

	if fx.Capture {
		p.capture(ctx, frame)
	}
}

// capture snapshots the full-resolution frame, flips the mutual-exclusion
// flag and hands encoding plus upload to a background goroutine. The loop
// keeps running in skip mode until the outcome comes back as an event.
func (p *Pipeline) capture(ctx context.Context, frame core.Frame) {
	p.processing = true
	p.inFlight.Store(true)
	p.deps.Status.Uploading()
	p.notifyStatus()

	// Snapshot now; the source may reuse the buffer for the next frame.
	pix := make([]byte, len(frame.Pix))
	copy(pix, frame.Pix)
	snapshot := frame
	snapshot.Pix = pix

	attempt := core.CaptureAttempt{
		ID:        uuid.NewString(),
		SessionID: p.deps.Session.ID(),
		FrameSeq:  frame.Seq,
		CreatedAt: p.now(),
	}

	quality := p.deps.JPEGQuality
	go func() {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, snapshot.RGBA(), &jpeg.Options{Quality: quality}); err != nil {
			p.sendEvent(outcomeEvent{attempt: attempt, outcome: core.UploadOutcome{
				AttemptID: attempt.ID,
				Status:    core.OutcomeFailure,
				Reason:    "Image invalide",
			}})
			return
		}
		attempt.JPEG = buf.Bytes()

		outcome := p.deps.Uploader.UploadVignette(ctx, attempt)
		p.sendEvent(outcomeEvent{attempt: attempt, outcome: outcome})
	}()
}

func (p *Pipeline) handleEvent(ev any) {
	switch e := ev.(type) {
	case outcomeEvent:
		p.resolve(e.attempt, e.outcome)
	case rearmEvent:
		p.rearm()
	}
}

// resolve applies one upload outcome: feedback, counters, journaling, and
// the cooldown timer that will re-arm the pipeline.
func (p *Pipeline) resolve(attempt core.CaptureAttempt, outcome core.UploadOutcome) {
	log := p.deps.Logger

	p.deps.Outcomes.Record(outcome)
	p.deps.Session.RecordOutcome(outcome)

	if outcome.Succeeded() {
		p.deps.Beeper.Beep()
		p.deps.Status.Success(p.deps.Session.Count.Value())
		log.Info().Str("attemptId", outcome.AttemptID).
			Dur("duration", outcome.Duration).
			Msg("vignette uploaded")
	} else {
		p.deps.Status.Failure(outcome.Reason)
		log.Warn().Str("attemptId", outcome.AttemptID).
			Str("reason", outcome.Reason).
			Bool("timeout", outcome.Timeout).
			Msg("vignette upload failed")
	}
	p.notifyStatus()

	p.dispatch(EventCaptureResolved, CaptureResolved{Attempt: attempt, Outcome: outcome})

	// Success or failure, the pipeline re-arms after the cooldown. The
	// timer fires on its own goroutine, so re-entry goes through the
	// event channel back onto the loop.
	time.AfterFunc(p.deps.Cooldown, func() {
		p.sendEvent(rearmEvent{})
	})
}

// rearm clears the mutual-exclusion flag and the lock timer, returning the
// pipeline to Searching for the next item.
func (p *Pipeline) rearm() {
	p.processing = false
	p.inFlight.Store(false)
	p.state = lock.Reset()
	p.phase.Store(int32(lock.Searching))
	p.deps.Status.Searching()
	p.notifyStatus()
}

func (p *Pipeline) sendEvent(ev any) {
	select {
	case p.events <- ev:
	default:
		// The loop is gone or badly backed up; dropping the event is
		// preferable to blocking a timer goroutine forever.
		p.deps.Logger.Warn().Msg("pipeline event dropped")
	}
}

// dispatch forwards an event to the dispatcher if one is wired.
func (p *Pipeline) dispatch(name string, payload any) {
	if p.deps.Dispatcher == nil || !p.deps.Dispatcher.HasHandler(name) {
		return
	}
	if _, err := p.deps.Dispatcher.Dispatch(dispatcher.Event{
		Name:      name,
		Payload:   payload,
		Timestamp: p.now(),
	}); err != nil {
		p.deps.Logger.Debug().Err(err).Str("event", name).Msg("dispatch failed")
	}
}

func (p *Pipeline) notifyStatus() {
	rec := p.deps.Status.Snapshot()
	p.dispatch(EventStatusChanged, StatusChanged{
		Message:  rec.Message,
		Severity: string(rec.Severity),
	})
}

func storeFloat(a *atomic.Uint64, f float64) {
	a.Store(math.Float64bits(f))
}

func loadFloat(a *atomic.Uint64) float64 {
	return math.Float64frombits(a.Load())
}
