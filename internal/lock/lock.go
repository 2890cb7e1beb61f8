// Package lock turns the noisy per-frame detection metric into a debounced
// lock signal. The transition function is pure so the policy can be tested
// with synthetic metric sequences, independent of any camera or clock.
package lock

import "time"

// Phase is the coarse detection state.
type Phase int

const (
	// Searching means the marker is not currently visible.
	Searching Phase = iota
	// Locking means the marker is visible and the stabilization timer is running.
	Locking
	// Locked means the marker has been continuously visible for the full
	// stabilization window. Exactly one capture is authorized per episode.
	Locked
)

func (p Phase) String() string {
	switch p {
	case Searching:
		return "searching"
	case Locking:
		return "locking"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Config holds the tuning knobs for the temporal filter.
type Config struct {
	// PresenceThreshold is the metric value above which the marker counts
	// as present for a tick.
	PresenceThreshold float64
	// StabilizationWindow is how long presence must be continuous before
	// a capture is authorized.
	StabilizationWindow time.Duration
}

// DefaultConfig matches the tuning the detector heuristic was calibrated
// against: 5% marker-colored pixels, held for half a second.
func DefaultConfig() Config {
	return Config{
		PresenceThreshold:   0.05,
		StabilizationWindow: 500 * time.Millisecond,
	}
}

// State is the full lock state between ticks. The zero value is Searching.
type State struct {
	Phase Phase
	// Since is the instant presence began; meaningful only while
	// Locking or Locked.
	Since time.Time
}

// Effects is what a tick asks the caller to do. The transition function
// never performs side effects itself.
type Effects struct {
	// Capture is true on the single tick where the state crosses into
	// Locked. Repeated ticks while already Locked never set it again.
	Capture bool
	// Progress is the stabilization progress in [0,100] for UI feedback.
	Progress float64
}

// Tick advances the state machine by one analysis tick.
//
// Any tick where the metric is at or below the presence threshold drops
// straight back to Searching and clears the timer, regardless of how much
// progress had accumulated. Presence must be contiguous.
func Tick(s State, metric float64, now time.Time, cfg Config) (State, Effects) {
	if metric <= cfg.PresenceThreshold {
		return State{Phase: Searching}, Effects{}
	}

	switch s.Phase {
	case Searching:
		return State{Phase: Locking, Since: now}, Effects{}

	case Locking:
		elapsed := now.Sub(s.Since)
		if elapsed >= cfg.StabilizationWindow {
			return State{Phase: Locked, Since: s.Since}, Effects{Capture: true, Progress: 100}
		}
		progress := float64(elapsed) / float64(cfg.StabilizationWindow) * 100
		return s, Effects{Progress: progress}

	case Locked:
		// The marker is still framed after capture. Stay locked, do not
		// re-trigger; re-arming happens through an explicit Reset once
		// the upload cooldown elapses.
		return s, Effects{Progress: 100}

	default:
		return State{Phase: Searching}, Effects{}
	}
}

// Reset returns the state to Searching with a cleared timer. Called by the
// pipeline when an upload outcome's cooldown elapses.
func Reset() State {
	return State{Phase: Searching}
}
