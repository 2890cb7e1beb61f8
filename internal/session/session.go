// Package session owns the lifetime of one scanning visit: the opaque
// identifier derived from the launch URL, the medication counter, and the
// single best-effort finish beacon fired at teardown.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chifascan/scanner/internal/cache"
	"github.com/chifascan/scanner/pkg/core"
)

// Finisher sends the session termination beacon.
type Finisher interface {
	FinishSession(sessionID string) error
}

// Context holds the current session state.
type Context struct {
	mu      sync.RWMutex
	session core.Session

	// Count tracks confirmed uploads for this visit.
	Count *cache.SafeCounter

	finisher Finisher
	finished bool
	log      zerolog.Logger
}

// NewContext derives the session from the launch URL and prepares the
// counter. The identifier is immutable for the context's lifetime.
func NewContext(launchURL string, finisher Finisher, log zerolog.Logger) (*Context, error) {
	id, err := core.SessionIDFromURL(launchURL)
	if err != nil {
		return nil, err
	}
	return &Context{
		session:  core.Session{ID: id, StartTime: time.Now()},
		Count:    &cache.SafeCounter{},
		finisher: finisher,
		log:      log.With().Str("component", "session").Str("sessionId", id).Logger(),
	}, nil
}

// Session returns the immutable session record.
func (c *Context) Session() core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// ID returns the opaque session identifier.
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.ID
}

// RecordOutcome applies one resolved upload outcome to the session counter.
// The counter moves only on confirmed success.
func (c *Context) RecordOutcome(outcome core.UploadOutcome) {
	if outcome.Succeeded() {
		c.Count.Inc()
	}
}

// Finish fires the termination beacon at most once. It launches the request
// in the background and returns immediately: teardown must never wait on it,
// and a lost beacon is acceptable since the backend reconciles abandoned
// sessions.
func (c *Context) Finish() {
	c.mu.Lock()
	if c.finished || c.finisher == nil {
		c.mu.Unlock()
		return
	}
	c.finished = true
	c.mu.Unlock()

	id := c.ID()
	go func() {
		if err := c.finisher.FinishSession(id); err != nil {
			c.log.Debug().Err(err).Msg("finish beacon failed")
		}
	}()
}
