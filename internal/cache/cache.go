package cache

import (
	"sync"

	"github.com/chifascan/scanner/pkg/core"
)

// SafeCounter is a thread-safe counter. The medication count is one of
// these: incremented only on a confirmed successful upload, never reset
// during a session.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

// OutcomeCache keeps the most recent upload outcomes for the status
// surface and the monitor stream. Latency here matters less than in the
// analysis loop, but reads come from other goroutines.
type OutcomeCache struct {
	m        sync.Mutex
	last     *core.UploadOutcome
	failures int
}

func NewOutcomeCache() *OutcomeCache {
	return &OutcomeCache{}
}

// Record stores the latest outcome and tallies failures.
func (c *OutcomeCache) Record(o core.UploadOutcome) {
	c.m.Lock()
	defer c.m.Unlock()
	out := o
	c.last = &out
	if !o.Succeeded() {
		c.failures++
	}
}

// Last returns the most recent outcome, if any.
func (c *OutcomeCache) Last() (core.UploadOutcome, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.last == nil {
		return core.UploadOutcome{}, false
	}
	return *c.last, true
}

// Failures returns the number of failed uploads seen this session.
func (c *OutcomeCache) Failures() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.failures
}

// Reset clears the cache.
func (c *OutcomeCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.last = nil
	c.failures = 0
}
