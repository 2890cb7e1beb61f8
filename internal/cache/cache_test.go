package cache

import (
	"sync"
	"testing"

	"github.com/chifascan/scanner/pkg/core"
)

func TestSafeCounter(t *testing.T) {
	c := &SafeCounter{}

	if c.Value() != 0 {
		t.Errorf("expected 0, got %d", c.Value())
	}

	c.Inc()
	c.Inc()
	if c.Value() != 2 {
		t.Errorf("expected 2, got %d", c.Value())
	}

	c.Set(10)
	if c.Value() != 10 {
		t.Errorf("expected 10, got %d", c.Value())
	}
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	if c.Value() != 50 {
		t.Errorf("expected 50, got %d", c.Value())
	}
}

func TestOutcomeCache(t *testing.T) {
	c := NewOutcomeCache()

	if _, ok := c.Last(); ok {
		t.Error("expected no outcome in fresh cache")
	}

	c.Record(core.UploadOutcome{AttemptID: "a", Status: core.OutcomeSuccess})
	last, ok := c.Last()
	if !ok || last.AttemptID != "a" {
		t.Errorf("expected outcome a, got %+v ok=%v", last, ok)
	}
	if c.Failures() != 0 {
		t.Errorf("expected 0 failures, got %d", c.Failures())
	}

	c.Record(core.UploadOutcome{AttemptID: "b", Status: core.OutcomeFailure, Reason: "Vignette illisible"})
	last, _ = c.Last()
	if last.AttemptID != "b" {
		t.Errorf("expected latest outcome b, got %s", last.AttemptID)
	}
	if c.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", c.Failures())
	}

	c.Reset()
	if _, ok := c.Last(); ok {
		t.Error("expected empty cache after Reset")
	}
	if c.Failures() != 0 {
		t.Errorf("expected 0 failures after Reset, got %d", c.Failures())
	}
}
