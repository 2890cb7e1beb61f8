package dispatcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register(":OUTCOME:", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Name: ":OUTCOME:"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected result, got %v", result)
	}
}

func TestDispatcher_UnknownEvent(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Name: ":NOPE:"})
	if err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":STATUS:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":STATUS:") {
		t.Error("expected handler for :STATUS:")
	}
	if d.HasHandler(":MISSING:") {
		t.Error("did not expect handler for :MISSING:")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var count atomic.Int64
	done := make(chan struct{}, 10)
	d.Register(":PERF:", func(e Event) (any, error) {
		count.Add(1)
		done <- struct{}{}
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		result, err := d.Dispatch(Event{Name: ":PERF:", Timestamp: time.Now()})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected queued, got %v", result)
		}
	}

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for buffered handler")
		}
	}

	if count.Load() != 5 {
		t.Errorf("expected 5 events processed, got %d", count.Load())
	}
}

func TestDispatcher_BufferedHandler_DropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(":SLOW:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1))

	// First event fills the worker, second fills the buffer; the third
	// must be dropped.
	d.Dispatch(Event{Name: ":SLOW:"})
	time.Sleep(50 * time.Millisecond)
	d.Dispatch(Event{Name: ":SLOW:"})

	_, err := d.Dispatch(Event{Name: ":SLOW:"})
	if err == nil {
		t.Error("expected queue full error")
	}

	close(block)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":CAPTURE:", func(e Event) (any, error) {
		return nil, fmt.Errorf("boom")
	}, Logged())

	_, err := d.Dispatch(Event{Name: ":CAPTURE:"})
	if err == nil {
		t.Error("expected error to propagate through logging wrapper")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	foundError := false
	for _, m := range logger.messages {
		if len(m) >= 5 && m[:5] == "ERROR" {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected an error log entry")
	}
}
