// internal/api/client_test.go
package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chifascan/scanner/pkg/core"
)

func testAttempt() core.CaptureAttempt {
	return core.CaptureAttempt{
		ID:        "attempt-1",
		SessionID: "sess-42",
		FrameSeq:  7,
		CreatedAt: time.Now(),
		JPEG:      []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10},
	}
}

func TestNew(t *testing.T) {
	c := New("http://localhost:8080", 0)

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected baseURL=http://localhost:8080, got %s", c.baseURL)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("expected default 30s timeout, got %s", c.httpClient.Timeout)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8080/", 0)
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, 0)
	if err := c.Healthcheck(); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, 0)
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestUploadVignette_Success(t *testing.T) {
	var receivedPath string
	var receivedFileContent []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("failed to get file: %v", err)
		}
		defer file.Close()

		if header.Filename != "vignette-attempt-1.jpg" {
			t.Errorf("unexpected filename %s", header.Filename)
		}
		receivedFileContent, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"ok"}`))
	}))
	defer server.Close()

	c := New(server.URL, 0)
	attempt := testAttempt()
	outcome := c.UploadVignette(context.Background(), attempt)

	if receivedPath != "/api/upload-by-session/sess-42" {
		t.Errorf("expected session-scoped path, got %s", receivedPath)
	}
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.AttemptID != attempt.ID {
		t.Errorf("expected attempt ID %s, got %s", attempt.ID, outcome.AttemptID)
	}
	if outcome.HTTPStatus != http.StatusOK {
		t.Errorf("expected 200, got %d", outcome.HTTPStatus)
	}
	if string(receivedFileContent) != string(attempt.JPEG) {
		t.Error("uploaded bytes do not match the capture payload")
	}
}

func TestUploadVignette_ApplicationRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"error","message":"Vignette illisible"}`))
	}))
	defer server.Close()

	c := New(server.URL, 0)
	outcome := c.UploadVignette(context.Background(), testAttempt())

	if outcome.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if outcome.Reason != "Vignette illisible" {
		t.Errorf("expected backend message verbatim, got %q", outcome.Reason)
	}
	if outcome.Timeout {
		t.Error("backend rejection must not be marked as timeout")
	}
}

func TestUploadVignette_RejectionWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error"}`))
	}))
	defer server.Close()

	c := New(server.URL, 0)
	outcome := c.UploadVignette(context.Background(), testAttempt())

	if outcome.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if outcome.Reason != FallbackFailureReason {
		t.Errorf("expected fallback reason, got %q", outcome.Reason)
	}
}

func TestUploadVignette_NonSuccessHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	c := New(server.URL, 0)
	outcome := c.UploadVignette(context.Background(), testAttempt())

	if outcome.Succeeded() {
		t.Fatal("non-2xx must be failure regardless of body")
	}
	if outcome.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", outcome.HTTPStatus)
	}
}

func TestUploadVignette_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := New(server.URL, 0)
	outcome := c.UploadVignette(context.Background(), testAttempt())

	if outcome.Succeeded() {
		t.Fatal("expected failure for unparseable body")
	}
	if outcome.Reason != FallbackFailureReason {
		t.Errorf("expected fallback reason, got %q", outcome.Reason)
	}
}

func TestUploadVignette_TransportFailure(t *testing.T) {
	c := New("http://localhost:59999", 0) // unlikely to be listening
	outcome := c.UploadVignette(context.Background(), testAttempt())

	if outcome.Succeeded() {
		t.Fatal("expected failure for unreachable server")
	}
}

func TestUploadVignette_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(server.URL, 100*time.Millisecond)
	outcome := c.UploadVignette(context.Background(), testAttempt())

	if outcome.Succeeded() {
		t.Fatal("expected timeout failure")
	}
	if !outcome.Timeout {
		t.Error("expected outcome to be marked as timeout")
	}
}

func TestFinishSession(t *testing.T) {
	var receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, 0)
	if err := c.FinishSession("sess-42"); err != nil {
		t.Errorf("FinishSession failed: %v", err)
	}
	if receivedPath != "/api/finish-session/sess-42" {
		t.Errorf("expected finish-session path, got %s", receivedPath)
	}
}

func TestFinishSession_Unreachable(t *testing.T) {
	c := New("http://localhost:59999", 0)
	if err := c.FinishSession("sess-42"); err == nil {
		t.Error("expected error for unreachable server")
	}
}
