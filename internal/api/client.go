// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/chifascan/scanner/pkg/core"
)

// FallbackFailureReason is shown when the backend rejects an upload without
// attaching a message of its own.
const FallbackFailureReason = "Vignette illisible"

// Client handles communication with the vignette backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// uploadResponse is the backend's JSON reply to an upload.
type uploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// New creates a new API client. A stalled request must not leave the
// pipeline armed-but-blocked forever, so every upload carries a bounded
// deadline and resolves as a synthetic timeout failure when it expires.
func New(baseURL string, uploadTimeout time.Duration) *Client {
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: uploadTimeout},
	}
}

// Healthcheck checks if the backend is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// UploadVignette submits one capture to the session-scoped upload endpoint
// and resolves its outcome. The returned error is non-nil only for local
// programming faults; every transport or backend failure is folded into a
// Failure outcome so the pipeline's cooldown path treats all of them alike.
func (c *Client) UploadVignette(ctx context.Context, attempt core.CaptureAttempt) core.UploadOutcome {
	start := time.Now()

	// Stream the multipart body into the request
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		part, err := writer.CreateFormFile("file", fmt.Sprintf("vignette-%s.jpg", attempt.ID))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, bytes.NewReader(attempt.JPEG)); err != nil {
			errCh <- fmt.Errorf("failed to copy image: %w", err)
			return
		}
		errCh <- nil
	}()

	url := fmt.Sprintf("%s/api/upload-by-session/%s", c.baseURL, attempt.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return c.failure(attempt, start, 0, nil, fmt.Sprintf("failed to create request: %v", err), false)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		timeout := isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		return c.failure(attempt, start, 0, nil, FallbackFailureReason, timeout)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return c.failure(attempt, start, resp.StatusCode, nil, FallbackFailureReason, false)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(attempt, start, resp.StatusCode, nil, FallbackFailureReason, false)
	}

	// Non-2xx is failure regardless of body content.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := FallbackFailureReason
		var parsed uploadResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
			reason = parsed.Message
		}
		return c.failure(attempt, start, resp.StatusCode, body, reason, false)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return c.failure(attempt, start, resp.StatusCode, body, FallbackFailureReason, false)
	}

	if parsed.Status != "success" {
		reason := parsed.Message
		if reason == "" {
			reason = FallbackFailureReason
		}
		return c.failure(attempt, start, resp.StatusCode, body, reason, false)
	}

	return core.UploadOutcome{
		AttemptID:  attempt.ID,
		Status:     core.OutcomeSuccess,
		HTTPStatus: resp.StatusCode,
		Duration:   time.Since(start),
		Response:   body,
	}
}

// FinishSession fires the session termination beacon. Best effort: errors
// are returned for logging only and must never be retried or block teardown.
func (c *Client) FinishSession(sessionID string) error {
	url := fmt.Sprintf("%s/api/finish-session/%s", c.baseURL, sessionID)
	resp, err := c.httpClient.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("finish-session request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) failure(attempt core.CaptureAttempt, start time.Time, status int, body []byte, reason string, timeout bool) core.UploadOutcome {
	return core.UploadOutcome{
		AttemptID:  attempt.ID,
		Status:     core.OutcomeFailure,
		Reason:     reason,
		HTTPStatus: status,
		Duration:   time.Since(start),
		Response:   body,
		Timeout:    timeout,
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
