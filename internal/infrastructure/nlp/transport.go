package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/factusalud/rips-engine/internal/infrastructure/resilience"
)

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("annotator %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return formatAnnotatorHTTPError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// statusError keeps the HTTP status available for retry classification.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string { return e.message }

func formatAnnotatorHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return &statusError{status: resp.StatusCode, message: fmt.Sprintf("annotator %s status: %s", operation, resp.Status)}
	}
	return &statusError{status: resp.StatusCode, message: fmt.Sprintf("annotator %s status: %s: %s", operation, resp.Status, msg)}
}

func classifyAnnotatorError(err error) resilience.Outcome {
	if err == nil {
		return resilience.Outcome{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{Retry: false, CountsAsFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Outcome{Retry: false, CountsAsFailure: true}
	}

	var httpErr *statusError
	if errors.As(err, &httpErr) {
		// 5xx and 429 are worth a retry; other statuses are our fault.
		retry := httpErr.status >= 500 || httpErr.status == http.StatusTooManyRequests
		return resilience.Outcome{Retry: retry, CountsAsFailure: true}
	}

	// Transport-level failures (refused, reset, DNS) are retryable.
	return resilience.Outcome{Retry: true, CountsAsFailure: true}
}
