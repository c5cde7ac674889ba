// internal/provider/provider.go
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransportError is a per-attempt failure talking to a provider. The router
// retries it within policy unless Permanent is set (client-side errors the
// provider will keep rejecting).
type TransportError struct {
	Provider   string
	StatusCode int
	Permanent  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: transport failure (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is a per-attempt failure where the call exceeded the
// provider's configured timeout. Always retryable within policy.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s: request timed out after %s", e.Provider, e.Timeout)
}

// Retryable reports whether err is a transient provider failure the router
// may retry. Content-level failures never reach this check.
func Retryable(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var tre *TransportError
	if errors.As(err, &tre) {
		return !tre.Permanent
	}
	return false
}

// postJSON issues one JSON POST and returns the raw response body. Transport
// and timeout failures come back as the typed errors above so the router can
// apply its retry policy.
func postJSON(ctx context.Context, client *http.Client, providerName, url string, headers map[string]string, body []byte, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Provider: providerName, Permanent: true, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Provider: providerName, Timeout: timeout}
		}
		return nil, &TransportError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Provider: providerName, Timeout: timeout}
		}
		return nil, &TransportError{Provider: providerName, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(providerName, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// classifyStatus maps an HTTP error status to a retryable or permanent
// transport error. 408/429/5xx are transient; everything else means the
// request itself is bad and retrying cannot help.
func classifyStatus(providerName string, status int, body []byte) error {
	err := fmt.Errorf("unexpected status: %s", truncate(string(body), 300))
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return &TransportError{Provider: providerName, StatusCode: status, Err: err}
	default:
		return &TransportError{Provider: providerName, StatusCode: status, Permanent: true, Err: err}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
