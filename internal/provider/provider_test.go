// internal/provider/provider_test.go
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &TimeoutError{Provider: "p", Timeout: time.Second}, true},
		{"transient transport", &TransportError{Provider: "p", StatusCode: 500}, true},
		{"permanent transport", &TransportError{Provider: "p", StatusCode: 400, Permanent: true}, false},
		{"wrapped timeout", fmt.Errorf("attempt failed: %w", &TimeoutError{Provider: "p"}), true},
		{"plain error", errors.New("not a provider failure"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	retryable := []int{http.StatusRequestTimeout, http.StatusTooManyRequests, 500, 502, 503}
	for _, status := range retryable {
		err := classifyStatus("p", status, []byte("upstream unhappy"))
		assert.True(t, Retryable(err), "status %d should be retryable", status)
	}

	permanent := []int{400, 401, 403, 404, 422}
	for _, status := range permanent {
		err := classifyStatus("p", status, []byte("request rejected"))
		assert.False(t, Retryable(err), "status %d should be permanent", status)

		var te *TransportError
		assert.ErrorAs(t, err, &te)
		assert.Equal(t, status, te.StatusCode)
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Provider: "p", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefghij", 5))
}
