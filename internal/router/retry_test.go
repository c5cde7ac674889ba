// internal/router/retry_test.go
package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meditrek/clinpilot/internal/config"
)

func TestRetryPolicyForDefaults(t *testing.T) {
	rp := retryPolicyFor(config.ProviderConfig{MaxRetries: 3})
	assert.Equal(t, 3, rp.MaxRetries)
	assert.Equal(t, defaultBaseBackoff, rp.BaseBackoff)
	assert.Equal(t, defaultMaxBackoff, rp.MaxBackoff)
}

func TestRetryPolicyForExplicitValues(t *testing.T) {
	rp := retryPolicyFor(config.ProviderConfig{
		MaxRetries:  1,
		BaseBackoff: 250 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	})
	assert.Equal(t, 250*time.Millisecond, rp.BaseBackoff)
	assert.Equal(t, 2*time.Second, rp.MaxBackoff)
}

func TestNewBackOffSequenceIsDeterministic(t *testing.T) {
	rp := RetryPolicy{MaxRetries: 5, BaseBackoff: 100 * time.Millisecond, MaxBackoff: 1 * time.Second}
	bo := rp.NewBackOff()

	// base * 2^n, capped at MaxBackoff, no jitter.
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
		1 * time.Second,
	}
	for i, expected := range want {
		assert.Equal(t, expected, bo.NextBackOff(), "delay %d", i)
	}
}

func TestNewBackOffNeverStops(t *testing.T) {
	// The attempt counter bounds the loop, not elapsed time; the backoff must
	// never report exhaustion on its own.
	rp := RetryPolicy{MaxRetries: 2, BaseBackoff: time.Nanosecond, MaxBackoff: time.Microsecond}
	bo := rp.NewBackOff()
	for i := 0; i < 50; i++ {
		assert.NotEqual(t, time.Duration(-1), bo.NextBackOff())
	}
}
