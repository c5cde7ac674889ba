// internal/provider/adapters_test.go
package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
)

func testRequest() schemas.CompletionRequest {
	return schemas.CompletionRequest{
		SystemPrompt: "You are a clinical assistant.",
		UserPrompt:   "Summarize the presentation.",
		Options: schemas.CompletionOptions{
			Temperature: 0.3,
			MaxTokens:   512,
			ForceJSON:   true,
		},
	}
}

func TestOllamaAdapterComplete(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Response:  `{"ok": true}`,
			EvalCount: 42,
		})
	}))
	defer server.Close()

	adapter, err := NewOllamaAdapter(config.ProviderConfig{
		Name:     "ollama",
		Model:    "llama3",
		Endpoint: server.URL,
		Timeout:  5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, resp.Content)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "llama3", resp.Model)
	assert.Equal(t, 42, resp.TokensUsed)

	assert.Equal(t, "llama3", captured.Model)
	assert.Equal(t, "Summarize the presentation.", captured.Prompt)
	assert.Equal(t, "You are a clinical assistant.", captured.System)
	assert.False(t, captured.Stream)
	assert.Equal(t, "json", captured.Format)
	assert.Equal(t, 0.3, captured.Options.Temperature)
	assert.Equal(t, 512, captured.Options.NumPredict)
}

func TestOllamaAdapterRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter, err := NewOllamaAdapter(config.ProviderConfig{
		Name: "ollama", Model: "llama3", Endpoint: server.URL, Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestOllamaAdapterPermanentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	adapter, err := NewOllamaAdapter(config.ProviderConfig{
		Name: "ollama", Model: "llama3", Endpoint: server.URL, Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.False(t, Retryable(err))
}

func TestOllamaAdapterTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	adapter, err := NewOllamaAdapter(config.ProviderConfig{
		Name: "ollama", Model: "llama3", Endpoint: server.URL, Timeout: 20 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestOllamaHealthCheckAndListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3"}, {"name": "mistral"}]}`))
	}))
	defer server.Close()

	adapter, err := NewOllamaAdapter(config.ProviderConfig{
		Name: "ollama", Model: "llama3", Endpoint: server.URL, Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, adapter.HealthCheck(context.Background()))

	models, err := adapter.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3", "mistral"}, models)
}

func TestAnthropicAdapterComplete(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"model": "claude-sonnet",
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	adapter, err := NewAnthropicAdapter(config.ProviderConfig{
		Name: "claude", Model: "claude-sonnet", APIKey: "secret", Endpoint: server.URL, Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, "claude", resp.Provider)
	assert.Equal(t, 15, resp.TokensUsed)

	assert.Equal(t, "You are a clinical assistant.", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, 512, captured.MaxTokens)
}

func TestAnthropicAdapterDefaultsMaxTokens(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "x"}]}`))
	}))
	defer server.Close()

	adapter, err := NewAnthropicAdapter(config.ProviderConfig{
		Name: "claude", Model: "claude-sonnet", APIKey: "secret", Endpoint: server.URL, Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	req := testRequest()
	req.Options.MaxTokens = 0
	_, err = adapter.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4096, captured.MaxTokens)
}

func TestAnthropicAdapterRequiresKey(t *testing.T) {
	_, err := NewAnthropicAdapter(config.ProviderConfig{
		Name: "claude", Model: "claude-sonnet", Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestOpenAIAdapterComplete(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"model": "gpt-large",
			"choices": [{"message": {"role": "assistant", "content": "answer"}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 21}
		}`))
	}))
	defer server.Close()

	adapter, err := NewOpenAIAdapter(config.ProviderConfig{
		Name: "openai", Model: "gpt-large", APIKey: "secret", Endpoint: server.URL, Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, 21, resp.TokensUsed)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestGoogleAdapterComplete(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "gemini says"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"totalTokenCount": 33}
		}`))
	}))
	defer server.Close()

	adapter, err := NewGoogleAdapter(config.ProviderConfig{
		Name: "gemini", Model: "gemini-pro", APIKey: "secret",
		Endpoint: server.URL + "/v1beta/models/gemini-pro:generateContent",
		Timeout:  5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "gemini says", resp.Content)
	assert.Equal(t, 33, resp.TokensUsed)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
}

func TestGoogleAdapterSafetyBlockIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": []}, "finishReason": "SAFETY"}]}`))
	}))
	defer server.Close()

	adapter, err := NewGoogleAdapter(config.ProviderConfig{
		Name: "gemini", Model: "gemini-pro", APIKey: "secret",
		Endpoint: server.URL + "/v1beta/models/gemini-pro:generateContent",
		Timeout:  5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.False(t, Retryable(err))
}

func TestBuildRegistry(t *testing.T) {
	cfgs := []config.ProviderConfig{
		{Name: "ollama", Kind: config.KindOllama, Model: "llama3", Timeout: 5 * time.Second, Enabled: true},
		{Name: "claude", Kind: config.KindAnthropic, Model: "m", APIKey: "k", Timeout: 5 * time.Second, Enabled: false},
	}

	registry, err := BuildRegistry(cfgs, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, registry, 2)

	// Disabled providers are built too; the router skips them at call time.
	assert.Equal(t, "ollama", registry["ollama"].Name())
	assert.Equal(t, "claude", registry["claude"].Name())
}

func TestBuildRegistryUnknownKind(t *testing.T) {
	_, err := BuildRegistry([]config.ProviderConfig{
		{Name: "x", Kind: "telepathy", Timeout: 5 * time.Second},
	}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telepathy")
}
