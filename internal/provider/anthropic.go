// internal/provider/anthropic.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
)

const anthropicVersion = "2023-06-01"

// AnthropicAdapter talks to the Anthropic Messages API. It heads the complex
// tier chain by default.
type AnthropicAdapter struct {
	name       string
	model      string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicAdapter builds the adapter; an API key is mandatory.
func NewAnthropicAdapter(cfg config.ProviderConfig, logger *zap.Logger) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic adapter %q: API key is required", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic adapter %q: model is required", cfg.Name)
	}
	base := cfg.Endpoint
	if base == "" {
		base = "https://api.anthropic.com"
	}
	return &AnthropicAdapter{
		name:       cfg.Name,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("provider.anthropic"),
	}, nil
}

func (a *AnthropicAdapter) Name() string { return a.name }

func (a *AnthropicAdapter) headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

// Complete sends the prompt to /v1/messages and normalizes the reply.
func (a *AnthropicAdapter) Complete(ctx context.Context, req schemas.CompletionRequest) (*schemas.CompletionResponse, error) {
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096 // the Messages API requires an explicit cap
	}
	payload := anthropicRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Temperature: req.Options.Temperature,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: err}
	}

	start := time.Now()
	respBody, err := postJSON(ctx, a.httpClient, a.name, a.baseURL+"/v1/messages", a.headers(), body, a.timeout)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(out.Content) == 0 {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("response contained no content blocks")}
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	a.logger.Debug("Completion finished",
		zap.String("model", out.Model),
		zap.Duration("latency", latency),
		zap.Int("output_tokens", out.Usage.OutputTokens),
	)

	return &schemas.CompletionResponse{
		Content:    sb.String(),
		Model:      out.Model,
		Provider:   a.name,
		TokensUsed: out.Usage.InputTokens + out.Usage.OutputTokens,
		Latency:    latency,
	}, nil
}

// HealthCheck lists models, which validates both reachability and the key.
func (a *AnthropicAdapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	for k, v := range a.headers() {
		req.Header.Set(k, v)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}
