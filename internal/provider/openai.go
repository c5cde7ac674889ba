// internal/provider/openai.go
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

// OpenAIAdapter talks to the OpenAI chat completions API. Two registry
// entries (full and mini model) typically share this implementation with
// different configured model names.
type OpenAIAdapter struct {
	name       string
	model      string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIAdapter builds the adapter; an API key is mandatory.
func NewOpenAIAdapter(cfg config.ProviderConfig, logger *zap.Logger) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai adapter %q: API key is required", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai adapter %q: model is required", cfg.Name)
	}
	base := cfg.Endpoint
	if base == "" {
		base = "https://api.openai.com"
	}
	return &OpenAIAdapter{
		name:       cfg.Name,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("provider.openai"),
	}, nil
}

func (a *OpenAIAdapter) Name() string { return a.name }

func (a *OpenAIAdapter) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.apiKey}
}

// Complete sends the prompt to /v1/chat/completions and normalizes the reply.
func (a *OpenAIAdapter) Complete(ctx context.Context, req schemas.CompletionRequest) (*schemas.CompletionResponse, error) {
	messages := make([]openAIMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.UserPrompt})

	payload := openAIRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if req.Options.ForceJSON {
		payload.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: err}
	}

	start := time.Now()
	respBody, err := postJSON(ctx, a.httpClient, a.name, a.baseURL+"/v1/chat/completions", a.headers(), body, a.timeout)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	var out openAIResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("response contained no choices")}
	}

	a.logger.Debug("Completion finished",
		zap.String("model", out.Model),
		zap.Duration("latency", latency),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)

	return &schemas.CompletionResponse{
		Content:    out.Choices[0].Message.Content,
		Model:      out.Model,
		Provider:   a.name,
		TokensUsed: out.Usage.TotalTokens,
		Latency:    latency,
	}, nil
}

// HealthCheck lists models, which validates both reachability and the key.
func (a *OpenAIAdapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}
