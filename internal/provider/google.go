// internal/provider/google.go
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

// GoogleAdapter talks to the Gemini generateContent API.
type GoogleAdapter struct {
	name       string
	model      string
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGoogleAdapter builds the adapter; an API key is mandatory. The endpoint
// defaults to the hosted generateContent URL for the configured model.
func NewGoogleAdapter(cfg config.ProviderConfig, logger *zap.Logger) (*GoogleAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google adapter %q: API key is required", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("google adapter %q: model is required", cfg.Name)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}
	return &GoogleAdapter{
		name:       cfg.Name,
		model:      cfg.Model,
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("provider.google"),
	}, nil
}

func (a *GoogleAdapter) Name() string { return a.name }

// Complete sends the prompt to generateContent and normalizes the reply.
func (a *GoogleAdapter) Complete(ctx context.Context, req schemas.CompletionRequest) (*schemas.CompletionResponse, error) {
	genConfig := geminiGenerationConfig{
		Temperature:     req.Options.Temperature,
		MaxOutputTokens: req.Options.MaxTokens,
	}
	if req.Options.ForceJSON {
		genConfig.ResponseMimeType = "application/json"
	}

	payload := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}},
		},
		GenerationConfig: genConfig,
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: err}
	}

	headers := map[string]string{"x-goog-api-key": a.apiKey}

	start := time.Now()
	respBody, err := postJSON(ctx, a.httpClient, a.name, a.endpoint, headers, body, a.timeout)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(out.Candidates) == 0 {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("response contained no candidates")}
	}
	candidate := out.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		// Safety blocks cannot be retried with the same prompt.
		if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "BLOCKLIST" {
			return nil, &TransportError{
				Provider:  a.name,
				Permanent: true,
				Err:       fmt.Errorf("request blocked (reason: %s)", candidate.FinishReason),
			}
		}
		return nil, &TransportError{Provider: a.name, Err: fmt.Errorf("empty content parts (reason: %s)", candidate.FinishReason)}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}

	a.logger.Debug("Completion finished",
		zap.String("model", a.model),
		zap.Duration("latency", latency),
		zap.Int("total_tokens", out.UsageMetadata.TotalTokenCount),
	)

	return &schemas.CompletionResponse{
		Content:    sb.String(),
		Model:      a.model,
		Provider:   a.name,
		TokensUsed: out.UsageMetadata.TotalTokenCount,
		Latency:    latency,
	}, nil
}

// HealthCheck lists the model catalog, which validates both reachability and
// the key.
func (a *GoogleAdapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := "https://generativelanguage.googleapis.com/v1beta/models"
	if a.endpoint != "" && !strings.HasPrefix(a.endpoint, "https://generativelanguage.googleapis.com") {
		// Custom endpoints (tests, proxies) get probed directly at their base.
		if idx := strings.Index(a.endpoint, "/models/"); idx > 0 {
			url = a.endpoint[:idx] + "/models"
		} else {
			url = a.endpoint
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", a.apiKey)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}
