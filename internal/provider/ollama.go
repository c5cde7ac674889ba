// internal/provider/ollama.go
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

// OllamaAdapter talks to a local Ollama inference daemon. It is the cheap
// first hop for simple and moderate tiers.
type OllamaAdapter struct {
	name       string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	EvalCount       int    `json:"eval_count"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	TotalDuration   int64  `json:"total_duration"`
}

// NewOllamaAdapter builds the adapter. The endpoint defaults to the standard
// local daemon address.
func NewOllamaAdapter(cfg config.ProviderConfig, logger *zap.Logger) (*OllamaAdapter, error) {
	base := cfg.Endpoint
	if base == "" {
		base = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama adapter %q: model is required", cfg.Name)
	}
	return &OllamaAdapter{
		name:       cfg.Name,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(base, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("provider.ollama"),
	}, nil
}

func (a *OllamaAdapter) Name() string { return a.name }

// Complete sends the prompt to /api/generate and normalizes the reply.
func (a *OllamaAdapter) Complete(ctx context.Context, req schemas.CompletionRequest) (*schemas.CompletionResponse, error) {
	payload := ollamaRequest{
		Model:  a.model,
		Prompt: req.UserPrompt,
		System: req.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Options.Temperature,
			NumPredict:  req.Options.MaxTokens,
		},
	}
	if req.Options.ForceJSON {
		payload.Format = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: err}
	}

	start := time.Now()
	respBody, err := postJSON(ctx, a.httpClient, a.name, a.baseURL+"/api/generate", nil, body, a.timeout)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	var out ollamaResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &TransportError{Provider: a.name, Permanent: true, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	a.logger.Debug("Completion finished",
		zap.String("model", a.model),
		zap.Duration("latency", latency),
		zap.Int("tokens", out.EvalCount),
	)

	return &schemas.CompletionResponse{
		Content:    out.Response,
		Model:      a.model,
		Provider:   a.name,
		TokensUsed: out.EvalCount,
		Latency:    latency,
	}, nil
}

// HealthCheck probes the daemon's tag listing, which is cheap and does not
// load a model.
func (a *OllamaAdapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ListModels returns the model names the daemon has pulled.
func (a *OllamaAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama list models: unexpected status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
