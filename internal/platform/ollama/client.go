// Package ollama implements the generation, probing and model-administration
// operations against an Ollama inference server.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vipplay/contentgen/internal/generation"
)

// Prefix is the backend identifier prefix handled by this client.
const Prefix = "ollama"

// probeTimeout bounds connection tests so an unreachable server fails fast.
const probeTimeout = 5 * time.Second

// ModelInfo describes one model available on the inference server.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Client talks to an Ollama server. It implements generation.Generator and
// generation.Prober and additionally exposes the admin operations (list,
// pull) used by the backend registry.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  *slog.Logger

	temperature float64
	maxTokens   int
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// NewClient creates a Client for the given server.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: ollama base URL is required", generation.ErrInvalidConfig)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:        r,
		baseURL:     opts.BaseURL,
		logger:      logger.With("component", "ollama_client"),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

var _ generation.Generator = (*Client)(nil)
var _ generation.Prober = (*Client)(nil)

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate produces one article. The "ollama/" prefix is stripped before the
// model name goes on the wire; the API client expects the bare name.
func (c *Client) Generate(
	ctx context.Context,
	backendID string,
	req generation.Request,
) (*generation.Result, error) {
	_, model := generation.SplitBackendID(backendID)

	body := generateRequest{
		Model:  model,
		Prompt: generation.BuildPrompt(req),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		c.logger.Error("generation request failed", "model", model, "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrBackendUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: server returned %d",
				generation.ErrBackendUnavailable, resp.StatusCode())
		}
		return nil, fmt.Errorf("%w: server returned %d: %s",
			generation.ErrGenerationFailed, resp.StatusCode(), out.Error)
	}
	if out.Response == "" {
		return nil, generation.ErrInvalidResponse
	}

	return &generation.Result{Content: out.Response, Backend: backendID}, nil
}

// TestConnection probes the server and reports reachability plus latency.
// It never returns an error; unreachable servers yield Success=false.
func (c *Client) TestConnection(ctx context.Context, backendID string) generation.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get("/api/tags")
	elapsed := time.Since(start).Milliseconds()

	result := generation.ProbeResult{ResponseTimeMs: elapsed}
	if err != nil {
		result.Error = fmt.Sprintf("connection failed: %v", err)
		return result
	}
	if resp.StatusCode() != http.StatusOK {
		result.Error = fmt.Sprintf("server returned status %d", resp.StatusCode())
		return result
	}

	// Confirm the probed model actually exists on the server.
	_, model := generation.SplitBackendID(backendID)
	models, err := c.listTags(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("failed to list models: %v", err)
		return result
	}
	for _, m := range models {
		if m.Name == model {
			result.Success = true
			result.Response = fmt.Sprintf("model %s available", model)
			return result
		}
	}

	result.Error = fmt.Sprintf("model %s not found on server", model)
	return result
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels returns the models installed on the inference server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return c.listTags(ctx)
}

func (c *Client) listTags(ctx context.Context) ([]ModelInfo, error) {
	var out tagsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/tags")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrBackendUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d",
			generation.ErrBackendUnavailable, resp.StatusCode())
	}
	return out.Models, nil
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Pull asks the server to download a model. Pulls are slow; the caller's
// context bounds the wait.
func (c *Client) Pull(ctx context.Context, backendID string) error {
	_, model := generation.SplitBackendID(backendID)

	var out pullResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(pullRequest{Name: model, Stream: false}).
		SetResult(&out).
		Post("/api/pull")
	if err != nil {
		return fmt.Errorf("%w: %v", generation.ErrBackendUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: pull returned %d: %s",
			generation.ErrBackendUnavailable, resp.StatusCode(), out.Error)
	}

	c.logger.Info("model pulled", "model", model, "status", out.Status)
	return nil
}
