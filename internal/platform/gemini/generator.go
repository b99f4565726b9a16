// Package gemini implements article generation against Google's Gemini API
// for backends identified with the "gemini/" prefix.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vipplay/contentgen/internal/generation"
	"google.golang.org/genai"
)

// Prefix is the backend identifier prefix handled by this client.
const Prefix = "gemini"

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger *slog.Logger
	client *genai.Client
}

// NewGenerator creates a Generator authenticated with the given API key.
func NewGenerator(ctx context.Context, apiKey string, logger *slog.Logger) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger: logger.With("component", "gemini_generator"),
		client: client,
	}, nil
}

var _ generation.Generator = (*Generator)(nil)
var _ generation.Prober = (*Generator)(nil)

// Generate produces one article via the Gemini API.
func (g *Generator) Generate(
	ctx context.Context,
	backendID string,
	req generation.Request,
) (*generation.Result, error) {
	_, model := generation.SplitBackendID(backendID)
	prompt := generation.BuildPrompt(req)

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call failed", "model", model, "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrBackendUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	return &generation.Result{Content: text, Backend: backendID}, nil
}

// TestConnection issues a minimal generation call to verify the model is
// reachable. It never returns an error; failures are reported in the result.
func (g *Generator) TestConnection(ctx context.Context, backendID string) generation.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, model := generation.SplitBackendID(backendID)

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text("ping"), nil)
	elapsed := time.Since(start).Milliseconds()

	result := generation.ProbeResult{ResponseTimeMs: elapsed}
	if err != nil {
		result.Error = fmt.Sprintf("connection failed: %v", err)
		return result
	}
	if resp == nil || len(resp.Candidates) == 0 {
		result.Error = "no content in probe response"
		return result
	}

	result.Success = true
	result.Response = fmt.Sprintf("model %s available", model)
	return result
}
