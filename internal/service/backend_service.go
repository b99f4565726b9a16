package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/generation"
	"github.com/vipplay/contentgen/internal/platform/ollama"
)

// Backend describes one callable model backend.
type Backend struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// BackendService exposes the backend registry: discovery of callable models,
// connection probes, and model pulls on the inference server.
type BackendService struct {
	ollama       *ollama.Client
	probers      map[string]generation.Prober
	geminiModels []string
	logger       *slog.Logger
}

// NewBackendService creates a BackendService. geminiModels lists the Gemini
// model identifiers exposed alongside whatever the Ollama server reports;
// Gemini has no local inventory to enumerate.
func NewBackendService(
	ollamaClient *ollama.Client,
	probers map[string]generation.Prober,
	geminiModels []string,
	logger *slog.Logger,
) *BackendService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendService{
		ollama:       ollamaClient,
		probers:      probers,
		geminiModels: geminiModels,
		logger:       logger.With("component", "backend_service"),
	}
}

// ListBackends returns the callable backend identifiers, prefixed by
// provider. Failure to reach the inference server surfaces as
// generation.ErrBackendUnavailable.
func (s *BackendService) ListBackends(ctx context.Context) ([]Backend, error) {
	models, err := s.ollama.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	backends := make([]Backend, 0, len(models)+len(s.geminiModels))
	for _, m := range models {
		backends = append(backends, Backend{
			ID:         ollama.Prefix + "/" + m.Name,
			Provider:   ollama.Prefix,
			SizeBytes:  m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}
	for _, name := range s.geminiModels {
		backends = append(backends, Backend{
			ID:       "gemini/" + name,
			Provider: "gemini",
		})
	}
	return backends, nil
}

// TestBackend probes a single backend. Probe failures are reported inside the
// result; only an unroutable identifier is an error.
func (s *BackendService) TestBackend(ctx context.Context, backendID string) (generation.ProbeResult, error) {
	prefix, _ := generation.SplitBackendID(backendID)
	prober, ok := s.probers[prefix]
	if !ok {
		return generation.ProbeResult{}, fmt.Errorf("%w: %q", generation.ErrUnknownBackend, backendID)
	}

	result := prober.TestConnection(ctx, backendID)
	s.logger.InfoContext(ctx, "backend probed",
		"backend", backendID, "success", result.Success, "response_time_ms", result.ResponseTimeMs)
	return result, nil
}

// PullModel downloads a model onto the inference server. Only Ollama backends
// support pulls.
func (s *BackendService) PullModel(ctx context.Context, backendID string) error {
	prefix, _ := generation.SplitBackendID(backendID)
	if prefix != ollama.Prefix {
		return fmt.Errorf("%w: pull is only supported for %s backends",
			domain.ErrValidation, ollama.Prefix)
	}
	return s.ollama.Pull(ctx, backendID)
}
