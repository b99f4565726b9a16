package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/vipplay/contentgen/internal/domain"
)

// Request carries the inputs for generating a single article. Index
// distinguishes sibling tasks of a bulk job so prompts stay distinct.
type Request struct {
	Mode   domain.GenerationMode
	Params domain.JobParams
	Index  int
}

// Result is a successfully generated article.
type Result struct {
	Content string
	Backend string
}

// Generator defines the interface for producing one article from a backend.
// This interface is the boundary between the scheduler and external inference
// services; backendID is the full identifier including its client prefix
// (e.g. "ollama/llama3.1:8b", "gemini/gemini-2.0-flash").
type Generator interface {
	Generate(ctx context.Context, backendID string, req Request) (*Result, error)
}

// Prober checks reachability of a single backend. Probes never return an
// error; failures are reported inside the result.
type Prober interface {
	TestConnection(ctx context.Context, backendID string) ProbeResult
}

// ProbeResult is the outcome of a connection test.
type ProbeResult struct {
	Success        bool   `json:"success"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Response       string `json:"response,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SplitBackendID splits a backend identifier into its client prefix and bare
// model name. Identifiers without a prefix default to "ollama", matching the
// upstream convention.
func SplitBackendID(backendID string) (prefix, model string) {
	if i := strings.IndexByte(backendID, '/'); i > 0 {
		return backendID[:i], backendID[i+1:]
	}
	return "ollama", backendID
}

// Mux dispatches generation requests to the client registered for the
// backend identifier's prefix.
type Mux struct {
	clients map[string]Generator
}

// NewMux creates a Mux over the given prefix-to-client mapping.
func NewMux(clients map[string]Generator) (*Mux, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: no backend clients registered", ErrInvalidConfig)
	}
	return &Mux{clients: clients}, nil
}

// Generate routes the request to the matching client.
func (m *Mux) Generate(ctx context.Context, backendID string, req Request) (*Result, error) {
	prefix, _ := SplitBackendID(backendID)
	client, ok := m.clients[prefix]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backendID)
	}
	return client.Generate(ctx, backendID, req)
}

// BuildPrompt renders the instruction sent to a backend for the given
// request. Prompt shapes follow the upstream generation modes.
func BuildPrompt(req Request) string {
	p := req.Params

	wordCount := p.WordCount
	if wordCount <= 0 {
		wordCount = 1200
	}
	tone := p.Tone
	if tone == "" {
		tone = "Professional"
	}

	topic := topicForIndex(p.Topics, req.Index)

	var b strings.Builder
	switch req.Mode {
	case domain.ModeTopic:
		fmt.Fprintf(&b, "Write a %d-word article in a %s tone about: %s.", wordCount, tone, topic)
	case domain.ModeKeywords:
		fmt.Fprintf(&b, "Write a %d-word article in a %s tone about: %s.",
			wordCount, tone, strings.Join(p.Keywords, ", "))
	case domain.ModeTrends:
		region := p.Region
		if region == "" {
			region = "US"
		}
		fmt.Fprintf(&b, "Write a %d-word article in a %s tone covering the trending topic %q in %s.",
			wordCount, tone, p.TrendTopic, region)
	case domain.ModeSpin:
		angle := p.SpinAngle
		if angle == "" {
			angle = "fresh perspective"
		}
		if topic != "" {
			angle = angle + " - " + topic
		}
		intensity := p.SpinIntensity
		if intensity == "" {
			intensity = "medium"
		}
		fmt.Fprintf(&b,
			"Rewrite the following article with a %s spin toward %q, around %d words, %s tone.\n\n%s",
			intensity, angle, wordCount, tone, p.OriginalContent)
	case domain.ModeFreeform:
		b.WriteString(p.Prompt)
	}

	if len(p.Keywords) > 0 && req.Mode != domain.ModeKeywords {
		fmt.Fprintf(&b, " Naturally include these keywords: %s.", strings.Join(p.Keywords, ", "))
	}

	return b.String()
}

func topicForIndex(topics []string, index int) string {
	if len(topics) == 0 {
		return ""
	}
	if index < len(topics) {
		return topics[index]
	}
	return topics[index%len(topics)]
}
