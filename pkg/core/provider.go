package core

import (
	"context"

	"github.com/samber/lo"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// Provider is the interface that all LLM providers implement.
type Provider interface {
	// ModelID returns the provider-qualified model identifier
	// (e.g. "anthropic/claude-sonnet-4-5").
	ModelID() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Generate sends a non-streaming request.
	Generate(ctx context.Context, req *types.Request) (*types.Response, error)

	// Stream sends a streaming request. The returned stream yields canonical
	// deltas and terminates with exactly one done delta followed by io.EOF.
	Stream(ctx context.Context, req *types.Request) (DeltaStream, error)
}

// DeltaStream is a pull iterator over canonical deltas. A stream instance is
// finite, consumed once, and not restartable. Close releases the underlying
// transport read.
type DeltaStream interface {
	// Next returns the next delta. After the terminal done delta it returns
	// nil, io.EOF.
	Next() (*types.Delta, error)

	// Close releases resources.
	Close() error
}

// Embedder is implemented by providers whose upstream API offers embeddings.
type Embedder interface {
	Embed(ctx context.Context, req *types.EmbedRequest) (*types.EmbedResponse, error)
}

// Capabilities describes what a provider supports.
type Capabilities struct {
	Vision        bool `json:"vision"`
	AudioInput    bool `json:"audio_input"`
	AudioOutput   bool `json:"audio_output"`
	Tools         bool `json:"tools"`
	ToolStreaming bool `json:"tool_streaming"`
	Thinking      bool `json:"thinking"`
	Embeddings    bool `json:"embeddings"`
}

// ProviderMap is an explicit, immutable-after-construction provider lookup.
// It is passed to whatever constructs a facade; there is no process-wide
// registry.
type ProviderMap struct {
	providers map[string]Provider
}

// NewProviderMap builds a map from the given providers, keyed by ModelID.
func NewProviderMap(providers ...Provider) *ProviderMap {
	m := &ProviderMap{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		m.providers[p.ModelID()] = p
	}
	return m
}

// Get returns the provider for a model id.
func (m *ProviderMap) Get(modelID string) (Provider, bool) {
	p, ok := m.providers[modelID]
	return p, ok
}

// List returns all registered model ids.
func (m *ProviderMap) List() []string {
	return lo.Keys(m.providers)
}
