// Package openai implements the OpenAI Chat Completions API provider,
// translating between the canonical request/delta format and OpenAI's wire
// format.
package openai

import (
	"context"
	"net/http"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxTokens is used when the request does not specify one.
	DefaultMaxTokens = 4096
)

// Provider implements the OpenAI Chat Completions API.
type Provider struct {
	model        string
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	extraHeaders map[string]string
}

var (
	_ core.Provider = (*Provider)(nil)
	_ core.Embedder = (*Provider)(nil)
)

// New creates a new OpenAI provider for the given model.
func New(model, apiKey string, opts ...Option) *Provider {
	p := &Provider{
		model:      model,
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ModelID returns the provider-qualified model identifier.
func (p *Provider) ModelID() string {
	return "openai/" + p.model
}

// Capabilities returns what this provider supports.
func (p *Provider) Capabilities() core.Capabilities {
	return core.Capabilities{
		Vision:        true,
		AudioInput:    true,
		AudioOutput:   true,
		Tools:         true,
		ToolStreaming: true,
		Thinking:      false,
		Embeddings:    true,
	}
}

// Generate sends a non-streaming request.
func (p *Provider) Generate(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, core.NewInvalidRequestError(err.Error())
	}

	body, err := p.doRequest(ctx, p.buildRequest(req))
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// Stream sends a streaming request and returns the canonical delta stream.
func (p *Provider) Stream(ctx context.Context, req *types.Request) (core.DeltaStream, error) {
	if err := req.Validate(); err != nil {
		return nil, core.NewInvalidRequestError(err.Error())
	}

	wireReq := p.buildRequest(req)
	wireReq.Stream = true
	wireReq.StreamOptions = &streamOptions{IncludeUsage: true}

	body, err := p.doStreamRequest(ctx, wireReq)
	if err != nil {
		return nil, err
	}
	return newDeltaStream(body), nil
}
