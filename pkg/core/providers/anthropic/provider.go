// Package anthropic implements the Anthropic Messages API provider.
package anthropic

import (
	"context"
	"net/http"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

const (
	// DefaultBaseURL is the default Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the anthropic-version header value.
	APIVersion = "2023-06-01"

	// DefaultMaxTokens is used when the request does not specify one.
	DefaultMaxTokens = 4096
)

// Provider implements the Anthropic Messages API.
type Provider struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ core.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// New creates a new Anthropic provider for the given model.
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
	return "anthropic/" + p.model
}

// Capabilities returns what this provider supports.
func (p *Provider) Capabilities() core.Capabilities {
	return core.Capabilities{
		Vision:        true,
		Tools:         true,
		ToolStreaming: true,
		Thinking:      true,
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

	body, err := p.doStreamRequest(ctx, wireReq)
	if err != nil {
		return nil, err
	}
	return newDeltaStream(body), nil
}
