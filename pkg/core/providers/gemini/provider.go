// Package gemini implements the Google Gemini generateContent API provider.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Provider implements the Gemini generateContent API.
type Provider struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var (
	_ core.Provider = (*Provider)(nil)
	_ core.Embedder = (*Provider)(nil)
)

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

// New creates a new Gemini provider for the given model.
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
	return "google/" + p.model
}

// Capabilities returns what this provider supports.
func (p *Provider) Capabilities() core.Capabilities {
	return core.Capabilities{
		Vision:     true,
		AudioInput: true,
		Tools:      true,
		Thinking:   true,
		Embeddings: true,
	}
}

// Generate sends a non-streaming request.
func (p *Provider) Generate(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, core.NewInvalidRequestError(err.Error())
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	resp, err := p.post(ctx, url, p.buildRequest(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewNetworkError(err)
	}
	return parseResponse(body)
}

// Stream sends a streaming request. Gemini streams whole JSON chunks over
// SSE rather than named events.
func (p *Provider) Stream(ctx context.Context, req *types.Request) (core.DeltaStream, error) {
	if err := req.Validate(); err != nil {
		return nil, core.NewInvalidRequestError(err.Error())
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, p.model)
	resp, err := p.post(ctx, url, p.buildRequest(req))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return newDeltaStream(resp.Body), nil
}

func (p *Provider) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewNetworkError(err)
	}
	return resp, nil
}

// wireError is the Google API error envelope.
type wireError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := string(body)
	var envelope wireError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.NewAuthenticationError(message)
	case http.StatusTooManyRequests:
		return core.NewRateLimitError(message, 0)
	case http.StatusBadRequest, http.StatusNotFound:
		return core.NewInvalidRequestError(message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return core.NewOverloadedError(message)
	default:
		return core.NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, message))
	}
}
