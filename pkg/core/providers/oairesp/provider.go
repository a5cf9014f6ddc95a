// Package oairesp implements the OpenAI Responses API provider. It shares
// OpenAI's auth and error envelope with the Chat Completions provider but
// speaks the newer item-based request format and named-event SSE grammar.
package oairesp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxTokens is used when the request does not specify one.
	DefaultMaxTokens = 4096
)

// Provider implements the OpenAI Responses API.
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

// New creates a new Responses API provider for the given model.
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
	return "openai-responses/" + p.model
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

	resp, err := p.post(ctx, p.buildRequest(req))
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

// Stream sends a streaming request and returns the canonical delta stream.
func (p *Provider) Stream(ctx context.Context, req *types.Request) (core.DeltaStream, error) {
	if err := req.Validate(); err != nil {
		return nil, core.NewInvalidRequestError(err.Error())
	}

	wireReq := p.buildRequest(req)
	wireReq.Stream = true

	resp, err := p.post(ctx, wireReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return newDeltaStream(resp.Body), nil
}

func (p *Provider) post(ctx context.Context, payload *responsesRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewNetworkError(err)
	}
	return resp, nil
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := string(body)
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.NewAuthenticationError(message)
	case http.StatusTooManyRequests:
		return core.NewRateLimitError(message, retryAfterHeader(resp))
	case http.StatusBadRequest, http.StatusNotFound:
		return core.NewInvalidRequestError(message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return core.NewOverloadedError(message)
	default:
		return core.NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, message))
	}
}

func retryAfterHeader(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
