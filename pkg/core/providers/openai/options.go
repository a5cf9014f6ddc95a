package openai

import "net/http"

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint. Useful for proxies and
// OpenAI-compatible servers.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// WithExtraHeaders adds headers to every request.
func WithExtraHeaders(headers map[string]string) Option {
	return func(p *Provider) { p.extraHeaders = headers }
}
