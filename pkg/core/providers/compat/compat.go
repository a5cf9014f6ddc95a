// Package compat serves OpenAI-compatible vendors through the Chat
// Completions grammar, parameterized by endpoint and model-id prefix.
package compat

import (
	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/providers/openai"
)

// Preset identifies a known OpenAI-compatible vendor.
type Preset struct {
	// Name prefixes the model id (e.g. "groq/llama-3.3-70b").
	Name string
	// BaseURL is the vendor's OpenAI-compatible endpoint.
	BaseURL string
	// ExtraHeaders are added to every request.
	ExtraHeaders map[string]string
}

// Known vendor presets. The zero Preset is invalid; callers with an
// unlisted vendor construct their own.
var (
	Groq       = Preset{Name: "groq", BaseURL: "https://api.groq.com/openai/v1"}
	XAI        = Preset{Name: "xai", BaseURL: "https://api.x.ai/v1"}
	Mistral    = Preset{Name: "mistral", BaseURL: "https://api.mistral.ai/v1"}
	OpenRouter = Preset{Name: "openrouter", BaseURL: "https://openrouter.ai/api/v1"}
	Cerebras   = Preset{Name: "cerebras", BaseURL: "https://api.cerebras.ai/v1"}
)

// Provider speaks the Chat Completions wire format against a compatible
// vendor endpoint. Only the model identity differs from the OpenAI provider.
type Provider struct {
	*openai.Provider
	prefix string
	model  string
}

var _ core.Provider = (*Provider)(nil)

// New creates a provider for an OpenAI-compatible vendor.
func New(preset Preset, model, apiKey string, opts ...openai.Option) *Provider {
	base := []openai.Option{openai.WithBaseURL(preset.BaseURL)}
	if len(preset.ExtraHeaders) > 0 {
		base = append(base, openai.WithExtraHeaders(preset.ExtraHeaders))
	}
	return &Provider{
		Provider: openai.New(model, apiKey, append(base, opts...)...),
		prefix:   preset.Name,
		model:    model,
	}
}

// ModelID returns the vendor-qualified model identifier.
func (p *Provider) ModelID() string {
	return p.prefix + "/" + p.model
}

// Capabilities returns a conservative capability set; compatible vendors
// generally support tools and streaming but not OpenAI's multimodal
// extensions.
func (p *Provider) Capabilities() core.Capabilities {
	return core.Capabilities{
		Tools:         true,
		ToolStreaming: true,
	}
}
