package types

import "errors"

// ErrNoMessages is returned when a request carries an empty message list.
var ErrNoMessages = errors.New("request has no messages")

// ReasoningEffort hints how much internal reasoning the model should spend.
type ReasoningEffort string

const (
	EffortLow    ReasoningEffort = "low"
	EffortMedium ReasoningEffort = "medium"
	EffortHigh   ReasoningEffort = "high"
)

// GenerationSettings are the provider-agnostic sampling parameters.
type GenerationSettings struct {
	MaxTokens       int             `json:"max_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty"`
	StopSequences   []string        `json:"stop_sequences,omitempty"`

	// ProviderOptions are passthrough options keyed by provider name.
	ProviderOptions map[string]Value `json:"provider_options,omitempty"`
}

// Request is an immutable value describing one generation call.
type Request struct {
	Model    string             `json:"model"`
	System   string             `json:"system,omitempty"`
	Messages []Message          `json:"messages"`
	Tools    []Tool             `json:"tools,omitempty"`
	Settings GenerationSettings `json:"settings"`
}

// Validate reports whether the request is well-formed.
func (r *Request) Validate() error {
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

// EmbedRequest describes one embedding call.
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}
