package types

// Channel classifies which lane of a multi-channel response a delta belongs
// to. It lets consumers separate the visible answer from internal reasoning
// without parsing provider-specific markers. The empty channel is legacy
// untagged assistant text.
type Channel string

const (
	ChannelThinking   Channel = "thinking"
	ChannelAnalysis   Channel = "analysis"
	ChannelCommentary Channel = "commentary"
	ChannelFinal      Channel = "final"
)

// DeltaKind identifies a canonical delta variant.
type DeltaKind string

const (
	// DeltaText carries incremental assistant text.
	DeltaText DeltaKind = "text_delta"
	// DeltaToolCall carries an incremental (or complete) tool invocation.
	DeltaToolCall DeltaKind = "tool_call_delta"
	// DeltaToolResult carries server-side tool output streamed back inline.
	DeltaToolResult DeltaKind = "tool_result_delta"
	// DeltaReasoning carries incremental reasoning/thinking text.
	DeltaReasoning DeltaKind = "reasoning_delta"
	// DeltaError reports a provider error mid-stream. It is always followed
	// by exactly one DeltaDone.
	DeltaError DeltaKind = "error"
	// DeltaDone terminates a stream. Exactly one occurs per stream and no
	// deltas follow it.
	DeltaDone DeltaKind = "done"
)

// Delta is one normalized unit of streamed model output, provider-agnostic.
// Deltas are created by a provider stream decoder, consumed once, and never
// persisted.
type Delta struct {
	Kind    DeltaKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Channel Channel   `json:"channel,omitempty"`

	// ToolCall is set for DeltaToolCall. ArgumentsJSON may be a fragment;
	// consumers concatenate fragments in order, keyed on ID.
	ToolCall *ToolCallDelta `json:"tool_call,omitempty"`

	// ToolResult is set for DeltaToolResult.
	ToolResult *ToolResultDelta `json:"tool_result,omitempty"`

	// StopReason and Usage are populated on DeltaDone when the provider
	// reported them.
	StopReason StopReason `json:"stop_reason,omitempty"`
	Usage      *Usage     `json:"usage,omitempty"`

	// Err is set for DeltaError.
	Err error `json:"-"`
}

// ToolCallDelta is an incremental tool invocation.
type ToolCallDelta struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// ArgumentsJSON is a fragment of the JSON arguments document. Fragments
	// for the same ID concatenate, in delta order, into a complete document.
	ArgumentsJSON string `json:"arguments_json,omitempty"`
	// Complete is true once the provider has signalled that the arguments
	// for this call are final.
	Complete bool `json:"complete,omitempty"`
}

// ToolResultDelta is server-executed tool output streamed back inline.
type ToolResultDelta struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// StopReason explains why generation stopped.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopSequence  StopReason = "stop_sequence"
	StopToolUse   StopReason = "tool_use"
	StopError     StopReason = "error"
)

// NewTextDelta creates a final-channel text delta.
func NewTextDelta(text string) *Delta {
	return &Delta{Kind: DeltaText, Text: text, Channel: ChannelFinal}
}

// NewReasoningDelta creates a thinking-channel reasoning delta.
func NewReasoningDelta(text string) *Delta {
	return &Delta{Kind: DeltaReasoning, Text: text, Channel: ChannelThinking}
}

// NewDoneDelta creates the terminal delta for a stream.
func NewDoneDelta(reason StopReason, usage *Usage) *Delta {
	return &Delta{Kind: DeltaDone, StopReason: reason, Usage: usage}
}

// NewErrorDelta creates an error delta wrapping err.
func NewErrorDelta(err error) *Delta {
	return &Delta{Kind: DeltaError, Err: err}
}
