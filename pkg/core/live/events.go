package live

// Event is the interface for all session events delivered to the caller.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// ConnectedEvent is emitted once the session handshake completes, including
// after a successful reconnect.
type ConnectedEvent struct {
	SessionID   string `json:"session_id"`
	Reconnected bool   `json:"reconnected,omitempty"`
}

func (e *ConnectedEvent) EventType() string { return "connected" }

// ReconnectingEvent is emitted when the transport dropped and a reconnection
// attempt is about to run.
type ReconnectingEvent struct {
	Attempt int `json:"attempt"`
}

func (e *ReconnectingEvent) EventType() string { return "reconnecting" }

// DisconnectedEvent is emitted when the session gives up: either End was
// called or reconnection attempts were exhausted.
type DisconnectedEvent struct {
	Fatal bool   `json:"fatal,omitempty"`
	Error string `json:"error,omitempty"`
}

func (e *DisconnectedEvent) EventType() string { return "disconnected" }

// TurnStateEvent is emitted on every turn state transition.
type TurnStateEvent struct {
	From TurnState `json:"from"`
	To   TurnState `json:"to"`
}

func (e *TurnStateEvent) EventType() string { return "turn_state" }

// TextDeltaEvent carries incremental response text.
type TextDeltaEvent struct {
	Delta string `json:"delta"`
}

func (e *TextDeltaEvent) EventType() string { return "text.delta" }

// TranscriptDeltaEvent carries incremental transcript of the response audio.
type TranscriptDeltaEvent struct {
	Delta string `json:"delta"`
}

func (e *TranscriptDeltaEvent) EventType() string { return "transcript.delta" }

// AudioDeltaEvent carries a decoded PCM chunk of response audio.
type AudioDeltaEvent struct {
	Data []byte `json:"data"`
}

func (e *AudioDeltaEvent) EventType() string { return "audio.delta" }

// AudioLevelEvent reports the energy of outgoing audio, for UI level meters.
type AudioLevelEvent struct {
	RMS     float64 `json:"rms"`
	IsVoice bool    `json:"is_voice"`
}

func (e *AudioLevelEvent) EventType() string { return "audio.level" }

// ItemCreatedEvent is emitted when the server acknowledges a conversation
// item.
type ItemCreatedEvent struct {
	Item ConversationItem `json:"item"`
}

func (e *ItemCreatedEvent) EventType() string { return "item.created" }

// ToolCallEvent is emitted when the model requests a tool invocation, before
// the handler runs.
type ToolCallEvent struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (e *ToolCallEvent) EventType() string { return "tool.call" }

// ToolResultEvent is emitted after a tool handler completes and its output
// has been sent back over the transport.
type ToolResultEvent struct {
	CallID  string `json:"call_id"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error,omitempty"`
}

func (e *ToolResultEvent) EventType() string { return "tool.result" }

// ResponseDoneEvent marks the completion of one model response.
type ResponseDoneEvent struct {
	ResponseID string `json:"response_id,omitempty"`
}

func (e *ResponseDoneEvent) EventType() string { return "response.done" }

// DebugEvent surfaces server frames the session does not act on, so callers
// can observe the raw protocol traffic without a logger.
type DebugEvent struct {
	Type string `json:"type"`
}

func (e *DebugEvent) EventType() string { return "debug" }

// ErrorEvent is emitted for provider or transport errors that do not end the
// session.
type ErrorEvent struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }
