package live

import "encoding/json"

// ClientEvent is the outbound wire envelope. One struct covers every client
// event type; unused fields stay empty and are omitted from the frame.
type ClientEvent struct {
	Type string `json:"type"`

	// session.update
	Session *SessionUpdate `json:"session,omitempty"`

	// input_audio_buffer.append: base64 PCM16.
	Audio string `json:"audio,omitempty"`

	// conversation.item.create
	Item *ConversationItem `json:"item,omitempty"`

	// conversation.item.truncate
	ItemID string `json:"item_id,omitempty"`

	// response.create / response.cancel carry no payload.
}

// Client event types.
const (
	ClientSessionUpdate  = "session.update"
	ClientAudioAppend    = "input_audio_buffer.append"
	ClientAudioCommit    = "input_audio_buffer.commit"
	ClientItemCreate     = "conversation.item.create"
	ClientItemTruncate   = "conversation.item.truncate"
	ClientResponseCreate = "response.create"
	ClientResponseCancel = "response.cancel"
)

// SessionUpdate is the session-configuration frame payload.
type SessionUpdate struct {
	Model             string         `json:"model,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Tools             []SessionTool  `json:"tools,omitempty"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
}

// SessionTool is the wire shape of a tool offered over the session.
type SessionTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// TurnDetection configures provider-side VAD. Nil disables it, leaving turn
// segmentation to the client.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// ServerEvent is the inbound wire envelope.
type ServerEvent struct {
	Type string `json:"type"`

	// session.created / session.updated
	Session *struct {
		ID string `json:"id"`
	} `json:"session,omitempty"`

	// response.text.delta / response.audio_transcript.delta
	Delta string `json:"delta,omitempty"`

	// response.audio.delta: base64 PCM16.
	Audio string `json:"audio,omitempty"`

	// conversation.item.created
	Item *ConversationItem `json:"item,omitempty"`

	// response.function_call_arguments.delta/.done
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// response.done
	Response *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response,omitempty"`

	// error
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Server event types.
const (
	ServerSessionCreated  = "session.created"
	ServerSessionUpdated  = "session.updated"
	ServerItemCreated     = "conversation.item.created"
	ServerTextDelta       = "response.text.delta"
	ServerAudioDelta      = "response.audio.delta"
	ServerTranscriptDelta = "response.audio_transcript.delta"
	ServerFuncArgsDelta   = "response.function_call_arguments.delta"
	ServerFuncArgsDone    = "response.function_call_arguments.done"
	ServerResponseDone    = "response.done"
	ServerSpeechStarted   = "input_audio_buffer.speech_started"
	ServerSpeechStopped   = "input_audio_buffer.speech_stopped"
	ServerError           = "error"
)
