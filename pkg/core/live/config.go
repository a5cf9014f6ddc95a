package live

import (
	"time"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// ConnState represents the transport-level state of the session.
type ConnState int

const (
	// StateDisconnected is the initial state and the state after End.
	StateDisconnected ConnState = iota
	// StateConnecting is while the transport dial and session handshake run.
	StateConnecting
	// StateConnected is the normal operating state.
	StateConnected
	// StateReconnecting is after a transport drop while auto-reconnect runs.
	StateReconnecting
	// StateErrored is terminal: reconnection attempts were exhausted.
	StateErrored
)

// String returns a human-readable connection state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateErrored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// TurnState tracks the conversational turn, orthogonal to connection state.
type TurnState int

const (
	// TurnIdle is between turns.
	TurnIdle TurnState = iota
	// TurnListening is while user audio is being captured.
	TurnListening
	// TurnProcessing is while the model is generating a response.
	TurnProcessing
	// TurnSpeaking is while response audio is streaming out.
	TurnSpeaking
)

// String returns a human-readable turn state name.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "IDLE"
	case TurnListening:
		return "LISTENING"
	case TurnProcessing:
		return "PROCESSING"
	case TurnSpeaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds all configuration for a realtime session.
type SessionConfig struct {
	// Model is the realtime model to use.
	Model string `json:"model"`

	// Voice selects the output voice.
	Voice string `json:"voice,omitempty"`

	// Instructions is the system prompt for the session.
	Instructions string `json:"instructions,omitempty"`

	// Tools are offered to the model for the whole session.
	Tools []types.Tool `json:"tools,omitempty"`

	// VAD configures voice activity detection.
	VAD VADConfig `json:"vad"`

	// Reconnect configures automatic reconnection.
	Reconnect ReconnectConfig `json:"reconnect"`

	// Audio is the PCM format for both directions.
	Audio AudioConfig `json:"audio"`

	// ToolTimeout bounds each tool execution. Default: 30s.
	ToolTimeout time.Duration `json:"tool_timeout,omitempty"`

	// ConnectTimeout bounds the dial plus session handshake. Default: 15s.
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		VAD:            DefaultVADConfig(),
		Reconnect:      DefaultReconnectConfig(),
		Audio:          DefaultAudioConfig(),
		ToolTimeout:    30 * time.Second,
		ConnectTimeout: 15 * time.Second,
	}
}

// VADConfig configures voice activity detection. With Server set the session
// forwards all audio and lets the provider segment turns; otherwise a local
// energy gate only forwards audio while voice is detected or within the
// trailing silence window.
type VADConfig struct {
	// Server delegates turn detection to the provider.
	Server bool `json:"server"`

	// EnergyThreshold is the RMS level below which audio counts as silence.
	// Range 0.0 to 1.0. Default: 0.02.
	EnergyThreshold float64 `json:"energy_threshold"`

	// SilenceDurationMs is the trailing window after the last detected voice
	// during which audio is still forwarded. Default: 500.
	SilenceDurationMs int `json:"silence_duration_ms"`
}

// DefaultVADConfig returns a VADConfig with sensible defaults.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Server:            true,
		EnergyThreshold:   0.02,
		SilenceDurationMs: 500,
	}
}

// ReconnectConfig configures behavior after a transport-level disconnect.
// Reconnection uses a fixed delay rather than exponential backoff; these are
// human-paced interactive sessions.
type ReconnectConfig struct {
	// Auto enables reconnection after unexpected disconnects.
	Auto bool `json:"auto"`

	// MaxAttempts bounds consecutive reconnection attempts. Default: 5.
	MaxAttempts int `json:"max_attempts"`

	// Delay is the fixed wait between attempts. Default: 2s.
	Delay time.Duration `json:"delay"`

	// BufferWhileDisconnected queues outgoing audio during reconnection and
	// flushes it once the transport is back. When false, audio sent while
	// disconnected is discarded.
	BufferWhileDisconnected bool `json:"buffer_while_disconnected"`

	// MaxAudioBufferMs bounds the disconnect buffer; oldest bytes are dropped
	// on overflow. Default: 10000 (10 seconds).
	MaxAudioBufferMs int `json:"max_audio_buffer_ms"`
}

// DefaultReconnectConfig returns a ReconnectConfig with sensible defaults.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Auto:                    true,
		MaxAttempts:             5,
		Delay:                   2 * time.Second,
		BufferWhileDisconnected: true,
		MaxAudioBufferMs:        10000,
	}
}

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. Realtime APIs expect 24000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultAudioConfig returns the standard 24kHz mono PCM16 configuration.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    24000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMs(bytes int) int {
	if c.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / c.BytesPerSecond()
}

// BytesForDurationMs returns the byte count for the given duration in
// milliseconds.
func (c AudioConfig) BytesForDurationMs(ms int) int {
	return (c.BytesPerSecond() * ms) / 1000
}
