// Package live implements the realtime duplex session: connection lifecycle,
// turn state, audio gating, tool dispatch, and conversation history over a
// websocket transport.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
	"github.com/crosstalk-ai/crosstalk/pkg/tools"
)

// Session is a realtime duplex session. All state transitions serialize
// through one mutex; audio capture, network receive, and tool execution run
// concurrently but funnel their state changes through it.
type Session struct {
	config    SessionConfig
	transport Transport
	registry  *tools.Registry
	log       zerolog.Logger

	mu        sync.Mutex
	connState ConnState
	turnState TurnState
	sessionID string
	ended     bool

	items            itemStore
	vad              *EnergyVAD
	disconnectBuffer *AudioBuffer

	// pendingToolArgs accumulates argument fragments per call id until the
	// server marks them done.
	pendingToolArgs map[string]string
	pendingToolName map[string]string

	events  chan Event
	created chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithTools attaches a tool registry for dispatching model tool calls.
func WithTools(registry *tools.Registry) Option {
	return func(s *Session) { s.registry = registry }
}

// NewSession creates a session over the given transport. The session owns
// the transport from Start until End.
func NewSession(transport Transport, config SessionConfig, opts ...Option) *Session {
	s := &Session{
		config:           config,
		transport:        transport,
		log:              zerolog.Nop(),
		connState:        StateDisconnected,
		turnState:        TurnIdle,
		vad:              NewEnergyVAD(config.VAD),
		disconnectBuffer: NewAudioBuffer(config.Audio, config.Reconnect.MaxAudioBufferMs),
		pendingToolArgs:  make(map[string]string),
		pendingToolName:  make(map[string]string),
		events:           make(chan Event, 256),
		created:          make(chan string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the session event channel. It is buffered; a consumer that
// falls far behind loses events rather than stalling the session. The
// channel closes after End.
func (s *Session) Events() <-chan Event {
	return s.events
}

// ConnState returns the current connection state.
func (s *Session) ConnState() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// TurnState returns the current turn state.
func (s *Session) TurnState() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnState
}

// Start opens the transport, sends the session configuration, and waits for
// the server's session-created acknowledgment.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.connState != StateDisconnected || s.ended {
		s.mu.Unlock()
		return core.NewConnectionError("session already started", nil)
	}
	s.connState = StateConnecting
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	timeout := s.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.connect(dialCtx); err != nil {
		s.mu.Lock()
		s.connState = StateDisconnected
		s.mu.Unlock()
		s.cancel()
		return err
	}

	s.wg.Add(1)
	go s.runLoop(s.transport.Events())

	select {
	case id := <-s.created:
		s.mu.Lock()
		s.sessionID = id
		s.connState = StateConnected
		s.emitLocked(&ConnectedEvent{SessionID: id})
		s.mu.Unlock()
		s.log.Info().Str("session_id", id).Msg("live session started")
		return nil
	case <-dialCtx.Done():
		s.shutdown()
		return core.NewConnectionError("timed out waiting for session acknowledgment", dialCtx.Err())
	}
}

// connect dials the transport and sends the configuration frame.
func (s *Session) connect(ctx context.Context) error {
	if err := s.transport.Connect(ctx); err != nil {
		return err
	}
	return s.transport.Send(s.sessionUpdateFrame())
}

func (s *Session) sessionUpdateFrame() *ClientEvent {
	update := &SessionUpdate{
		Model:             s.config.Model,
		Voice:             s.config.Voice,
		Instructions:      s.config.Instructions,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
	}
	if s.config.VAD.Server {
		update.TurnDetection = &TurnDetection{
			Type:              "server_vad",
			Threshold:         s.config.VAD.EnergyThreshold,
			SilenceDurationMs: s.config.VAD.SilenceDurationMs,
		}
	}
	for _, tool := range s.config.Tools {
		params, err := json.Marshal(map[string]any{
			"type":       "object",
			"properties": tool.Parameters.Properties,
			"required":   tool.Parameters.Required,
		})
		if err != nil {
			continue
		}
		update.Tools = append(update.Tools, SessionTool{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return &ClientEvent{Type: ClientSessionUpdate, Session: update}
}

// StartListening begins a listening turn. A no-op unless the turn state is
// idle; UI callers may double-invoke.
func (s *Session) StartListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.turnState != TurnIdle {
		return
	}
	s.vad.Reset()
	s.setTurnLocked(TurnListening)
}

// StopListening commits the captured turn. A no-op unless the turn state is
// listening.
func (s *Session) StopListening() {
	s.mu.Lock()
	if s.ended || s.turnState != TurnListening {
		s.mu.Unlock()
		return
	}
	s.setTurnLocked(TurnProcessing)
	s.mu.Unlock()

	s.send(&ClientEvent{Type: ClientAudioCommit})
	s.send(&ClientEvent{Type: ClientResponseCreate})
}

// SendAudio pushes one PCM chunk. While connected the chunk is forwarded
// per the VAD configuration; while reconnecting it is buffered or discarded
// per the reconnect policy.
func (s *Session) SendAudio(pcm []byte) error {
	rms := CalculateRMSEnergy(pcm)

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return core.NewConnectionError("session has ended", nil)
	}
	state := s.connState
	s.emitLocked(&AudioLevelEvent{RMS: rms, IsVoice: rms >= s.config.VAD.EnergyThreshold})
	s.mu.Unlock()

	switch state {
	case StateConnected:
		// fallthrough to forwarding below
	case StateReconnecting:
		if s.config.Reconnect.BufferWhileDisconnected {
			s.disconnectBuffer.Write(pcm)
		}
		return nil
	default:
		return core.NewConnectionError("session is not connected", nil)
	}

	if !s.config.VAD.Server {
		forward, _ := s.vad.ShouldForward(pcm)
		if !forward {
			return nil
		}
	}
	return s.send(&ClientEvent{
		Type:  ClientAudioAppend,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// SendText submits a discrete text input as a complete user turn, bypassing
// audio capture entirely.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return core.NewConnectionError("session has ended", nil)
	}
	if s.connState != StateConnected {
		s.mu.Unlock()
		return core.NewConnectionError("session is not connected", nil)
	}
	s.setTurnLocked(TurnProcessing)
	s.mu.Unlock()

	item := ConversationItem{
		Type:    "message",
		Role:    "user",
		Content: []ItemContent{{Type: "input_text", Text: text}},
	}
	s.items.Append(item)

	if err := s.send(&ClientEvent{Type: ClientItemCreate, Item: &item}); err != nil {
		return err
	}
	return s.send(&ClientEvent{Type: ClientResponseCreate})
}

// Interrupt cancels the in-flight response, e.g. on user barge-in. A no-op
// unless the model is processing or speaking.
func (s *Session) Interrupt() {
	s.mu.Lock()
	if s.ended || (s.turnState != TurnProcessing && s.turnState != TurnSpeaking) {
		s.mu.Unlock()
		return
	}
	s.setTurnLocked(TurnIdle)
	s.mu.Unlock()

	s.send(&ClientEvent{Type: ClientResponseCancel})
}

// TruncateAt removes the conversation item with the given id and everything
// after it, locally and on the server. Items before the truncation point are
// untouched and keep their order. Returns false when the id is unknown.
func (s *Session) TruncateAt(itemID string) bool {
	if !s.items.TruncateAt(itemID) {
		return false
	}
	s.send(&ClientEvent{Type: ClientItemTruncate, ItemID: itemID})
	return true
}

// Items returns a copy of the conversation history.
func (s *Session) Items() []ConversationItem {
	return s.items.Items()
}

// ClearConversation drops the conversation history. End does not do this;
// history survives for inspection until cleared explicitly.
func (s *Session) ClearConversation() {
	s.items.Clear()
}

// End closes the session: transport down, turn state cleared, no further
// events after it returns. Conversation history is kept. Idempotent.
func (s *Session) End() {
	s.shutdown()
}

func (s *Session) shutdown() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.connState = StateDisconnected
	s.turnState = TurnIdle
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.transport.Close()
	s.wg.Wait()
	close(s.events)
	s.log.Info().Msg("live session ended")
}

// runLoop consumes transport events until the session ends, reconnecting
// when the channel closes unexpectedly.
func (s *Session) runLoop(events <-chan *ServerEvent) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				next := s.reconnect()
				if next == nil {
					return
				}
				events = next
				continue
			}
			s.handleServerEvent(event)
		}
	}
}

// reconnect runs the fixed-delay reconnection loop. Returns the new event
// channel, or nil when the session is over.
func (s *Session) reconnect() <-chan *ServerEvent {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Reconnect.Auto {
		s.connState = StateDisconnected
		s.emitLocked(&DisconnectedEvent{})
		s.mu.Unlock()
		return nil
	}
	s.connState = StateReconnecting
	s.mu.Unlock()

	for attempt := 1; attempt <= s.config.Reconnect.MaxAttempts; attempt++ {
		s.emit(&ReconnectingEvent{Attempt: attempt})
		s.log.Warn().Int("attempt", attempt).Msg("reconnecting live session")

		select {
		case <-s.ctx.Done():
			return nil
		case <-time.After(s.config.Reconnect.Delay):
		}

		if err := s.connect(s.ctx); err != nil {
			s.log.Warn().Int("attempt", attempt).Err(err).Msg("reconnect attempt failed")
			continue
		}

		s.mu.Lock()
		if s.ended {
			s.mu.Unlock()
			return nil
		}
		s.connState = StateConnected
		s.emitLocked(&ConnectedEvent{SessionID: s.sessionID, Reconnected: true})
		s.mu.Unlock()

		if buffered := s.disconnectBuffer.Drain(); len(buffered) > 0 {
			s.send(&ClientEvent{
				Type:  ClientAudioAppend,
				Audio: base64.StdEncoding.EncodeToString(buffered),
			})
		}
		return s.transport.Events()
	}

	s.mu.Lock()
	s.connState = StateErrored
	s.emitLocked(&DisconnectedEvent{
		Fatal: true,
		Error: fmt.Sprintf("reconnection failed after %d attempts", s.config.Reconnect.MaxAttempts),
	})
	s.mu.Unlock()
	return nil
}

func (s *Session) handleServerEvent(event *ServerEvent) {
	switch event.Type {
	case ServerSessionCreated:
		id := ""
		if event.Session != nil {
			id = event.Session.ID
		}
		select {
		case s.created <- id:
		default:
		}

	case ServerSessionUpdated:
		// Configuration acknowledged; nothing to track.

	case ServerSpeechStarted:
		s.mu.Lock()
		if s.turnState == TurnIdle {
			s.setTurnLocked(TurnListening)
		}
		s.mu.Unlock()

	case ServerSpeechStopped:
		s.mu.Lock()
		if s.turnState == TurnListening {
			s.setTurnLocked(TurnProcessing)
		}
		s.mu.Unlock()

	case ServerItemCreated:
		if event.Item != nil {
			if !s.items.Adopt(*event.Item) {
				s.items.Append(*event.Item)
			}
			s.emit(&ItemCreatedEvent{Item: *event.Item})
		}

	case ServerTextDelta:
		s.mu.Lock()
		if s.turnState == TurnIdle || s.turnState == TurnListening {
			s.setTurnLocked(TurnProcessing)
		}
		s.mu.Unlock()
		s.emit(&TextDeltaEvent{Delta: event.Delta})

	case ServerTranscriptDelta:
		s.emit(&TranscriptDeltaEvent{Delta: event.Delta})

	case ServerAudioDelta:
		pcm, err := base64.StdEncoding.DecodeString(event.Audio)
		if err != nil {
			s.emit(&ErrorEvent{Message: fmt.Sprintf("bad audio frame: %v", err)})
			return
		}
		s.mu.Lock()
		if s.turnState != TurnSpeaking {
			s.setTurnLocked(TurnSpeaking)
		}
		s.mu.Unlock()
		s.emit(&AudioDeltaEvent{Data: pcm})

	case ServerFuncArgsDelta:
		s.mu.Lock()
		s.pendingToolArgs[event.CallID] += event.Arguments
		if event.Name != "" {
			s.pendingToolName[event.CallID] = event.Name
		}
		s.mu.Unlock()

	case ServerFuncArgsDone:
		s.mu.Lock()
		args := event.Arguments
		if args == "" {
			args = s.pendingToolArgs[event.CallID]
		}
		name := event.Name
		if name == "" {
			name = s.pendingToolName[event.CallID]
		}
		delete(s.pendingToolArgs, event.CallID)
		delete(s.pendingToolName, event.CallID)
		// The turn stays in processing until the model's follow-up response
		// completes.
		if s.turnState != TurnProcessing {
			s.setTurnLocked(TurnProcessing)
		}
		s.mu.Unlock()

		s.emit(&ToolCallEvent{CallID: event.CallID, Name: name, Arguments: args})
		s.dispatchTool(event.CallID, name, args)

	case ServerResponseDone:
		responseID := ""
		if event.Response != nil {
			responseID = event.Response.ID
		}
		s.mu.Lock()
		s.setTurnLocked(TurnIdle)
		s.mu.Unlock()
		s.emit(&ResponseDoneEvent{ResponseID: responseID})

	case ServerError:
		message := "unknown server error"
		code := ""
		if event.Error != nil {
			message = event.Error.Message
			code = event.Error.Code
		}
		s.log.Error().Str("code", code).Str("message", message).Msg("live server error")
		s.emit(&ErrorEvent{Code: code, Message: message})

	default:
		s.log.Debug().Str("type", event.Type).Msg("unhandled server event")
		s.emit(&DebugEvent{Type: event.Type})
	}
}

// dispatchTool runs the tool asynchronously and sends its output back as a
// function_call_output item followed by a response request.
func (s *Session) dispatchTool(callID, name, rawArgs string) {
	if s.registry == nil {
		s.sendToolOutput(callID, fmt.Sprintf("no tool registry configured for %q", name), true)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		args, err := types.ParseValue([]byte(rawArgs))
		if err != nil {
			s.sendToolOutput(callID, fmt.Sprintf("malformed tool arguments: %v", err), true)
			return
		}

		output, err := s.registry.Execute(s.ctx, name, args, s.config.ToolTimeout)
		if err != nil {
			s.sendToolOutput(callID, err.Error(), true)
			return
		}

		encoded, err := json.Marshal(output)
		if err != nil {
			s.sendToolOutput(callID, fmt.Sprintf("encode tool output: %v", err), true)
			return
		}
		s.sendToolOutput(callID, string(encoded), false)
	}()
}

func (s *Session) sendToolOutput(callID, output string, isError bool) {
	item := ConversationItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}
	s.items.Append(item)

	s.send(&ClientEvent{Type: ClientItemCreate, Item: &item})
	s.send(&ClientEvent{Type: ClientResponseCreate})
	s.emit(&ToolResultEvent{CallID: callID, Output: output, IsError: isError})
}

// setTurnLocked transitions the turn state and emits the change. Caller
// holds the mutex.
func (s *Session) setTurnLocked(to TurnState) {
	if s.turnState == to {
		return
	}
	from := s.turnState
	s.turnState = to
	s.emitLocked(&TurnStateEvent{From: from, To: to})
}

// send writes a client event, logging rather than propagating transport
// failures on the fire-and-forget paths.
func (s *Session) send(event *ClientEvent) error {
	err := s.transport.Send(event)
	if err != nil {
		s.log.Warn().Str("type", event.Type).Err(err).Msg("live send failed")
	}
	return err
}

// emit delivers an event unless the session has ended. The channel is
// buffered; when full the event is dropped rather than stalling the session.
func (s *Session) emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(event)
}

func (s *Session) emitLocked(event Event) {
	if s.ended {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}
