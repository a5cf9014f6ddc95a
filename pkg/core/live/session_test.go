package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
	"github.com/crosstalk-ai/crosstalk/pkg/tools"
)

// fakeTransport scripts server behavior for session tests. Each Connect
// produces a fresh event channel preloaded with session.created, matching the
// transport contract.
type fakeTransport struct {
	mu        sync.Mutex
	connects  int
	failAfter int // fail Connect calls beyond this count (0 = never fail)
	noAck     bool
	sent      []*ClientEvent
	events    chan *ServerEvent
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.failAfter > 0 && f.connects > f.failAfter {
		return errors.New("dial failed")
	}
	f.events = make(chan *ServerEvent, 16)
	if !f.noAck {
		f.events <- serverEvent(`{"type":"session.created","session":{"id":"sess_1"}}`)
	}
	return nil
}

func (f *fakeTransport) Send(event *ClientEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, event)
	return nil
}

func (f *fakeTransport) Events() <-chan *ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

func (f *fakeTransport) Close() error { return nil }

// push delivers a server event to the session.
func (f *fakeTransport) push(raw string) {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	ch <- serverEvent(raw)
}

// drop simulates an unexpected transport failure.
func (f *fakeTransport) drop() {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	close(ch)
}

func (f *fakeTransport) sentEvents() []*ClientEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ClientEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

func serverEvent(raw string) *ServerEvent {
	var ev ServerEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		panic(fmt.Sprintf("bad test event %s: %v", raw, err))
	}
	return &ev
}

func testConfig() SessionConfig {
	config := DefaultSessionConfig()
	config.Model = "realtime-mini"
	config.ConnectTimeout = time.Second
	config.Reconnect.Delay = 10 * time.Millisecond
	return config
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startSession(t *testing.T, transport *fakeTransport, config SessionConfig, opts ...Option) *Session {
	t.Helper()
	s := NewSession(transport, config, opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestSessionStartHandshake(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	if s.ConnState() != StateConnected {
		t.Errorf("ConnState = %s, want CONNECTED", s.ConnState())
	}

	sent := transport.sentEvents()
	if len(sent) == 0 || sent[0].Type != ClientSessionUpdate {
		t.Fatalf("first frame = %+v, want session.update", sent)
	}
	update := sent[0].Session
	if update.Model != "realtime-mini" {
		t.Errorf("configured model = %q", update.Model)
	}
	if update.TurnDetection == nil || update.TurnDetection.Type != "server_vad" {
		t.Errorf("turn detection = %+v, want server_vad", update.TurnDetection)
	}
}

func TestSessionStartTimeout(t *testing.T) {
	transport := &fakeTransport{noAck: true}
	config := testConfig()
	config.ConnectTimeout = 50 * time.Millisecond

	s := NewSession(transport, config)
	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("Start should fail without a session acknowledgment")
	}
	if s.ConnState() != StateDisconnected {
		t.Errorf("ConnState = %s after failed start, want DISCONNECTED", s.ConnState())
	}
}

func TestTurnFollowsServerEvents(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	transport.push(`{"type":"input_audio_buffer.speech_started"}`)
	waitFor(t, func() bool { return s.TurnState() == TurnListening }, "want LISTENING after speech_started")

	transport.push(`{"type":"input_audio_buffer.speech_stopped"}`)
	waitFor(t, func() bool { return s.TurnState() == TurnProcessing }, "want PROCESSING after speech_stopped")

	audio := base64.StdEncoding.EncodeToString(pcmChunk(0.5, 100))
	transport.push(fmt.Sprintf(`{"type":"response.audio.delta","audio":"%s"}`, audio))
	waitFor(t, func() bool { return s.TurnState() == TurnSpeaking }, "want SPEAKING during audio output")

	// speech_started only begins a turn from idle; it must not yank the
	// session into listening while the model is speaking.
	transport.push(`{"type":"input_audio_buffer.speech_started"}`)
	time.Sleep(20 * time.Millisecond)
	if s.TurnState() != TurnSpeaking {
		t.Errorf("TurnState = %s, want SPEAKING preserved", s.TurnState())
	}

	transport.push(`{"type":"response.done","response":{"id":"resp_1","status":"completed"}}`)
	waitFor(t, func() bool { return s.TurnState() == TurnIdle }, "want IDLE after response.done")
}

func TestStartListeningIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	s.StartListening()
	if s.TurnState() != TurnListening {
		t.Fatalf("TurnState = %s, want LISTENING", s.TurnState())
	}
	// Double invocation is a no-op.
	s.StartListening()
	if s.TurnState() != TurnListening {
		t.Errorf("TurnState = %s after repeat, want LISTENING", s.TurnState())
	}

	s.StopListening()
	if s.TurnState() != TurnProcessing {
		t.Fatalf("TurnState = %s, want PROCESSING", s.TurnState())
	}

	var sawCommit, sawCreate bool
	for _, ev := range transport.sentEvents() {
		switch ev.Type {
		case ClientAudioCommit:
			sawCommit = true
		case ClientResponseCreate:
			sawCreate = true
		}
	}
	if !sawCommit || !sawCreate {
		t.Errorf("commit=%v create=%v, want both after StopListening", sawCommit, sawCreate)
	}

	// StopListening outside a listening turn is also a no-op.
	before := len(transport.sentEvents())
	s.StopListening()
	if got := len(transport.sentEvents()); got != before {
		t.Error("repeated StopListening must not send frames")
	}
}

func TestSendText(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	if err := s.SendText("what's the weather?"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if s.TurnState() != TurnProcessing {
		t.Errorf("TurnState = %s, want PROCESSING", s.TurnState())
	}

	var item *ConversationItem
	var sawCreate bool
	for _, ev := range transport.sentEvents() {
		switch ev.Type {
		case ClientItemCreate:
			item = ev.Item
		case ClientResponseCreate:
			sawCreate = true
		}
	}
	if item == nil || item.Type != "message" || item.Role != "user" {
		t.Fatalf("item = %+v, want a user message", item)
	}
	if len(item.Content) != 1 || item.Content[0].Text != "what's the weather?" {
		t.Errorf("content = %+v", item.Content)
	}
	if !sawCreate {
		t.Error("SendText must request a response")
	}
}

func TestServerEchoDoesNotDuplicateLocalItems(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	if err := s.SendText("hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	// The server acknowledges the client-created item with an id; the echo
	// must resolve the pending local entry, not add a second one.
	transport.push(`{"type":"conversation.item.created","item":{"id":"item_1","type":"message","role":"user","content":[{"type":"input_text","text":"hello"}]}}`)
	waitFor(t, func() bool {
		items := s.Items()
		return len(items) == 1 && items[0].ID == "item_1"
	}, "want the echo adopted into the single local item")

	// Server-created items have no pending counterpart and append as usual.
	transport.push(`{"type":"conversation.item.created","item":{"id":"item_2","type":"message","role":"assistant","content":[{"type":"text","text":"hi there"}]}}`)
	waitFor(t, func() bool { return len(s.Items()) == 2 }, "want the assistant item appended")

	items := s.Items()
	if items[0].ID != "item_1" || items[0].Role != "user" {
		t.Errorf("items[0] = %+v, want the adopted user item", items[0])
	}
	if items[1].ID != "item_2" || items[1].Role != "assistant" {
		t.Errorf("items[1] = %+v, want the appended assistant item", items[1])
	}
}

func TestToolOutputEchoAdopted(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	s.sendToolOutput("call_9", `{"ok":true}`, false)
	transport.push(`{"type":"conversation.item.created","item":{"id":"item_7","type":"function_call_output","call_id":"call_9","output":"{\"ok\":true}"}}`)
	waitFor(t, func() bool {
		items := s.Items()
		return len(items) == 1 && items[0].ID == "item_7"
	}, "want the tool output echo adopted, not appended")
}

func TestToolDispatch(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(types.NewTool("echo", "echoes its input", types.ToolSchema{},
		func(_ context.Context, args map[string]types.Value) (types.Value, error) {
			return types.Object(args), nil
		}))

	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig(), WithTools(registry))
	defer s.End()

	transport.push(`{"type":"response.function_call_arguments.delta","call_id":"call_1","name":"echo","arguments":"{\"msg\":"}`)
	transport.push(`{"type":"response.function_call_arguments.delta","call_id":"call_1","arguments":"\"hi\"}"}`)
	transport.push(`{"type":"response.function_call_arguments.done","call_id":"call_1"}`)

	var output *ConversationItem
	waitFor(t, func() bool {
		for _, ev := range transport.sentEvents() {
			if ev.Type == ClientItemCreate && ev.Item != nil && ev.Item.Type == "function_call_output" {
				output = ev.Item
				return true
			}
		}
		return false
	}, "tool output never sent")

	if output.CallID != "call_1" {
		t.Errorf("output call id = %q", output.CallID)
	}
	if output.Output != `{"msg":"hi"}` {
		t.Errorf("output = %q, want the reassembled echo", output.Output)
	}

	// The turn holds in processing through tool execution.
	if s.TurnState() != TurnProcessing {
		t.Errorf("TurnState = %s during tool round trip, want PROCESSING", s.TurnState())
	}

	// A follow-up response is requested after the output item.
	sawFollowUp := false
	for _, ev := range transport.sentEvents() {
		if ev.Type == ClientResponseCreate {
			sawFollowUp = true
		}
	}
	if !sawFollowUp {
		t.Error("tool output must be followed by a response request")
	}
}

func TestUnknownServerEventBecomesDebug(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())

	transport.push(`{"type":"rate_limits.updated"}`)
	transport.push(`{"type":"response.text.delta","delta":"hi"}`)
	waitFor(t, func() bool { return s.TurnState() == TurnProcessing }, "want frames handled")

	s.End()

	var debugs []*DebugEvent
	for event := range s.Events() {
		if d, ok := event.(*DebugEvent); ok {
			debugs = append(debugs, d)
		}
	}
	if len(debugs) != 1 || debugs[0].Type != "rate_limits.updated" {
		t.Fatalf("debug events = %+v, want one for rate_limits.updated", debugs)
	}
}

func TestInterrupt(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())
	defer s.End()

	// Nothing in flight: no cancel frame.
	s.Interrupt()
	for _, ev := range transport.sentEvents() {
		if ev.Type == ClientResponseCancel {
			t.Fatal("Interrupt while idle must not send response.cancel")
		}
	}

	audio := base64.StdEncoding.EncodeToString(pcmChunk(0.5, 100))
	transport.push(fmt.Sprintf(`{"type":"response.audio.delta","audio":"%s"}`, audio))
	waitFor(t, func() bool { return s.TurnState() == TurnSpeaking }, "want SPEAKING before interrupt")

	s.Interrupt()
	if s.TurnState() != TurnIdle {
		t.Errorf("TurnState = %s after interrupt, want IDLE", s.TurnState())
	}

	sawCancel := false
	for _, ev := range transport.sentEvents() {
		if ev.Type == ClientResponseCancel {
			sawCancel = true
		}
	}
	if !sawCancel {
		t.Error("Interrupt while speaking must send response.cancel")
	}
}

func TestNoEventsAfterEnd(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())

	s.End()
	s.End() // idempotent

	// The channel is closed; draining terminates.
	for range s.Events() {
	}

	if err := s.SendAudio(pcmChunk(0.5, 100)); err == nil {
		t.Error("SendAudio after End must fail")
	}
	if err := s.SendText("late"); err == nil {
		t.Error("SendText after End must fail")
	}
}

func TestEndKeepsHistory(t *testing.T) {
	transport := &fakeTransport{}
	s := startSession(t, transport, testConfig())

	transport.push(`{"type":"conversation.item.created","item":{"id":"item_1","type":"message","role":"assistant"}}`)
	waitFor(t, func() bool { return len(s.Items()) == 1 }, "item never recorded")

	s.End()
	if len(s.Items()) != 1 {
		t.Error("history must survive End")
	}
	s.ClearConversation()
	if len(s.Items()) != 0 {
		t.Error("ClearConversation must drop history")
	}
}

func TestReconnectFlushesBufferedAudio(t *testing.T) {
	transport := &fakeTransport{}
	config := testConfig()
	config.Reconnect.Delay = 50 * time.Millisecond

	s := startSession(t, transport, config)
	defer s.End()

	transport.drop()
	waitFor(t, func() bool { return s.ConnState() == StateReconnecting }, "want RECONNECTING after drop")

	chunk := pcmChunk(0.5, 100)
	if err := s.SendAudio(chunk); err != nil {
		t.Fatalf("SendAudio while reconnecting: %v", err)
	}

	waitFor(t, func() bool { return s.ConnState() == StateConnected }, "reconnect never completed")

	var flushed []byte
	waitFor(t, func() bool {
		for _, ev := range transport.sentEvents() {
			if ev.Type == ClientAudioAppend {
				flushed, _ = base64.StdEncoding.DecodeString(ev.Audio)
				return true
			}
		}
		return false
	}, "buffered audio never flushed")

	if len(flushed) != len(chunk) {
		t.Errorf("flushed %d bytes, want %d", len(flushed), len(chunk))
	}
}

func TestReconnectExhaustionIsFatal(t *testing.T) {
	transport := &fakeTransport{failAfter: 1}
	config := testConfig()
	config.Reconnect.MaxAttempts = 2
	config.Reconnect.Delay = 5 * time.Millisecond

	s := startSession(t, transport, config)

	transport.drop()
	waitFor(t, func() bool { return s.ConnState() == StateErrored }, "want ERRORED after exhaustion")

	s.End()

	var fatal *DisconnectedEvent
	var attempts int
	for ev := range s.Events() {
		switch e := ev.(type) {
		case *DisconnectedEvent:
			fatal = e
		case *ReconnectingEvent:
			attempts++
		}
	}
	if fatal == nil || !fatal.Fatal {
		t.Errorf("disconnected event = %+v, want fatal", fatal)
	}
	if attempts != 2 {
		t.Errorf("observed %d reconnect attempts, want 2", attempts)
	}
}

func TestReconnectDisabledGivesUp(t *testing.T) {
	transport := &fakeTransport{}
	config := testConfig()
	config.Reconnect.Auto = false

	s := startSession(t, transport, config)

	transport.drop()
	waitFor(t, func() bool { return s.ConnState() == StateDisconnected }, "want DISCONNECTED with auto-reconnect off")
	if got := transport.connects; got != 1 {
		t.Errorf("Connect called %d times, want 1", got)
	}
	s.End()
}
