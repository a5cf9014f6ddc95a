package gemini

import (
	"io"
	"strings"
	"testing"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

func collect(t *testing.T, transcript string) []*types.Delta {
	t.Helper()
	s := newDeltaStream(io.NopCloser(strings.NewReader(transcript)))
	defer s.Close()

	var deltas []*types.Delta
	for {
		d, err := s.Next()
		if err == io.EOF {
			return deltas
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		deltas = append(deltas, d)
	}
}

func TestStreamTextChunks(t *testing.T) {
	transcript := "" +
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]}}]}` + "\n\n" +
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"lo"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":3,"totalTokenCount":12}}` + "\n\n"

	deltas := collect(t, transcript)

	var text string
	for _, d := range deltas {
		if d.Kind == types.DeltaText {
			text += d.Text
		}
	}
	if text != "Hello" {
		t.Errorf("text = %q, want %q", text, "Hello")
	}

	done := deltas[len(deltas)-1]
	if done.Kind != types.DeltaDone || done.StopReason != types.StopEndTurn {
		t.Fatalf("terminal delta = %+v, want done/end_turn", done)
	}
	if done.Usage == nil || done.Usage.InputTokens != 9 || done.Usage.OutputTokens != 3 || done.Usage.TotalTokens != 12 {
		t.Errorf("usage = %+v", done.Usage)
	}
}

func TestStreamFunctionCallArrivesComplete(t *testing.T) {
	transcript := "" +
		`data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"Lisbon"}}}]},"finishReason":"STOP"}]}` + "\n\n"

	deltas := collect(t, transcript)

	var call *types.ToolCallDelta
	for _, d := range deltas {
		if d.Kind == types.DeltaToolCall {
			call = d.ToolCall
		}
	}
	if call == nil {
		t.Fatal("no tool call delta")
	}
	if !call.Complete {
		t.Error("function calls arrive whole; the delta must be marked complete")
	}
	if call.Name != "get_weather" {
		t.Errorf("name = %q", call.Name)
	}
	if call.ID == "" {
		t.Error("expected a minted call id")
	}
	if !strings.Contains(call.ArgumentsJSON, `"city"`) {
		t.Errorf("arguments = %q", call.ArgumentsJSON)
	}

	done := deltas[len(deltas)-1]
	if done.Kind != types.DeltaDone || done.StopReason != types.StopToolUse {
		t.Errorf("terminal delta = %+v, want done/tool_use", done)
	}
}

func TestStreamThoughtParts(t *testing.T) {
	transcript := "" +
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"weighing options","thought":true}]}}]}` + "\n\n" +
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"answer"}]},"finishReason":"STOP"}]}` + "\n\n"

	deltas := collect(t, transcript)
	if deltas[0].Kind != types.DeltaReasoning || deltas[0].Text != "weighing options" {
		t.Errorf("first delta = %+v, want reasoning", deltas[0])
	}
	if deltas[1].Kind != types.DeltaText || deltas[1].Text != "answer" {
		t.Errorf("second delta = %+v, want text", deltas[1])
	}
}

func TestStreamMaxTokens(t *testing.T) {
	transcript := `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"trunc"}]},"finishReason":"MAX_TOKENS"}]}` + "\n\n"

	deltas := collect(t, transcript)
	done := deltas[len(deltas)-1]
	if done.Kind != types.DeltaDone || done.StopReason != types.StopMaxTokens {
		t.Errorf("terminal delta = %+v, want done/max_tokens", done)
	}
}

func TestStreamDistinctMintedIDs(t *testing.T) {
	transcript := "" +
		`data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"a","args":{}}},{"functionCall":{"name":"b","args":{}}}]},"finishReason":"STOP"}]}` + "\n\n"

	deltas := collect(t, transcript)
	ids := map[string]bool{}
	for _, d := range deltas {
		if d.Kind == types.DeltaToolCall {
			ids[d.ToolCall.ID] = true
		}
	}
	if len(ids) != 2 {
		t.Errorf("got %d distinct call ids, want 2", len(ids))
	}
}
