package gemini

import (
	"testing"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

func TestBuildRequestThinkingBudget(t *testing.T) {
	p := New("gemini-2.5-flash", "key")

	wire := p.buildRequest(&types.Request{
		Messages: []types.Message{types.UserText("hi")},
		Settings: types.GenerationSettings{ReasoningEffort: types.EffortMedium},
	})
	tc := wire.GenerationConfig.ThinkingConfig
	if tc == nil || !tc.IncludeThoughts || tc.ThinkingBudget != 8192 {
		t.Errorf("thinking config = %+v, want budget 8192 with thoughts included", tc)
	}

	plain := p.buildRequest(&types.Request{Messages: []types.Message{types.UserText("hi")}})
	if plain.GenerationConfig.ThinkingConfig != nil {
		t.Error("thinking config should be absent without a reasoning effort")
	}
}

func TestBuildRequestSystemInstruction(t *testing.T) {
	p := New("gemini-2.5-flash", "key")
	wire := p.buildRequest(&types.Request{
		System:   "Be brief.",
		Messages: []types.Message{types.UserText("hi")},
	})

	if wire.SystemInstruction == nil || wire.SystemInstruction.Parts[0].Text != "Be brief." {
		t.Errorf("systemInstruction = %+v", wire.SystemInstruction)
	}
	if len(wire.Contents) != 1 || wire.Contents[0].Role != "user" {
		t.Errorf("contents = %+v", wire.Contents)
	}
}

func TestConvertMessageRolesAndToolResults(t *testing.T) {
	assistant := convertMessage(types.Message{
		Role:    types.RoleAssistant,
		Content: []types.ContentBlock{types.Text("done")},
	})
	if assistant.Role != "model" {
		t.Errorf("assistant role = %q, want model", assistant.Role)
	}

	// Tool results are matched by function name; the canonical ToolUseID
	// carries that name for Gemini round trips.
	result := convertMessage(types.Message{
		Role: types.RoleUser,
		Content: []types.ContentBlock{
			types.ToolResultBlock{
				Type:      "tool_result",
				ToolUseID: "get_weather",
				Content:   []types.ContentBlock{types.Text("21C")},
			},
		},
	})
	fr := result.Parts[0].FunctionResponse
	if fr == nil || fr.Name != "get_weather" {
		t.Fatalf("functionResponse = %+v", fr)
	}
	if fr.Response["result"] != "21C" {
		t.Errorf("response payload = %+v", fr.Response)
	}
}
