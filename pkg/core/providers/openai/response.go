package openai

import (
	"encoding/json"
	"fmt"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// chatResponse is the non-streaming Chat Completions response wire format.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// parseResponse translates an OpenAI response body into the canonical form.
func parseResponse(body []byte) (*types.Response, error) {
	var wire chatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, core.NewAPIError(fmt.Sprintf("decode response: %v", err))
	}
	if len(wire.Choices) == 0 {
		return nil, core.NewAPIError("response has no choices")
	}

	choice := wire.Choices[0]
	resp := &types.Response{
		ID:         wire.ID,
		Model:      wire.Model,
		Role:       types.RoleAssistant,
		StopReason: mapFinishReason(choice.FinishReason),
	}

	if choice.Message.Content != "" {
		resp.Content = append(resp.Content, types.Text(choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		resp.Content = append(resp.Content, types.ToolUseBlock{
			Type:  "tool_use",
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: parseArguments(call.Function.Arguments),
		})
	}

	if wire.Usage != nil {
		resp.Usage = convertUsage(wire.Usage)
	}
	return resp, nil
}

// convertUsage maps OpenAI token accounting to canonical usage.
func convertUsage(u *chatUsage) types.Usage {
	return types.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// parseArguments parses a tool-call arguments document. Malformed JSON is
// preserved as a string value rather than dropped.
func parseArguments(raw string) types.Value {
	if raw == "" {
		return types.Object(nil)
	}
	v, err := types.ParseValue([]byte(raw))
	if err != nil {
		return types.String(raw)
	}
	return v
}

// mapFinishReason translates OpenAI finish reasons into canonical stop
// reasons.
func mapFinishReason(reason string) types.StopReason {
	switch reason {
	case "stop":
		return types.StopEndTurn
	case "length":
		return types.StopMaxTokens
	case "tool_calls", "function_call":
		return types.StopToolUse
	case "content_filter":
		return types.StopEndTurn
	default:
		return types.StopEndTurn
	}
}
