package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// messagesResponse is the non-streaming Messages API response.
type messagesResponse struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	Role       string      `json:"role"`
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      *wireUsage  `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func parseResponse(body []byte) (*types.Response, error) {
	var wire messagesResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, core.NewAPIError(fmt.Sprintf("decode response: %v", err))
	}

	resp := &types.Response{
		ID:         wire.ID,
		Model:      wire.Model,
		Role:       types.RoleAssistant,
		StopReason: mapStopReason(wire.StopReason),
	}

	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			resp.Content = append(resp.Content, types.Text(block.Text))
		case "thinking":
			resp.Content = append(resp.Content, types.ThinkingBlock{Type: "thinking", Thinking: block.Thinking})
		case "tool_use":
			input, err := types.ParseValue(block.Input)
			if err != nil {
				input = types.Object(nil)
			}
			resp.Content = append(resp.Content, types.ToolUseBlock{
				Type:  "tool_use",
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	if wire.Usage != nil {
		resp.Usage = convertUsage(wire.Usage)
	}
	return resp, nil
}

func convertUsage(u *wireUsage) types.Usage {
	return types.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.InputTokens + u.OutputTokens,
	}
}

// mapStopReason translates Anthropic stop reasons into canonical ones.
func mapStopReason(reason string) types.StopReason {
	switch reason {
	case "end_turn":
		return types.StopEndTurn
	case "max_tokens":
		return types.StopMaxTokens
	case "stop_sequence":
		return types.StopSequence
	case "tool_use":
		return types.StopToolUse
	default:
		return types.StopEndTurn
	}
}
