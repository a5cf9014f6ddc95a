package oairesp

import (
	"encoding/json"
	"fmt"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// responseObject is the complete Responses API response object, used both by
// the non-streaming path and the response.completed stream event.
type responseObject struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Status string `json:"status"`
	Output []struct {
		Type      string `json:"type"`
		CallID    string `json:"call_id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
		Content   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Summary   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"summary"`
	} `json:"output"`
	Usage             *responseUsage `json:"usage"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
}

type responseUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

func parseResponse(body []byte) (*types.Response, error) {
	var wire responseObject
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, core.NewAPIError(fmt.Sprintf("decode response: %v", err))
	}
	return convertResponse(&wire), nil
}

func convertResponse(wire *responseObject) *types.Response {
	resp := &types.Response{
		ID:         wire.ID,
		Model:      wire.Model,
		Role:       types.RoleAssistant,
		StopReason: types.StopEndTurn,
	}

	for _, item := range wire.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					resp.Content = append(resp.Content, types.Text(part.Text))
				}
			}
		case "reasoning":
			for _, part := range item.Summary {
				resp.Content = append(resp.Content, types.ThinkingBlock{Type: "thinking", Thinking: part.Text})
			}
		case "function_call":
			input, err := types.ParseValue([]byte(item.Arguments))
			if err != nil {
				input = types.Object(nil)
			}
			resp.Content = append(resp.Content, types.ToolUseBlock{
				Type:  "tool_use",
				ID:    item.CallID,
				Name:  item.Name,
				Input: input,
			})
			resp.StopReason = types.StopToolUse
		}
	}

	if wire.IncompleteDetails != nil && wire.IncompleteDetails.Reason == "max_output_tokens" {
		resp.StopReason = types.StopMaxTokens
	}
	if wire.Usage != nil {
		resp.Usage = convertUsage(wire.Usage)
	}
	return resp
}

func convertUsage(u *responseUsage) types.Usage {
	return types.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}
