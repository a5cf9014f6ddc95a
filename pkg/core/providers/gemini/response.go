package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// generateResponse is the generateContent response wire format, shared by
// the non-streaming path and stream chunks.
type generateResponse struct {
	Candidates []struct {
		Content      *wireContent `json:"content"`
		FinishReason string       `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
	ModelVersion  string         `json:"modelVersion"`
	ResponseID    string         `json:"responseId"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func parseResponse(body []byte) (*types.Response, error) {
	var wire generateResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, core.NewAPIError(fmt.Sprintf("decode response: %v", err))
	}
	if len(wire.Candidates) == 0 {
		return nil, core.NewAPIError("response has no candidates")
	}

	candidate := wire.Candidates[0]
	resp := &types.Response{
		ID:         wire.ResponseID,
		Model:      wire.ModelVersion,
		Role:       types.RoleAssistant,
		StopReason: mapFinishReason(candidate.FinishReason),
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				input, err := types.ParseValue(part.FunctionCall.Args)
				if err != nil {
					input = types.Object(nil)
				}
				resp.Content = append(resp.Content, types.ToolUseBlock{
					Type: "tool_use",
					// Gemini does not assign call ids; mint one so tool
					// results can still be matched downstream.
					ID:    uuid.NewString(),
					Name:  part.FunctionCall.Name,
					Input: input,
				})
				resp.StopReason = types.StopToolUse
			case part.Thought:
				resp.Content = append(resp.Content, types.ThinkingBlock{Type: "thinking", Thinking: part.Text})
			case part.Text != "":
				resp.Content = append(resp.Content, types.Text(part.Text))
			}
		}
	}

	if wire.UsageMetadata != nil {
		resp.Usage = convertUsage(wire.UsageMetadata)
	}
	return resp, nil
}

func convertUsage(u *usageMetadata) types.Usage {
	return types.Usage{
		InputTokens:  u.PromptTokenCount,
		OutputTokens: u.CandidatesTokenCount,
		TotalTokens:  u.TotalTokenCount,
	}
}

// mapFinishReason translates Gemini finish reasons into canonical ones.
func mapFinishReason(reason string) types.StopReason {
	switch reason {
	case "STOP":
		return types.StopEndTurn
	case "MAX_TOKENS":
		return types.StopMaxTokens
	default:
		return types.StopEndTurn
	}
}
