package oairesp

import (
	"encoding/json"
	"fmt"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// responsesRequest is the Responses API request wire format. Conversation
// history is a flat list of typed items rather than role messages.
type responsesRequest struct {
	Model           string           `json:"model"`
	Instructions    string           `json:"instructions,omitempty"`
	Input           []inputItem      `json:"input"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	Tools           []responseTool   `json:"tools,omitempty"`
	Reasoning       *reasoningConfig `json:"reasoning,omitempty"`
	Stream          bool             `json:"stream,omitempty"`
}

type reasoningConfig struct {
	Effort string `json:"effort"`
}

// inputItem is the union of input item shapes: role messages, function
// calls, and function call outputs.
type inputItem struct {
	Type string `json:"type,omitempty"`

	// message fields
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`

	// function_call fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// function_call_output fields
	Output string `json:"output,omitempty"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responseTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func (p *Provider) buildRequest(req *types.Request) *responsesRequest {
	out := &responsesRequest{
		Model:           p.model,
		Instructions:    req.System,
		MaxOutputTokens: req.Settings.MaxTokens,
		Temperature:     req.Settings.Temperature,
		TopP:            req.Settings.TopP,
	}
	if out.MaxOutputTokens == 0 {
		out.MaxOutputTokens = DefaultMaxTokens
	}
	if req.Settings.ReasoningEffort != "" {
		out.Reasoning = &reasoningConfig{Effort: string(req.Settings.ReasoningEffort)}
	}

	for _, msg := range req.Messages {
		out.Input = append(out.Input, convertMessage(msg)...)
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, responseTool{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  marshalSchema(tool.Parameters),
		})
	}
	return out
}

// convertMessage flattens a canonical message into input items. Tool uses
// become function_call items, tool results become function_call_output
// items; remaining content folds into a role message.
func convertMessage(msg types.Message) []inputItem {
	var out []inputItem

	role := string(msg.Role)
	textType := "input_text"
	if msg.Role == types.RoleAssistant {
		textType = "output_text"
	}

	var parts []contentPart
	for _, block := range msg.Content {
		switch b := block.(type) {
		case types.TextBlock:
			parts = append(parts, contentPart{Type: textType, Text: b.Text})
		case types.ImageBlock:
			parts = append(parts, contentPart{Type: "input_image", ImageURL: sourceURL(b.Source)})
		case types.ToolUseBlock:
			args, err := json.Marshal(b.Input)
			if err != nil {
				args = []byte("{}")
			}
			out = append(out, inputItem{
				Type:      "function_call",
				CallID:    b.ID,
				Name:      b.Name,
				Arguments: string(args),
			})
		case types.ToolResultBlock:
			out = append(out, inputItem{
				Type:   "function_call_output",
				CallID: b.ToolUseID,
				Output: blocksText(b.Content),
			})
		}
	}

	if len(parts) > 0 {
		out = append([]inputItem{{Type: "message", Role: role, Content: parts}}, out...)
	}
	return out
}

func blocksText(blocks []types.ContentBlock) string {
	text := ""
	for _, block := range blocks {
		if tb, ok := block.(types.TextBlock); ok {
			text += tb.Text
		}
	}
	return text
}

func sourceURL(src types.Source) string {
	if src.URL != "" {
		return src.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", src.MediaType, src.Data)
}

func marshalSchema(schema types.ToolSchema) json.RawMessage {
	doc := map[string]any{
		"type":       "object",
		"properties": schema.Properties,
	}
	if len(schema.Required) > 0 {
		doc["required"] = schema.Required
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return raw
}
