package anthropic

import (
	"encoding/json"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// messagesRequest is the Messages API request wire format.
type messagesRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []wireMessage   `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stop        []string        `json:"stop_sequences,omitempty"`
	Tools       []wireTool      `json:"tools,omitempty"`
	Thinking    *thinkingConfig `json:"thinking,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type thinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

// wireBlock is the union of Anthropic content block shapes.
type wireBlock struct {
	Type string `json:"type"`

	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	Source *wireSource `json:"source,omitempty"`

	// tool_use fields
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type wireSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// thinkingBudget maps reasoning effort to a token budget.
func thinkingBudget(effort types.ReasoningEffort) int {
	switch effort {
	case types.EffortLow:
		return 1024
	case types.EffortMedium:
		return 4096
	case types.EffortHigh:
		return 16384
	default:
		return 0
	}
}

// buildRequest translates a canonical request into the Messages API format.
func (p *Provider) buildRequest(req *types.Request) *messagesRequest {
	out := &messagesRequest{
		Model:       p.model,
		System:      req.System,
		MaxTokens:   req.Settings.MaxTokens,
		Temperature: req.Settings.Temperature,
		TopP:        req.Settings.TopP,
		Stop:        req.Settings.StopSequences,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}
	if budget := thinkingBudget(req.Settings.ReasoningEffort); budget > 0 {
		out.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: budget}
	}

	for _, msg := range req.Messages {
		wire := convertMessage(msg)
		if wire != nil {
			out.Messages = append(out.Messages, *wire)
		}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: marshalSchema(tool.Parameters),
		})
	}
	return out
}

// convertMessage maps a canonical message. System messages in the middle of
// history become user text; the Messages API only accepts user/assistant
// roles. Tool results belong to a user-role message.
func convertMessage(msg types.Message) *wireMessage {
	role := "user"
	if msg.Role == types.RoleAssistant {
		role = "assistant"
	}

	wire := wireMessage{Role: role}
	for _, block := range msg.Content {
		switch b := block.(type) {
		case types.TextBlock:
			wire.Content = append(wire.Content, wireBlock{Type: "text", Text: b.Text})
		case types.ThinkingBlock:
			wire.Content = append(wire.Content, wireBlock{Type: "thinking", Thinking: b.Thinking})
		case types.ImageBlock:
			wire.Content = append(wire.Content, wireBlock{Type: "image", Source: convertSource(b.Source)})
		case types.FileBlock:
			wire.Content = append(wire.Content, wireBlock{Type: "document", Source: convertSource(b.Source)})
		case types.ToolUseBlock:
			input, err := json.Marshal(b.Input)
			if err != nil {
				input = json.RawMessage("{}")
			}
			wire.Content = append(wire.Content, wireBlock{
				Type:  "tool_use",
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		case types.ToolResultBlock:
			wire.Content = append(wire.Content, wireBlock{
				Type:      "tool_result",
				ToolUseID: b.ToolUseID,
				Content:   blocksText(b.Content),
				IsError:   b.IsError,
			})
		}
	}
	if len(wire.Content) == 0 {
		return nil
	}
	return &wire
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

func convertSource(src types.Source) *wireSource {
	if src.URL != "" {
		return &wireSource{Type: "url", URL: src.URL}
	}
	return &wireSource{Type: "base64", MediaType: src.MediaType, Data: src.Data}
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
