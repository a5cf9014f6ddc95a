package openai

import (
	"encoding/json"
	"fmt"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// chatRequest is the Chat Completions request wire format.
type chatRequest struct {
	Model           string          `json:"model"`
	Messages        []chatMessage   `json:"messages"`
	MaxTokens       int             `json:"max_completion_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	Stop            []string        `json:"stop,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`
	Tools           []chatTool      `json:"tools,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
	StreamOptions   *streamOptions  `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage is one entry in the messages array. Content is either a plain
// string or an array of typed parts.
type chatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatContentPart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ImageURL   *chatImageURL   `json:"image_url,omitempty"`
	InputAudio *chatInputAudio `json:"input_audio,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatInputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string      `json:"type"`
	Function chatToolDef `json:"function"`
}

type chatToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// buildRequest translates a canonical request into the OpenAI wire format.
func (p *Provider) buildRequest(req *types.Request) *chatRequest {
	out := &chatRequest{
		Model:           p.model,
		MaxTokens:       req.Settings.MaxTokens,
		Temperature:     req.Settings.Temperature,
		TopP:            req.Settings.TopP,
		Stop:            req.Settings.StopSequences,
		ReasoningEffort: string(req.Settings.ReasoningEffort),
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}

	if req.System != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, convertMessage(msg)...)
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatToolDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  marshalSchema(tool.Parameters),
			},
		})
	}
	return out
}

// convertMessage maps one canonical message onto wire messages. Tool results
// split out into separate role "tool" entries; everything else folds into a
// single message.
func convertMessage(msg types.Message) []chatMessage {
	var out []chatMessage
	wire := chatMessage{Role: string(msg.Role)}

	var parts []chatContentPart
	for _, block := range msg.Content {
		switch b := block.(type) {
		case types.TextBlock:
			parts = append(parts, chatContentPart{Type: "text", Text: b.Text})
		case types.ImageBlock:
			parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: sourceURL(b.Source)}})
		case types.AudioBlock:
			parts = append(parts, chatContentPart{Type: "input_audio", InputAudio: &chatInputAudio{
				Data:   b.Source.Data,
				Format: audioFormat(b.Source.MediaType),
			}})
		case types.ToolUseBlock:
			wire.ToolCalls = append(wire.ToolCalls, chatToolCall{
				ID:   b.ID,
				Type: "function",
				Function: chatToolFunction{
					Name:      b.Name,
					Arguments: marshalValue(b.Input),
				},
			})
		case types.ToolResultBlock:
			out = append(out, chatMessage{
				Role:       "tool",
				ToolCallID: b.ToolUseID,
				Content:    blocksText(b.Content),
			})
		case types.ThinkingBlock:
			// Thinking is model output; OpenAI has no input slot for it.
		}
	}

	if len(parts) == 1 && parts[0].Type == "text" {
		wire.Content = parts[0].Text
	} else if len(parts) > 0 {
		wire.Content = parts
	}

	if wire.Content != nil || len(wire.ToolCalls) > 0 {
		out = append([]chatMessage{wire}, out...)
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

// sourceURL renders a Source as a URL, inlining base64 data as a data URI.
func sourceURL(src types.Source) string {
	if src.URL != "" {
		return src.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", src.MediaType, src.Data)
}

// audioFormat maps a media type to OpenAI's input_audio format field.
func audioFormat(mediaType string) string {
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "wav"
	}
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

func marshalValue(v types.Value) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
