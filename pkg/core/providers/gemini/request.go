package gemini

import (
	"encoding/json"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// generateRequest is the generateContent request wire format.
type generateRequest struct {
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	Contents          []wireContent     `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	Tools             []wireToolGroup   `json:"tools,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int            `json:"maxOutputTokens,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	TopP            *float64       `json:"topP,omitempty"`
	StopSequences   []string       `json:"stopSequences,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

// wirePart is the union of Gemini content part shapes.
type wirePart struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type wireToolGroup struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// thinkingBudget maps reasoning effort onto a Gemini thinking token budget.
func thinkingBudget(effort types.ReasoningEffort) int {
	switch effort {
	case types.EffortLow:
		return 1024
	case types.EffortMedium:
		return 8192
	case types.EffortHigh:
		return 24576
	default:
		return 0
	}
}

func (p *Provider) buildRequest(req *types.Request) *generateRequest {
	out := &generateRequest{
		GenerationConfig: &generationConfig{
			MaxOutputTokens: req.Settings.MaxTokens,
			Temperature:     req.Settings.Temperature,
			TopP:            req.Settings.TopP,
			StopSequences:   req.Settings.StopSequences,
		},
	}
	if budget := thinkingBudget(req.Settings.ReasoningEffort); budget > 0 {
		out.GenerationConfig.ThinkingConfig = &thinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  budget,
		}
	}

	if req.System != "" {
		out.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}

	for _, msg := range req.Messages {
		content := convertMessage(msg)
		if content != nil {
			out.Contents = append(out.Contents, *content)
		}
	}

	if len(req.Tools) > 0 {
		group := wireToolGroup{}
		for _, tool := range req.Tools {
			group.FunctionDeclarations = append(group.FunctionDeclarations, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  marshalSchema(tool.Parameters),
			})
		}
		out.Tools = []wireToolGroup{group}
	}
	return out
}

// convertMessage maps a canonical message onto Gemini content. Gemini roles
// are "user" and "model"; tool results travel as functionResponse parts in a
// user turn, matched by function name since Gemini has no call ids.
func convertMessage(msg types.Message) *wireContent {
	role := "user"
	if msg.Role == types.RoleAssistant {
		role = "model"
	}

	content := wireContent{Role: role}
	for _, block := range msg.Content {
		switch b := block.(type) {
		case types.TextBlock:
			content.Parts = append(content.Parts, wirePart{Text: b.Text})
		case types.ThinkingBlock:
			content.Parts = append(content.Parts, wirePart{Text: b.Thinking, Thought: true})
		case types.ImageBlock:
			content.Parts = append(content.Parts, wirePart{InlineData: &inlineData{
				MimeType: b.Source.MediaType,
				Data:     b.Source.Data,
			}})
		case types.AudioBlock:
			content.Parts = append(content.Parts, wirePart{InlineData: &inlineData{
				MimeType: b.Source.MediaType,
				Data:     b.Source.Data,
			}})
		case types.ToolUseBlock:
			args, err := json.Marshal(b.Input)
			if err != nil {
				args = []byte("{}")
			}
			content.Parts = append(content.Parts, wirePart{FunctionCall: &functionCall{
				Name: b.Name,
				Args: args,
			}})
		case types.ToolResultBlock:
			content.Parts = append(content.Parts, wirePart{FunctionResponse: &functionResponse{
				Name:     b.ToolUseID,
				Response: map[string]any{"result": blocksText(b.Content)},
			}})
		}
	}
	if len(content.Parts) == 0 {
		return nil
	}
	return &content
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
