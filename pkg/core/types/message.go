package types

import (
	"encoding/json"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role     Role              `json:"role"`
	Content  []ContentBlock    `json:"content"`
	Channel  Channel           `json:"channel,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UserText creates a user message with a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{Text(text)}}
}

// AssistantText creates an assistant message with a single text block.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{Text(text)}}
}

// SystemText creates a system message with a single text block.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{Text(text)}}
}

// UnmarshalJSON handles the polymorphic content array.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role     Role              `json:"role"`
		Content  json.RawMessage   `json:"content"`
		Channel  Channel           `json:"channel"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Channel = raw.Channel
	m.Metadata = raw.Metadata
	m.Content = nil

	if len(raw.Content) == 0 {
		return nil
	}

	// Accept a plain string as shorthand for one text block.
	var str string
	if err := json.Unmarshal(raw.Content, &str); err == nil {
		m.Content = []ContentBlock{Text(str)}
		return nil
	}

	blocks, err := UnmarshalContentBlocks(raw.Content)
	if err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

// TextContent concatenates all text blocks in the message.
func (m *Message) TextContent() string {
	var text string
	for _, block := range m.Content {
		switch b := block.(type) {
		case TextBlock:
			text += b.Text
		case *TextBlock:
			text += b.Text
		}
	}
	return text
}

// ToolUses returns every tool_use block in the message.
func (m *Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range m.Content {
		if tu, ok := block.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}
