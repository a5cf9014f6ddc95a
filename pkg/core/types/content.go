package types

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is the interface for all content part types.
// INPUT:  text, image, audio, file, tool_result
// OUTPUT: text, thinking, tool_use
type ContentBlock interface {
	BlockType() string
}

// TextBlock represents text content.
type TextBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

func (t TextBlock) BlockType() string { return "text" }

// ThinkingBlock represents internal reasoning content produced by the model.
type ThinkingBlock struct {
	Type     string `json:"type"` // "thinking"
	Thinking string `json:"thinking"`
}

func (t ThinkingBlock) BlockType() string { return "thinking" }

// ImageBlock represents image content.
type ImageBlock struct {
	Type   string `json:"type"` // "image"
	Source Source `json:"source"`
}

func (t ImageBlock) BlockType() string { return "image" }

// AudioBlock represents audio content.
type AudioBlock struct {
	Type   string `json:"type"` // "audio"
	Source Source `json:"source"`
}

func (t AudioBlock) BlockType() string { return "audio" }

// FileBlock represents an attached file (PDF and similar).
type FileBlock struct {
	Type     string `json:"type"` // "file"
	Source   Source `json:"source"`
	Filename string `json:"filename,omitempty"`
}

func (t FileBlock) BlockType() string { return "file" }

// Source carries binary content either inline (base64) or by URL.
type Source struct {
	Type      string `json:"type"`                 // "base64" or "url"
	MediaType string `json:"media_type,omitempty"` // "image/png", "audio/wav", ...
	Data      string `json:"data,omitempty"`       // base64 payload
	URL       string `json:"url,omitempty"`
}

// ToolUseBlock represents a tool invocation requested by the model.
type ToolUseBlock struct {
	Type  string `json:"type"` // "tool_use"
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input Value  `json:"input"`
}

func (t ToolUseBlock) BlockType() string { return "tool_use" }

// ToolResultBlock represents the result of a tool call, sent back as user content.
type ToolResultBlock struct {
	Type      string         `json:"type"` // "tool_result"
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

func (t ToolResultBlock) BlockType() string { return "tool_result" }

// Text creates a TextBlock.
func Text(s string) TextBlock {
	return TextBlock{Type: "text", Text: s}
}

// UnmarshalContentBlock deserializes a single content block from JSON.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var typeHolder struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &typeHolder); err != nil {
		return nil, err
	}

	switch typeHolder.Type {
	case "text":
		var block TextBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "thinking":
		var block ThinkingBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "image":
		var block ImageBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "audio":
		var block AudioBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "file":
		var block FileBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "tool_use":
		var block ToolUseBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "tool_result":
		var raw struct {
			Type      string            `json:"type"`
			ToolUseID string            `json:"tool_use_id"`
			Content   []json.RawMessage `json:"content"`
			IsError   bool              `json:"is_error"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		block := ToolResultBlock{
			Type:      raw.Type,
			ToolUseID: raw.ToolUseID,
			IsError:   raw.IsError,
		}
		for _, item := range raw.Content {
			inner, err := UnmarshalContentBlock(item)
			if err != nil {
				return nil, err
			}
			block.Content = append(block.Content, inner)
		}
		return block, nil

	default:
		return nil, fmt.Errorf("unknown content block type: %s", typeHolder.Type)
	}
}

// UnmarshalContentBlocks deserializes an array of content blocks from JSON.
func UnmarshalContentBlocks(data []byte) ([]ContentBlock, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	blocks := make([]ContentBlock, 0, len(raw))
	for _, item := range raw {
		block, err := UnmarshalContentBlock(item)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
