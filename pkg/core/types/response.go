package types

// Response is the complete result of a non-streaming generation call.
type Response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       Role           `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason,omitempty"`
	Usage      Usage          `json:"usage"`
}

// Text concatenates all text blocks in the response content.
func (r *Response) Text() string {
	var text string
	for _, block := range r.Content {
		if tb, ok := block.(TextBlock); ok {
			text += tb.Text
		}
	}
	return text
}

// Thinking concatenates all thinking blocks in the response content.
func (r *Response) Thinking() string {
	var text string
	for _, block := range r.Content {
		if tb, ok := block.(ThinkingBlock); ok {
			text += tb.Thinking
		}
	}
	return text
}

// ToolUses returns every tool_use block in the response content.
func (r *Response) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range r.Content {
		if tu, ok := block.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// Clone returns a copy deep enough that mutating the result cannot corrupt
// the receiver. Content blocks are value types, so copying the slice
// suffices for everything except the nested slice in tool_result blocks.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Content = cloneBlocks(r.Content)
	return &out
}

func cloneBlocks(blocks []ContentBlock) []ContentBlock {
	if blocks == nil {
		return nil
	}
	out := make([]ContentBlock, len(blocks))
	for i, block := range blocks {
		if tr, ok := block.(ToolResultBlock); ok {
			tr.Content = cloneBlocks(tr.Content)
			out[i] = tr
			continue
		}
		out[i] = block
	}
	return out
}

// EmbedResponse is the result of an embedding call.
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
	Usage      Usage       `json:"usage"`
}
