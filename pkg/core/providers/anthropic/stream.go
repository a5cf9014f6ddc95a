package anthropic

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// streamEvent is the union of Messages API stream event payloads. The event
// name arrives on a preceding "event:" line but the payload repeats it in
// the type field, so the decoder keys off the payload alone.
type streamEvent struct {
	Type string `json:"type"`

	Message *struct {
		ID    string     `json:"id"`
		Usage *wireUsage `json:"usage"`
	} `json:"message"`

	Index        int `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Usage *wireUsage `json:"usage"`

	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// deltaStream decodes the Messages API SSE grammar into canonical deltas.
//
// Each event is an "event:" line followed by a "data:" line. Tool-use blocks
// open with content_block_start carrying the call id and name, then stream
// input_json_delta argument fragments. Signature deltas carry no content and
// are skipped. Ping events are keepalives.
type deltaStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending []*types.Delta
	partial string

	// toolIDs maps content block index to tool call id.
	toolIDs map[int]string
	// blockTypes maps content block index to its block type, so text deltas
	// inside a thinking block route to the thinking channel.
	blockTypes map[int]string

	stopReason string
	usage      *types.Usage

	finished bool
	closed   bool
}

func newDeltaStream(body io.ReadCloser) *deltaStream {
	return &deltaStream{
		body:       body,
		reader:     bufio.NewReader(body),
		toolIDs:    make(map[int]string),
		blockTypes: make(map[int]string),
	}
}

func (s *deltaStream) Next() (*types.Delta, error) {
	for {
		if len(s.pending) > 0 {
			delta := s.pending[0]
			s.pending = s.pending[1:]
			return delta, nil
		}
		if s.finished {
			return nil, io.EOF
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.queueDone()
				continue
			}
			s.queueError(core.NewNetworkError(err))
			continue
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "event:") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		s.handleData(data)
	}
}

func (s *deltaStream) handleData(data string) {
	if s.partial != "" {
		data = s.partial + data
		s.partial = ""
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		s.partial = data
		return
	}
	s.handleEvent(&event)
}

func (s *deltaStream) handleEvent(event *streamEvent) {
	switch event.Type {
	case "message_start":
		if event.Message != nil && event.Message.Usage != nil {
			u := convertUsage(event.Message.Usage)
			s.usage = &u
		}

	case "content_block_start":
		if event.ContentBlock == nil {
			return
		}
		s.blockTypes[event.Index] = event.ContentBlock.Type
		if event.ContentBlock.Type == "tool_use" {
			s.toolIDs[event.Index] = event.ContentBlock.ID
			s.pending = append(s.pending, &types.Delta{
				Kind: types.DeltaToolCall,
				ToolCall: &types.ToolCallDelta{
					ID:   event.ContentBlock.ID,
					Name: event.ContentBlock.Name,
				},
			})
		}

	case "content_block_delta":
		if event.Delta == nil {
			return
		}
		switch event.Delta.Type {
		case "text_delta":
			if s.blockTypes[event.Index] == "thinking" {
				s.pending = append(s.pending, types.NewReasoningDelta(event.Delta.Text))
				return
			}
			s.pending = append(s.pending, types.NewTextDelta(event.Delta.Text))
		case "thinking_delta":
			s.pending = append(s.pending, types.NewReasoningDelta(event.Delta.Thinking))
		case "input_json_delta":
			s.pending = append(s.pending, &types.Delta{
				Kind: types.DeltaToolCall,
				ToolCall: &types.ToolCallDelta{
					ID:            s.toolIDs[event.Index],
					ArgumentsJSON: event.Delta.PartialJSON,
				},
			})
		case "signature_delta":
			// Integrity signature over the thinking block. No content.
		}

	case "content_block_stop":
		if id, ok := s.toolIDs[event.Index]; ok {
			s.pending = append(s.pending, &types.Delta{
				Kind:     types.DeltaToolCall,
				ToolCall: &types.ToolCallDelta{ID: id, Complete: true},
			})
			delete(s.toolIDs, event.Index)
		}

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			s.stopReason = event.Delta.StopReason
		}
		if event.Usage != nil {
			u := convertUsage(event.Usage)
			if s.usage != nil {
				u.InputTokens += s.usage.InputTokens
				u.TotalTokens = u.InputTokens + u.OutputTokens
			}
			s.usage = &u
		}

	case "message_stop":
		s.queueDone()

	case "error":
		message := "stream error"
		if event.Error != nil {
			message = event.Error.Message
		}
		s.queueError(core.NewAPIError(message))

	case "ping":
		// Keepalive.
	}
}

func (s *deltaStream) queueDone() {
	if s.finished {
		return
	}
	s.finished = true
	s.pending = append(s.pending, types.NewDoneDelta(mapStopReason(s.stopReason), s.usage))
}

func (s *deltaStream) queueError(err error) {
	if s.finished {
		return
	}
	s.pending = append(s.pending, types.NewErrorDelta(err))
	s.finished = true
	s.pending = append(s.pending, types.NewDoneDelta(types.StopError, s.usage))
}

func (s *deltaStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
