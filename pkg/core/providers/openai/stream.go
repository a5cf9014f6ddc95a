package openai

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// chatChunk is one streamed Chat Completions chunk.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// deltaStream decodes the Chat Completions SSE grammar into canonical deltas.
//
// Lines are "data: <json>" with "data: [DONE]" as the terminator. Tool calls
// stream fragmented: the first chunk for an index carries the id and function
// name, later chunks append argument fragments keyed by index. A chunk that
// fails to parse is buffered and retried with the next data line rather than
// dropped.
type deltaStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending []*types.Delta
	partial string

	// toolIDs maps a chunk's tool_calls index to the call id, so argument
	// fragments attach to the right invocation.
	toolIDs map[int]string

	finishReason string
	usage        *types.Usage

	finished bool
	closed   bool
}

func newDeltaStream(body io.ReadCloser) *deltaStream {
	return &deltaStream{
		body:    body,
		reader:  bufio.NewReader(body),
		toolIDs: make(map[int]string),
	}
}

// Next returns the next canonical delta, or io.EOF after the terminal done
// delta has been delivered.
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
				// Stream ended without [DONE]; still emit the single
				// terminal delta.
				s.queueDone()
				continue
			}
			s.queueError(core.NewNetworkError(err))
			continue
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.queueDone()
			continue
		}

		s.handleData(data)
	}
}

// handleData parses one data payload, prepending any buffered partial
// fragment from a previously unparseable chunk.
func (s *deltaStream) handleData(data string) {
	if s.partial != "" {
		data = s.partial + data
		s.partial = ""
	}

	var chunk chatChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		s.partial = data
		return
	}
	s.handleChunk(&chunk)
}

func (s *deltaStream) handleChunk(chunk *chatChunk) {
	if chunk.Error != nil {
		s.queueError(core.NewAPIError(chunk.Error.Message))
		return
	}
	if chunk.Usage != nil {
		u := convertUsage(chunk.Usage)
		s.usage = &u
	}
	if len(chunk.Choices) == 0 {
		return
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		s.finishReason = choice.FinishReason
	}
	if choice.Delta.Content != "" {
		s.pending = append(s.pending, types.NewTextDelta(choice.Delta.Content))
	}

	for _, call := range choice.Delta.ToolCalls {
		id := call.ID
		if id == "" {
			id = s.toolIDs[call.Index]
		} else {
			s.toolIDs[call.Index] = id
		}
		s.pending = append(s.pending, &types.Delta{
			Kind: types.DeltaToolCall,
			ToolCall: &types.ToolCallDelta{
				ID:            id,
				Name:          call.Function.Name,
				ArgumentsJSON: call.Function.Arguments,
			},
		})
	}
}

// queueDone appends the single terminal delta and marks the stream finished.
func (s *deltaStream) queueDone() {
	if s.finished {
		return
	}
	s.finished = true

	reason := mapFinishReason(s.finishReason)
	s.pending = append(s.pending, types.NewDoneDelta(reason, s.usage))
}

// queueError emits an error delta followed by the terminal done delta.
func (s *deltaStream) queueError(err error) {
	if s.finished {
		return
	}
	s.pending = append(s.pending, types.NewErrorDelta(err))
	s.finished = true
	s.pending = append(s.pending, types.NewDoneDelta(types.StopError, s.usage))
}

// Close releases the underlying response body. Safe to call more than once.
func (s *deltaStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
