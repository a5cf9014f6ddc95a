package oairesp

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// streamEvent is the union of Responses API stream event payloads. Event
// names arrive on "event:" lines but the payload carries the same name in
// its type field.
type streamEvent struct {
	Type string `json:"type"`

	Delta  string `json:"delta"`
	ItemID string `json:"item_id"`

	Item *struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		CallID string `json:"call_id"`
		Name   string `json:"name"`
	} `json:"item"`

	Response *responseObject `json:"response"`

	Message string `json:"message"`
	Code    string `json:"code"`
}

// deltaStream decodes the Responses API SSE grammar into canonical deltas.
//
// Function calls open with an output_item.added event carrying the call id
// and name, then stream function_call_arguments.delta fragments keyed by
// item id. response.completed carries the final usage; response.failed and
// error terminate with an error delta.
type deltaStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending []*types.Delta
	partial string

	// callIDs maps the output item id to the function call id argument
	// fragments attach to.
	callIDs map[string]string

	usage      *types.Usage
	stopReason types.StopReason

	finished bool
	closed   bool
}

func newDeltaStream(body io.ReadCloser) *deltaStream {
	return &deltaStream{
		body:       body,
		reader:     bufio.NewReader(body),
		callIDs:    make(map[string]string),
		stopReason: types.StopEndTurn,
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
		if data == "" || data == "[DONE]" {
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
	case "response.output_text.delta":
		s.pending = append(s.pending, types.NewTextDelta(event.Delta))

	case "response.reasoning_text.delta", "response.reasoning_summary_text.delta":
		s.pending = append(s.pending, types.NewReasoningDelta(event.Delta))

	case "response.output_item.added":
		if event.Item == nil || event.Item.Type != "function_call" {
			return
		}
		s.callIDs[event.Item.ID] = event.Item.CallID
		s.stopReason = types.StopToolUse
		s.pending = append(s.pending, &types.Delta{
			Kind: types.DeltaToolCall,
			ToolCall: &types.ToolCallDelta{
				ID:   event.Item.CallID,
				Name: event.Item.Name,
			},
		})

	case "response.function_call_arguments.delta":
		s.pending = append(s.pending, &types.Delta{
			Kind: types.DeltaToolCall,
			ToolCall: &types.ToolCallDelta{
				ID:            s.callIDs[event.ItemID],
				ArgumentsJSON: event.Delta,
			},
		})

	case "response.function_call_arguments.done":
		s.pending = append(s.pending, &types.Delta{
			Kind: types.DeltaToolCall,
			ToolCall: &types.ToolCallDelta{
				ID:       s.callIDs[event.ItemID],
				Complete: true,
			},
		})

	case "response.completed":
		if event.Response != nil {
			if event.Response.Usage != nil {
				u := convertUsage(event.Response.Usage)
				s.usage = &u
			}
			if d := event.Response.IncompleteDetails; d != nil && d.Reason == "max_output_tokens" {
				s.stopReason = types.StopMaxTokens
			}
		}
		s.queueDone()

	case "response.incomplete":
		s.stopReason = types.StopMaxTokens
		s.queueDone()

	case "response.failed", "error":
		message := event.Message
		if message == "" {
			message = "response failed"
		}
		s.queueError(core.NewAPIError(message))
	}
}

func (s *deltaStream) queueDone() {
	if s.finished {
		return
	}
	s.finished = true
	s.pending = append(s.pending, types.NewDoneDelta(s.stopReason, s.usage))
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
