package gemini

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// deltaStream decodes Gemini's SSE stream into canonical deltas.
//
// Gemini streams whole generateContent chunks on "data:" lines; there are no
// named events and no [DONE] terminator. Function calls arrive complete in a
// single part, so each becomes one complete tool-call delta. Thought parts
// route to the thinking channel.
type deltaStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending []*types.Delta
	partial string

	finishReason    string
	sawFunctionCall bool
	usage           *types.Usage

	finished bool
	closed   bool
}

func newDeltaStream(body io.ReadCloser) *deltaStream {
	return &deltaStream{
		body:   body,
		reader: bufio.NewReader(body),
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
		if line == "" || !strings.HasPrefix(line, "data:") {
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

	var chunk generateResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		s.partial = data
		return
	}
	s.handleChunk(&chunk)
}

func (s *deltaStream) handleChunk(chunk *generateResponse) {
	if chunk.UsageMetadata != nil {
		u := convertUsage(chunk.UsageMetadata)
		s.usage = &u
	}
	if len(chunk.Candidates) == 0 {
		return
	}

	candidate := chunk.Candidates[0]
	if candidate.FinishReason != "" {
		s.finishReason = candidate.FinishReason
	}
	if candidate.Content == nil {
		return
	}

	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args := string(part.FunctionCall.Args)
			if args == "" {
				args = "{}"
			}
			s.pending = append(s.pending, &types.Delta{
				Kind: types.DeltaToolCall,
				ToolCall: &types.ToolCallDelta{
					ID:            uuid.NewString(),
					Name:          part.FunctionCall.Name,
					ArgumentsJSON: args,
					Complete:      true,
				},
			})
			s.sawFunctionCall = true
		case part.Thought:
			s.pending = append(s.pending, types.NewReasoningDelta(part.Text))
		case part.Text != "":
			s.pending = append(s.pending, types.NewTextDelta(part.Text))
		}
	}
}

func (s *deltaStream) queueDone() {
	if s.finished {
		return
	}
	s.finished = true

	// Gemini reports STOP even when the candidate ended on a function call,
	// so the parts seen win over the reported finish reason.
	reason := mapFinishReason(s.finishReason)
	if s.sawFunctionCall {
		reason = types.StopToolUse
	}
	s.pending = append(s.pending, types.NewDoneDelta(reason, s.usage))
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
