package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

func TestGenerate(t *testing.T) {
	var got chatRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{"message": {"role": "assistant", "content": "Hi there!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	p := New("gpt-4o", "sk-test", WithBaseURL(server.URL))
	resp, err := p.Generate(context.Background(), &types.Request{
		Model:    "openai/gpt-4o",
		System:   "Be brief.",
		Messages: []types.Message{types.UserText("Hello")},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != "gpt-4o" {
		t.Errorf("wire model = %q", got.Model)
	}
	if got.MaxTokens != DefaultMaxTokens {
		t.Errorf("max tokens = %d, want default %d", got.MaxTokens, DefaultMaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v, want system then user", got.Messages)
	}

	if resp.Text() != "Hi there!" {
		t.Errorf("Text = %q", resp.Text())
	}
	if resp.StopReason != types.StopEndTurn {
		t.Errorf("StopReason = %s", resp.StopReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestGenerateToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Lisbon\"}"}}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer server.Close()

	p := New("gpt-4o", "sk-test", WithBaseURL(server.URL))
	resp, err := p.Generate(context.Background(), &types.Request{
		Model:    "openai/gpt-4o",
		Messages: []types.Message{types.UserText("weather in lisbon")},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	calls := resp.ToolUses()
	if len(calls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "get_weather" {
		t.Errorf("call = %+v", calls[0])
	}
	city, _ := calls[0].Input.Field("city")
	if s, _ := city.Str(); s != "Lisbon" {
		t.Errorf("city = %q", s)
	}
	if resp.StopReason != types.StopToolUse {
		t.Errorf("StopReason = %s", resp.StopReason)
	}
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		status     int
		retryAfter string
		wantType   core.ErrorType
	}{
		{http.StatusUnauthorized, "", core.ErrAuthentication},
		{http.StatusTooManyRequests, "2", core.ErrRateLimit},
		{http.StatusBadRequest, "", core.ErrInvalidRequest},
		{http.StatusServiceUnavailable, "", core.ErrOverloaded},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tc.retryAfter != "" {
				w.Header().Set("Retry-After", tc.retryAfter)
			}
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error": {"message": "nope", "type": "test", "code": "err_code"}}`))
		}))

		p := New("gpt-4o", "sk-test", WithBaseURL(server.URL))
		_, err := p.Generate(context.Background(), &types.Request{
			Model:    "openai/gpt-4o",
			Messages: []types.Message{types.UserText("Hello")},
		})
		server.Close()

		var coreErr *core.Error
		if !errors.As(err, &coreErr) {
			t.Fatalf("status %d: err = %v, want *core.Error", tc.status, err)
		}
		if coreErr.Type != tc.wantType {
			t.Errorf("status %d: type = %s, want %s", tc.status, coreErr.Type, tc.wantType)
		}
		if coreErr.Message != "nope" {
			t.Errorf("status %d: message = %q, want envelope message", tc.status, coreErr.Message)
		}
		if tc.retryAfter != "" {
			hint, ok := core.RetryAfterHint(coreErr)
			if !ok || hint != 2*time.Second {
				t.Errorf("status %d: hint = %v, %v", tc.status, hint, ok)
			}
		}
	}
}

func TestGenerateRejectsEmptyRequest(t *testing.T) {
	p := New("gpt-4o", "sk-test", WithBaseURL("http://127.0.0.1:0"))
	_, err := p.Generate(context.Background(), &types.Request{Model: "openai/gpt-4o"})

	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrInvalidRequest {
		t.Fatalf("err = %v, want invalid request before any network call", err)
	}
}

func TestModelID(t *testing.T) {
	p := New("gpt-4o", "sk-test")
	if got := p.ModelID(); got != "openai/gpt-4o" {
		t.Errorf("ModelID = %q", got)
	}
}

func TestParseArgumentsPreservesMalformedJSON(t *testing.T) {
	v := parseArguments(`{"broken":`)
	if s, ok := v.Str(); !ok || s != `{"broken":` {
		t.Errorf("malformed arguments = %v, want preserved as string", v)
	}

	if v := parseArguments(""); v.Kind() != types.KindObject {
		t.Errorf("empty arguments = %v, want empty object", v)
	}
}
