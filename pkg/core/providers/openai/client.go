package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
)

// doRequest executes a non-streaming request and returns the response body.
func (p *Provider) doRequest(ctx context.Context, req *chatRequest) ([]byte, error) {
	resp, err := p.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewNetworkError(err)
	}
	return body, nil
}

// doStreamRequest executes a streaming request and returns the open body for
// SSE consumption. The caller owns closing it.
func (p *Provider) doStreamRequest(ctx context.Context, req *chatRequest) (io.ReadCloser, error) {
	resp, err := p.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return resp.Body, nil
}

func (p *Provider) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("build request: %v", err))
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewNetworkError(err)
	}
	return resp, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}
}

// errorResponse is the OpenAI error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// parseError maps an HTTP error response to the provider-neutral taxonomy.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := string(body)
	code := ""
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		code = fmt.Sprintf("%v", envelope.Error.Code)
		if code == "<nil>" {
			code = ""
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e := core.NewAuthenticationError(message)
		e.Code = code
		return e
	case http.StatusTooManyRequests:
		e := core.NewRateLimitError(message, retryAfterHeader(resp))
		e.Code = code
		return e
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		e := core.NewInvalidRequestError(message)
		e.Code = code
		return e
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e := core.NewOverloadedError(message)
		e.Code = code
		return e
	default:
		e := core.NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, message))
		e.Code = code
		return e
	}
}

// retryAfterHeader parses the Retry-After header as seconds. Zero means no
// usable hint.
func retryAfterHeader(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
