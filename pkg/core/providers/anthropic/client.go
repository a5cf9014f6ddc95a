package anthropic

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

func (p *Provider) doRequest(ctx context.Context, req *messagesRequest) ([]byte, error) {
	resp, err := p.post(ctx, req)
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

func (p *Provider) doStreamRequest(ctx context.Context, req *messagesRequest) (io.ReadCloser, error) {
	resp, err := p.post(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return resp.Body, nil
}

func (p *Provider) post(ctx context.Context, payload *messagesRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewNetworkError(err)
	}
	return resp, nil
}

// wireError is the Anthropic error envelope.
type wireError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := string(body)
	code := ""
	var envelope wireError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		code = envelope.Error.Type
	}

	requestID := resp.Header.Get("request-id")

	var e *core.Error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e = core.NewAuthenticationError(message)
	case http.StatusTooManyRequests:
		e = core.NewRateLimitError(message, retryAfterHeader(resp))
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge:
		e = core.NewInvalidRequestError(message)
	case 529:
		// Anthropic's dedicated overloaded status.
		e = core.NewOverloadedError(message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e = core.NewOverloadedError(message)
	default:
		e = core.NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, message))
	}
	e.Code = code
	e.RequestID = requestID
	return e
}

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
