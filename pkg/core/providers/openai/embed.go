package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage *chatUsage `json:"usage"`
}

// Embed generates embedding vectors for the given inputs.
func (p *Provider) Embed(ctx context.Context, req *types.EmbedRequest) (*types.EmbedResponse, error) {
	if len(req.Input) == 0 {
		return nil, core.NewInvalidRequestError("embed request has no input")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	resp, err := p.post(ctx, "/embeddings", &embedRequest{Model: model, Input: req.Input})
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

	var wire embedResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, core.NewAPIError(fmt.Sprintf("decode embeddings: %v", err))
	}

	out := &types.EmbedResponse{
		Model:      model,
		Embeddings: make([][]float64, len(wire.Data)),
	}
	for _, item := range wire.Data {
		if item.Index >= 0 && item.Index < len(out.Embeddings) {
			out.Embeddings[item.Index] = item.Embedding
		}
	}
	if wire.Usage != nil {
		out.Usage = convertUsage(wire.Usage)
	}
	return out, nil
}
