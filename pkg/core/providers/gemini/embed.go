package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model   string      `json:"model"`
	Content wireContent `json:"content"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// Embed generates embedding vectors via batchEmbedContents.
func (p *Provider) Embed(ctx context.Context, req *types.EmbedRequest) (*types.EmbedResponse, error) {
	if len(req.Input) == 0 {
		return nil, core.NewInvalidRequestError("embed request has no input")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	wire := batchEmbedRequest{}
	for _, input := range req.Input {
		wire.Requests = append(wire.Requests, embedContentRequest{
			Model:   "models/" + model,
			Content: wireContent{Parts: []wirePart{{Text: input}}},
		})
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", p.baseURL, model)
	resp, err := p.post(ctx, url, &wire)
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

	var parsed batchEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, core.NewAPIError(fmt.Sprintf("decode embeddings: %v", err))
	}

	out := &types.EmbedResponse{Model: model}
	for _, e := range parsed.Embeddings {
		out.Embeddings = append(out.Embeddings, e.Values)
	}
	return out, nil
}
