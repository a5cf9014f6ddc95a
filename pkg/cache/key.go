package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// keyMessage is the canonicalized slice of a message that participates in
// fingerprinting: role, content, and channel. Metadata is excluded.
type keyMessage struct {
	Role    types.Role           `json:"role"`
	Content []types.ContentBlock `json:"content"`
	Channel types.Channel        `json:"channel,omitempty"`
}

// keyTool is the canonicalized slice of a tool definition. Handler closures
// are excluded: two requests that differ only in handler identity fingerprint
// identically.
type keyTool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Parameters  types.ToolSchema `json:"parameters"`
}

// keyDocument is the full canonical form hashed into a cache key. Fields are
// marshaled in declared order and encoding/json sorts map keys, so the
// encoding is deterministic for semantically identical requests.
type keyDocument struct {
	Model    string                   `json:"model"`
	System   string                   `json:"system,omitempty"`
	Messages []keyMessage             `json:"messages"`
	Tools    []keyTool                `json:"tools,omitempty"`
	Settings types.GenerationSettings `json:"settings"`
}

// Fingerprint computes the deterministic cache key for a request. Hash
// collisions are treated as cache hits; there is no collision safety beyond
// hash strength.
func Fingerprint(req *types.Request) (string, error) {
	doc := keyDocument{
		Model:    req.Model,
		System:   req.System,
		Messages: make([]keyMessage, len(req.Messages)),
		Settings: req.Settings,
	}
	for i, msg := range req.Messages {
		doc.Messages[i] = keyMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Channel: msg.Channel,
		}
	}
	for _, tool := range req.Tools {
		doc.Tools = append(doc.Tools, keyTool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
