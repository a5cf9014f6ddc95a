package types

import "context"

// ToolHandler executes a tool call. Arguments arrive parsed into tagged
// Values; the returned Value is serialized back to the model.
type ToolHandler func(ctx context.Context, args map[string]Value) (Value, error)

// Tool defines a callable tool offered to a provider.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Parameters  ToolSchema `json:"parameters"`

	// Handler executes the tool. It is excluded from serialization and from
	// request fingerprinting: two requests differing only in handler
	// identity are the same request.
	Handler ToolHandler `json:"-"`
}

// ToolSchema is the structural shape of a tool's parameters. This is the
// external contract tools must satisfy to be offered to any provider.
type ToolSchema struct {
	Properties map[string]PropertySchema `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema describes one tool parameter.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}

// IsRequired reports whether name appears in the required list.
func (s ToolSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// NewTool creates a tool definition with a handler.
func NewTool(name, description string, schema ToolSchema, handler ToolHandler) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Handler:     handler,
	}
}
