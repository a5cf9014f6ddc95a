package tools

import (
	"fmt"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// Args provides typed access to parsed tool-call arguments against the
// tool's parameter schema. Accessors fail with a descriptive error when a
// key is absent or its type mismatches, except where the schema marks the
// parameter optional: then absence yields nil rather than an error.
type Args struct {
	schema types.ToolSchema
	values map[string]types.Value
}

// NewArgs binds parsed argument values to a parameter schema.
func NewArgs(schema types.ToolSchema, values map[string]types.Value) Args {
	if values == nil {
		values = map[string]types.Value{}
	}
	return Args{schema: schema, values: values}
}

// ParseArgs parses a raw JSON arguments document and binds it to schema.
func ParseArgs(schema types.ToolSchema, raw []byte) (Args, error) {
	value, err := types.ParseValue(raw)
	if err != nil {
		return Args{}, fmt.Errorf("parse tool arguments: %w", err)
	}
	fields, ok := value.Fields()
	if !ok {
		return Args{}, fmt.Errorf("tool arguments must be a JSON object, got %s", value.Kind())
	}
	return NewArgs(schema, fields), nil
}

// lookup resolves a key, applying the optional-parameter rule. The returned
// pointer is nil when an optional parameter is absent.
func (a Args) lookup(name string) (*types.Value, error) {
	value, ok := a.values[name]
	if !ok || value.IsNull() {
		if a.schema.IsRequired(name) {
			return nil, fmt.Errorf("missing required parameter %q", name)
		}
		return nil, nil
	}
	return &value, nil
}

// StringValue returns the named string parameter, or nil if optional and
// absent.
func (a Args) StringValue(name string) (*string, error) {
	value, err := a.lookup(name)
	if err != nil || value == nil {
		return nil, err
	}
	s, ok := value.Str()
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected string, got %s", name, value.Kind())
	}
	return &s, nil
}

// NumberValue returns the named numeric parameter, or nil if optional and
// absent.
func (a Args) NumberValue(name string) (*float64, error) {
	value, err := a.lookup(name)
	if err != nil || value == nil {
		return nil, err
	}
	n, ok := value.Num()
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected number, got %s", name, value.Kind())
	}
	return &n, nil
}

// BooleanValue returns the named boolean parameter, or nil if optional and
// absent.
func (a Args) BooleanValue(name string) (*bool, error) {
	value, err := a.lookup(name)
	if err != nil || value == nil {
		return nil, err
	}
	b, ok := value.Boolean()
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected boolean, got %s", name, value.Kind())
	}
	return &b, nil
}

// ArrayValue returns the named array parameter, or nil if optional and
// absent.
func (a Args) ArrayValue(name string) ([]types.Value, error) {
	value, err := a.lookup(name)
	if err != nil || value == nil {
		return nil, err
	}
	items, ok := value.Items()
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected array, got %s", name, value.Kind())
	}
	return items, nil
}

// ObjectValue returns the named object parameter, or nil if optional and
// absent.
func (a Args) ObjectValue(name string) (map[string]types.Value, error) {
	value, err := a.lookup(name)
	if err != nil || value == nil {
		return nil, err
	}
	fields, ok := value.Fields()
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected object, got %s", name, value.Kind())
	}
	return fields, nil
}
