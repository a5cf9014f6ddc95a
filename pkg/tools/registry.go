// Package tools resolves tool-call events to executable handlers, enforces
// per-call timeouts, and records an append-only execution history.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// Outcome classifies a tool invocation result.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeError    Outcome = "error"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeNotFound Outcome = "not_found"
)

// ExecutionRecord is one entry in the invocation history. Records appear in
// invocation order, not completion order: a slow tool started earlier still
// occupies its chronological slot.
type ExecutionRecord struct {
	ToolName    string      `json:"tool_name"`
	Arguments   types.Value `json:"arguments"`
	Outcome     Outcome     `json:"outcome"`
	Output      types.Value `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Registry holds executable tools keyed by name.
type Registry struct {
	mu      sync.Mutex
	tools   map[string]types.Tool
	history []ExecutionRecord
	log     zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools: make(map[string]types.Tool),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Re-registering a name replaces the previous handler;
// last write wins.
func (r *Registry) Register(tool types.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (types.Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns the registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := lo.Keys(r.tools)
	sort.Strings(names)
	return names
}

// Tools returns the registered tool definitions for offering to a provider.
func (r *Registry) Tools() []types.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Tool, 0, len(r.tools))
	for _, name := range lo.Keys(r.tools) {
		out = append(out, r.tools[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named tool with the given raw arguments, racing the
// handler against the timeout. If the timer fires first, the handler's
// eventual completion is discarded and never awaited. Every invocation
// appends exactly one history record.
func (r *Registry) Execute(ctx context.Context, name string, args types.Value, timeout time.Duration) (types.Value, error) {
	startedAt := time.Now()
	slot := r.reserveSlot()

	tool, ok := r.Get(name)
	if !ok {
		err := core.NewInvalidRequestError(fmt.Sprintf("tool %q is not registered", name))
		r.fillSlot(slot, ExecutionRecord{
			ToolName:    name,
			Arguments:   args,
			Outcome:     OutcomeNotFound,
			Error:       err.Error(),
			StartedAt:   startedAt,
			CompletedAt: time.Now(),
		})
		return types.Null(), err
	}

	fields, ok := args.Fields()
	if !ok && !args.IsNull() {
		err := core.NewInvalidRequestError(fmt.Sprintf("tool %q arguments must be a JSON object, got %s", name, args.Kind()))
		r.fillSlot(slot, ExecutionRecord{
			ToolName:    name,
			Arguments:   args,
			Outcome:     OutcomeError,
			Error:       err.Error(),
			StartedAt:   startedAt,
			CompletedAt: time.Now(),
		})
		return types.Null(), err
	}

	type result struct {
		output types.Value
		err    error
	}

	// Buffered so the handler goroutine can always complete and exit even
	// after a timeout has been returned to the caller.
	done := make(chan result, 1)
	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		output, err := tool.Handler(handlerCtx, fields)
		done <- result{output: output, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	record := ExecutionRecord{
		ToolName:  name,
		Arguments: args,
		StartedAt: startedAt,
	}

	select {
	case res := <-done:
		record.CompletedAt = time.Now()
		if res.err != nil {
			record.Outcome = OutcomeError
			record.Error = res.err.Error()
			r.fillSlot(slot, record)
			r.log.Warn().Str("tool", name).Err(res.err).Msg("tool execution failed")
			return types.Null(), res.err
		}
		record.Outcome = OutcomeSuccess
		record.Output = res.output
		r.fillSlot(slot, record)
		return res.output, nil

	case <-timer.C:
		cancel()
		record.CompletedAt = time.Now()
		record.Outcome = OutcomeTimeout
		err := core.NewTimeoutError(fmt.Sprintf("tool %q exceeded %s timeout", name, timeout))
		record.Error = err.Error()
		r.fillSlot(slot, record)
		r.log.Warn().Str("tool", name).Dur("timeout", timeout).Msg("tool execution timed out")
		return types.Null(), err

	case <-ctx.Done():
		cancel()
		record.CompletedAt = time.Now()
		record.Outcome = OutcomeError
		record.Error = ctx.Err().Error()
		r.fillSlot(slot, record)
		return types.Null(), ctx.Err()
	}
}

// History returns a copy of the execution history in invocation order.
func (r *Registry) History() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutionRecord, len(r.history))
	copy(out, r.history)
	return out
}

// ClearHistory drops all execution records.
func (r *Registry) ClearHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// reserveSlot claims the next history position at invocation time, so that
// concurrent executions record in invocation order regardless of completion
// order.
func (r *Registry) reserveSlot() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, ExecutionRecord{})
	return len(r.history) - 1
}

func (r *Registry) fillSlot(slot int, record ExecutionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[slot] = record
}
