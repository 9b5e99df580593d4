package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// ErrToolNotFound is returned for calls to tools the executor does not know.
var ErrToolNotFound = errors.New("tool not found")

type parameterized interface {
	Parameters() map[string]any
}

// ToolExecutor dispatches tool calls by name.
type ToolExecutor struct {
	tools map[string]tools.Tool
	order []tools.Tool
}

// NewToolExecutor indexes the given tools.
func NewToolExecutor(ts []tools.Tool) *ToolExecutor {
	e := &ToolExecutor{tools: make(map[string]tools.Tool, len(ts)), order: ts}
	for _, t := range ts {
		e.tools[t.Name()] = t
	}
	return e
}

// Definitions describes the tools for function calling. Tools without a
// declared schema take a single "input" string.
func (e *ToolExecutor) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(e.order))
	for _, t := range e.order {
		params := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{"type": "string", "description": "Input for the " + t.Name() + " tool"},
			},
			"required": []string{"input"},
		}
		if p, ok := t.(parameterized); ok {
			params = p.Parameters()
		}
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  params,
			},
		})
	}
	return defs
}

// Execute runs the named tool with the raw JSON arguments of a tool call.
func (e *ToolExecutor) Execute(ctx context.Context, name, arguments string) (string, error) {
	t, ok := e.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	input := arguments
	if _, ok := t.(parameterized); !ok {
		var wrapped struct {
			Input string `json:"input"`
		}
		if strings.HasPrefix(strings.TrimSpace(arguments), "{") && json.Unmarshal([]byte(arguments), &wrapped) == nil {
			input = wrapped.Input
		}
	}
	return t.Call(ctx, input)
}
