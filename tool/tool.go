package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/tools"
)

// ErrInvalidArguments is returned when a tool input cannot be parsed or lacks
// a required argument.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ParameterizedTool is a tool that can describe its arguments as JSON schema.
type ParameterizedTool interface {
	tools.Tool
	Parameters() map[string]any
}

// Param describes one argument of a tool. All params are required.
type Param struct {
	Name        string
	Type        string // "string" or "number"
	Description string
}

// Args holds the decoded arguments of a call.
type Args map[string]any

// String returns a string argument. Numbers are formatted.
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Float returns a numeric argument. Numeric strings are accepted.
func (a Args) Float(name string) (float64, error) {
	switch v := a[name].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(v), "$"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArguments, name)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArguments, name)
	}
}

// SupportTool is a canned tool with declared parameters.
type SupportTool struct {
	name        string
	description string
	params      []Param
	run         func(ctx context.Context, args Args) (string, error)
}

var _ ParameterizedTool = (*SupportTool)(nil)

// Name implements tools.Tool.
func (t *SupportTool) Name() string { return t.name }

// Description implements tools.Tool.
func (t *SupportTool) Description() string { return t.description }

// Parameters returns the JSON schema of the arguments.
func (t *SupportTool) Parameters() map[string]any {
	props := make(map[string]any, len(t.params))
	required := make([]string, 0, len(t.params))
	for _, p := range t.params {
		props[p.Name] = map[string]any{"type": p.Type, "description": p.Description}
		required = append(required, p.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Call parses input as a JSON object of arguments. A tool with a single
// parameter also accepts the bare value.
func (t *SupportTool) Call(ctx context.Context, input string) (string, error) {
	args, err := t.parse(input)
	if err != nil {
		return "", err
	}
	for _, p := range t.params {
		v, ok := args[p.Name]
		if !ok || v == nil || (p.Type == "string" && strings.TrimSpace(args.String(p.Name)) == "") {
			return "", fmt.Errorf("%w: %s requires %q", ErrInvalidArguments, t.name, p.Name)
		}
	}
	return t.run(ctx, args)
}

func (t *SupportTool) parse(input string) (Args, error) {
	input = strings.TrimSpace(input)
	args := Args{}
	if strings.HasPrefix(input, "{") {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, t.name, err)
		}
		return args, nil
	}
	if len(t.params) == 1 && input != "" {
		args[t.params[0].Name] = strings.Trim(input, `"`)
		return args, nil
	}
	return nil, fmt.Errorf("%w: %s expects a JSON object", ErrInvalidArguments, t.name)
}
