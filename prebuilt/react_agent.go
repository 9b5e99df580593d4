package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

const (
	// DefaultMaxIterations bounds the model calls of one agent run.
	DefaultMaxIterations = 10

	// MaxIterationsMessage is the answer given when the bound is hit.
	MaxIterationsMessage = "Maximum iterations reached. Please try a simpler query."
)

// AgentOptions configures CreateReactAgent.
type AgentOptions struct {
	// Name is recorded on the assistant messages the agent produces.
	Name          string
	SystemPrompt  string
	MaxIterations int
}

// ReactState is the state of a ReAct agent run.
type ReactState struct {
	// Messages is the model transcript without the system prompt.
	Messages []llms.MessageContent `json:"messages"`
	// Iterations counts model calls.
	Iterations int `json:"iterations"`
	// Pending holds the tool calls of the last model answer.
	Pending []llms.ToolCall `json:"pending,omitempty"`
	// Output collects the messages produced during this run.
	Output []Message `json:"output"`
}

func mergeReactState(current, update ReactState) (ReactState, error) {
	current.Messages = graph.AppendSlice(current.Messages, update.Messages)
	current.Output = graph.AppendSlice(current.Output, update.Output)
	current.Iterations += update.Iterations
	current.Pending = update.Pending
	return current, nil
}

// CreateReactAgent builds an agent that alternates between the model and the
// tools until the model answers without tool calls. Nodes return updates that
// the schema appends to the transcript.
func CreateReactAgent(model llms.Model, inputTools []tools.Tool, opts AgentOptions) (*graph.Runnable[ReactState], error) {
	if model == nil {
		return nil, errors.New("react agent requires a model")
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	executor := NewToolExecutor(inputTools)
	toolDefs := executor.Definitions()

	workflow := graph.NewStateGraph[ReactState]()
	workflow.SetSchema(graph.NewStructSchema(ReactState{}, mergeReactState))

	workflow.AddNode("agent", "Decide on the next action", func(ctx context.Context, state ReactState) (ReactState, error) {
		if state.Iterations >= maxIterations {
			log.Warn("prebuilt: %s stopped after %d iterations", opts.Name, state.Iterations)
			return ReactState{
				Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeAI, MaxIterationsMessage)},
				Output:   []Message{AssistantMessage(opts.Name, MaxIterationsMessage)},
			}, nil
		}

		messages := make([]llms.MessageContent, 0, len(state.Messages)+1)
		if opts.SystemPrompt != "" {
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, opts.SystemPrompt))
		}
		messages = append(messages, state.Messages...)

		var callOpts []llms.CallOption
		if len(toolDefs) > 0 {
			callOpts = append(callOpts, llms.WithTools(toolDefs), llms.WithToolChoice("auto"))
		}
		choice, err := llm.Generate(ctx, model, messages, callOpts...)
		if err != nil {
			return ReactState{}, err
		}
		if choice.Content == "" && len(choice.ToolCalls) == 0 {
			return ReactState{}, &llm.UpstreamError{Err: llm.ErrEmptyResponse}
		}

		update := ReactState{Iterations: 1, Pending: choice.ToolCalls}
		ai := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			ai.Parts = append(ai.Parts, llms.TextContent{Text: choice.Content})
			update.Output = append(update.Output, AssistantMessage(opts.Name, choice.Content))
		}
		for _, tc := range choice.ToolCalls {
			ai.Parts = append(ai.Parts, tc)
		}
		update.Messages = append(update.Messages, ai)
		return update, nil
	})

	workflow.AddNode("tools", "Execute the requested tools", func(ctx context.Context, state ReactState) (ReactState, error) {
		var update ReactState
		for _, tc := range state.Pending {
			if tc.FunctionCall == nil {
				continue
			}
			name := tc.FunctionCall.Name
			result, err := executor.Execute(ctx, name, tc.FunctionCall.Arguments)
			if err != nil {
				if ctx.Err() != nil {
					return ReactState{}, ctx.Err()
				}
				log.Warn("prebuilt: tool %s failed: %v", name, err)
				result = fmt.Sprintf("Error: %v", err)
			}
			update.Messages = append(update.Messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       name,
					Content:    result,
				}},
			})
			update.Output = append(update.Output, ToolMessage(name, result))
		}
		return update, nil
	})

	workflow.SetEntryPoint("agent")
	workflow.AddConditionalEdge("agent", func(ctx context.Context, state ReactState) string {
		if len(state.Pending) > 0 && state.Iterations <= maxIterations {
			return "tools"
		}
		return graph.END
	}, map[string]string{"tools": "tools", graph.END: graph.END})
	workflow.AddEdge("tools", "agent")

	// agent and tools alternate; leave room for the final answer.
	return workflow.Compile(graph.WithRecursionLimit[ReactState](2*maxIterations + 2))
}

// RunAgent runs agent over a conversation and returns the messages it added.
func RunAgent(ctx context.Context, agent *graph.Runnable[ReactState], history []Message) ([]Message, error) {
	final, err := agent.Invoke(ctx, ReactState{Messages: ToLLMMessages(history)})
	if err != nil {
		return final.Output, err
	}
	return final.Output, nil
}
