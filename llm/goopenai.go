package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// GoOpenAI implements llms.Model on top of sashabaranov/go-openai.
type GoOpenAI struct {
	client *openai.Client
	model  string
}

var _ llms.Model = (*GoOpenAI)(nil)

// NewGoOpenAI creates the adapter. An empty baseURL uses the OpenAI API.
func NewGoOpenAI(apiKey, model, baseURL string) *GoOpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &GoOpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

// GenerateContent implements llms.Model.
func (g *GoOpenAI) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	req := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toChatMessages(messages),
		// go-openai omits a zero temperature, which the API reads as 1
		Temperature: float32(opts.Temperature),
	}
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	for _, t := range opts.Tools {
		if t.Function == nil {
			continue
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	if choice, ok := opts.ToolChoice.(string); ok && choice != "" && len(req.Tools) > 0 {
		req.ToolChoice = choice
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	out := &llms.ContentResponse{Choices: make([]*llms.ContentChoice, 0, len(resp.Choices))}
	for _, c := range resp.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"PromptTokens":     resp.Usage.PromptTokens,
				"CompletionTokens": resp.Usage.CompletionTokens,
				"TotalTokens":      resp.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.Choices = append(out.Choices, choice)
	}
	return out, nil
}

// Call implements llms.Model.
func (g *GoOpenAI) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

func chatRole(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeSystem:
		return openai.ChatMessageRoleSystem
	case llms.ChatMessageTypeAI:
		return openai.ChatMessageRoleAssistant
	case llms.ChatMessageTypeTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}

// toChatMessages converts langchaingo messages. Each tool response becomes its
// own "tool" message since the API pairs them with tool call ids one by one.
func toChatMessages(messages []llms.MessageContent) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: chatRole(m.Role)}
		var text strings.Builder
		var responses []openai.ChatCompletionMessage

		for _, part := range m.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				text.WriteString(p.Text)
			case llms.ToolCall:
				if p.FunctionCall == nil {
					continue
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   p.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				})
			case llms.ToolCallResponse:
				responses = append(responses, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: p.ToolCallID,
					Name:       p.Name,
					Content:    p.Content,
				})
			}
		}

		if len(responses) > 0 {
			out = append(out, responses...)
			continue
		}
		msg.Content = text.String()
		out = append(out, msg)
	}
	return out
}
