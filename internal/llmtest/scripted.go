// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// ErrExhausted is returned once every scripted reply has been used.
var ErrExhausted = errors.New("scripted model has no replies left")

// Reply is one scripted answer: a response or an error.
type Reply struct {
	Response *llms.ContentResponse
	Err      error
}

// Call records one GenerateContent invocation.
type Call struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

// System returns the text of the first system message, or "".
func (c Call) System() string {
	for _, m := range c.Messages {
		if m.Role == llms.ChatMessageTypeSystem {
			return TextOf(m)
		}
	}
	return ""
}

// LastText returns the text of the final message.
func (c Call) LastText() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return TextOf(c.Messages[len(c.Messages)-1])
}

// ScriptedModel replays replies in order. When Respond is set it is consulted
// first; returning a nil Reply falls through to the queue.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
	Respond func(call Call) *Reply
}

var _ llms.Model = (*ScriptedModel)(nil)

// New creates a model that answers with the given replies in order.
func New(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

// Texts creates a model that answers with plain text replies.
func Texts(texts ...string) *ScriptedModel {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Text(t)
	}
	return New(replies...)
}

// Push appends replies to the queue.
func (m *ScriptedModel) Push(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// GenerateContent implements llms.Model.
func (m *ScriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	call := Call{Messages: append([]llms.MessageContent(nil), messages...)}
	for _, opt := range options {
		opt(&call.Options)
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	respond := m.Respond
	m.mu.Unlock()

	if respond != nil {
		if r := respond(call); r != nil {
			return r.Response, r.Err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return nil, ErrExhausted
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.Response, r.Err
}

// Call implements llms.Model.
func (m *ScriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns a copy of the recorded invocations.
func (m *ScriptedModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Remaining reports how many queued replies are unused.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

// Text is a plain assistant answer.
func Text(content string) Reply {
	return Reply{Response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}},
	}}
}

// ToolCall is an answer requesting one tool invocation.
func ToolCall(id, name, arguments string) Reply {
	return ToolCalls(llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	})
}

// ToolCalls is an answer requesting several tool invocations.
func ToolCalls(calls ...llms.ToolCall) Reply {
	return Reply{Response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{ToolCalls: calls, StopReason: "tool_calls"}},
	}}
}

// Fail is an answer that errors.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// TextOf joins the text parts of a message.
func TextOf(m llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range m.Parts {
		switch part := p.(type) {
		case llms.TextContent:
			sb.WriteString(part.Text)
		case llms.ToolCallResponse:
			sb.WriteString(part.Content)
		case llms.ToolCall:
			if part.FunctionCall != nil {
				fmt.Fprintf(&sb, "%s(%s)", part.FunctionCall.Name, part.FunctionCall.Arguments)
			}
		}
	}
	return sb.String()
}
