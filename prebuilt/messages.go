package prebuilt

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Message is one entry of a conversation as persisted and shown to users.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name is the agent or tool that produced the message.
	Name string `json:"name,omitempty"`
}

// UserMessage creates a message from the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates a message from an agent.
func AssistantMessage(name, content string) Message {
	return Message{Role: RoleAssistant, Content: content, Name: name}
}

// ToolMessage records the result of a tool call.
func ToolMessage(tool, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: tool}
}

// ToLLM converts m for a model call. Tool results are replayed as assistant
// text: the tool call that produced them is not part of the history, and a
// tool message without its call is rejected by the API.
func (m Message) ToLLM() llms.MessageContent {
	switch m.Role {
	case RoleSystem:
		return llms.TextParts(llms.ChatMessageTypeSystem, m.Content)
	case RoleAssistant:
		return llms.TextParts(llms.ChatMessageTypeAI, m.Content)
	case RoleTool:
		return llms.TextParts(llms.ChatMessageTypeAI, fmt.Sprintf("Tool %s returned: %s", m.Name, m.Content))
	default:
		return llms.TextParts(llms.ChatMessageTypeHuman, m.Content)
	}
}

// ToLLMMessages converts a conversation.
func ToLLMMessages(msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToLLM())
	}
	return out
}

// LastMessage returns the final message of a conversation.
func LastMessage(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}
