package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/metrics"
	"github.com/smallnest/agentdesk/prebuilt"
)

const (
	// Greeting answers a turn that does not end with a user message.
	Greeting = "Hello! How can I help you today?"

	// FallbackReason is used when the routing answer cannot be parsed.
	FallbackReason = "Unable to categorize, routing to general support"

	handoffMarker = "routing your request to our"
)

var (
	billingKeywords   = []string{"billing", "payment", "refund", "charge", "invoice", "account balance"}
	technicalKeywords = []string{"password", "login", "technical", "api", "connection", "error", "bug", "down", "not working"}
	generalKeywords   = []string{"plan", "upgrade", "downgrade", "account settings", "general"}
)

const routingPrompt = `
    You are a customer support supervisor. Analyze the following customer message and determine which specialist should handle it:

    Customer message: "%s"
    %s

    Available specialists:
    1. technical_agent - For technical issues, password resets, connectivity problems, API issues, service outages
    2. billing_agent - For billing inquiries, payments, refunds, account status, charges, current account balance, payment history
    3. general_agent - For general questions, service plans, account management

    Respond with ONLY the agent name (technical_agent, billing_agent, or general_agent) and a brief reason.
    Format: agent_name|reason
    `

// supervisor decides which specialist handles the turn.
type supervisor struct {
	model   llms.Model
	metrics *metrics.Metrics
}

func (s *supervisor) run(ctx context.Context, state State) (State, error) {
	last, ok := prebuilt.LastMessage(state.Messages)
	if !ok || last.Role != prebuilt.RoleUser {
		state.Messages = append(state.Messages, prebuilt.AssistantMessage(Supervisor, Greeting))
		state.NextAgent = ""
		s.metrics.RecordRouting("none", metrics.RouteGreeting)
		return state, nil
	}

	active := activeAgent(state.Messages[:len(state.Messages)-1])
	if active != "" && !mentionsSupportTopic(last.Content) {
		log.Debug("support: continuing with %s", active)
		state.ActiveAgent, state.NextAgent = active, active
		state.TicketCategory = categoryOf(active)
		s.metrics.RecordRouting(active, metrics.RouteSticky)
		return state, nil
	}

	if s.model == nil {
		return state, llm.ErrMissingAPIKey
	}
	answer, err := llm.GenerateText(ctx, s.model, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, buildRoutingPrompt(state.Messages)),
	})
	if err != nil {
		return state, err
	}

	agent, reason, method := parseRouting(answer)
	log.Info("support: routing to %s (%s): %s", agent, method, reason)
	s.metrics.RecordRouting(agent, method)

	state.Messages = append(state.Messages, prebuilt.AssistantMessage(Supervisor, HandoffMessage(agent, reason)))
	state.ActiveAgent, state.NextAgent = agent, agent
	state.TicketCategory = categoryOf(agent)
	state.RoutingReason = reason
	return state, nil
}

// activeAgent finds the agent named by the newest handoff message.
func activeAgent(history []prebuilt.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != prebuilt.RoleAssistant {
			continue
		}
		content := strings.ToLower(m.Content)
		if !strings.Contains(content, handoffMarker) {
			continue
		}
		switch {
		case strings.Contains(content, "technical agent"):
			return TechnicalAgent
		case strings.Contains(content, "billing agent"):
			return BillingAgent
		case strings.Contains(content, "general agent"):
			return GeneralAgent
		}
		return ""
	}
	return ""
}

func mentionsSupportTopic(content string) bool {
	content = strings.ToLower(content)
	for _, set := range [][]string{billingKeywords, technicalKeywords, generalKeywords} {
		for _, kw := range set {
			if strings.Contains(content, kw) {
				return true
			}
		}
	}
	return false
}

func buildRoutingPrompt(messages []prebuilt.Message) string {
	last := messages[len(messages)-1]
	var convo strings.Builder
	if len(messages) > 1 {
		recent := messages[max(0, len(messages)-3) : len(messages)-1]
		convo.WriteString("\nRecent conversation context:\n")
		for _, m := range recent {
			switch m.Role {
			case prebuilt.RoleUser:
				fmt.Fprintf(&convo, "User: %s\n", m.Content)
			case prebuilt.RoleAssistant:
				fmt.Fprintf(&convo, "Assistant: %s\n", m.Content)
			}
		}
	}
	return fmt.Sprintf(routingPrompt, last.Content, convo.String())
}

// parseRouting reads an "agent_name|reason" answer.
func parseRouting(answer string) (agent, reason, method string) {
	name, reason, ok := strings.Cut(answer, "|")
	if !ok {
		return GeneralAgent, FallbackReason, metrics.RouteFallback
	}
	name = strings.ToLower(strings.Trim(strings.TrimSpace(name), "`*\"'"))
	reason = strings.TrimSpace(reason)
	switch name {
	case TechnicalAgent, BillingAgent, GeneralAgent:
		return name, reason, metrics.RouteLLM
	}
	log.Warn("support: model chose unknown agent %q", name)
	return GeneralAgent, reason, metrics.RouteFallback
}

// HandoffMessage is the supervisor's announcement of a routing decision.
func HandoffMessage(agent, reason string) string {
	title := cases.Title(language.English).String(strings.ReplaceAll(agent, "_", " "))
	return strings.TrimSpace(fmt.Sprintf("I'm routing your request to our %s team. %s", title, reason))
}
