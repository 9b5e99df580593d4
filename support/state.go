package support

import (
	"github.com/smallnest/agentdesk/prebuilt"
)

// Node names.
const (
	Supervisor     = "supervisor"
	TechnicalAgent = "technical_agent"
	BillingAgent   = "billing_agent"
	GeneralAgent   = "general_agent"
)

// Ticket categories.
const (
	CategoryTechnical = "technical"
	CategoryBilling   = "billing"
	CategoryGeneral   = "general"
)

// State is the support conversation.
type State struct {
	Messages []prebuilt.Message `json:"messages"`
	// ActiveAgent is the specialist currently handling the conversation.
	ActiveAgent    string `json:"active_agent,omitempty"`
	TicketCategory string `json:"ticket_category,omitempty"`
	// CustomerID is passed to the specialists when known.
	CustomerID string `json:"customer_id,omitempty"`
	// NextAgent is the supervisor's decision for this turn; empty ends the turn.
	NextAgent     string `json:"next_agent,omitempty"`
	RoutingReason string `json:"routing_reason,omitempty"`
}

func categoryOf(agent string) string {
	switch agent {
	case TechnicalAgent:
		return CategoryTechnical
	case BillingAgent:
		return CategoryBilling
	case GeneralAgent:
		return CategoryGeneral
	}
	return ""
}
