package support

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/prebuilt"
	"github.com/smallnest/agentdesk/tool"
)

// Specialist describes one worker agent.
type Specialist struct {
	Name         string
	Description  string
	SystemPrompt string
	Tools        []string
}

// Specialists lists the workers in routing order.
var Specialists = []Specialist{
	{
		Name:        TechnicalAgent,
		Description: "Technical issues, password resets, connectivity and API problems",
		SystemPrompt: `You are a Technical Support Specialist. You help customers with:
    - Technical issues and troubleshooting
    - Password resets
    - Service connectivity problems
    - API and integration issues
    
    Always be helpful and provide clear technical guidance. If you cannot resolve an issue, escalate to manager.`,
		Tools: []string{tool.CheckTechnicalLogs, tool.ResetPassword, tool.EscalateToManager},
	},
	{
		Name:        BillingAgent,
		Description: "Payments, refunds, account status and billing disputes",
		SystemPrompt: `You are a Billing Support Specialist. You help customers with:
    - Billing inquiries and payment issues
    - Refund processing
    - Account status checks
    - Payment method updates
    
    Always verify customer information before processing any financial transactions.`,
		Tools: []string{tool.CheckBillingInfo, tool.CreateRefund, tool.CheckAccountStatus, tool.EscalateToManager},
	},
	{
		Name:        GeneralAgent,
		Description: "Account management, service plan changes and general questions",
		SystemPrompt: `You are a General Support Specialist. You help customers with:
    - General account inquiries
    - Service plan changes
    - General questions about services
    - Account management
    
    Provide friendly and helpful assistance for all general inquiries.`,
		Tools: []string{tool.CheckAccountStatus, tool.UpdateServicePlan, tool.EscalateToManager},
	},
}

type worker struct {
	specialist    Specialist
	model         llms.Model
	catalog       *tool.Catalog
	maxIterations int
}

func (w *worker) prompt(customerID string) string {
	if customerID == "" {
		return w.specialist.SystemPrompt
	}
	return fmt.Sprintf("%s\n\nThe customer's ID is %s. Use it when calling tools.", w.specialist.SystemPrompt, customerID)
}

func (w *worker) run(ctx context.Context, state State) (State, error) {
	if w.model == nil {
		return state, llm.ErrMissingAPIKey
	}
	ts, err := w.catalog.Select(w.specialist.Tools...)
	if err != nil {
		return state, err
	}
	agent, err := prebuilt.CreateReactAgent(w.model, ts, prebuilt.AgentOptions{
		Name:          w.specialist.Name,
		SystemPrompt:  w.prompt(state.CustomerID),
		MaxIterations: w.maxIterations,
	})
	if err != nil {
		return state, err
	}

	out, err := prebuilt.RunAgent(ctx, agent, state.Messages)
	if err != nil {
		return state, err
	}
	state.Messages = append(state.Messages, out...)
	state.ActiveAgent = w.specialist.Name
	state.NextAgent = ""
	return state, nil
}
