package tool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tmc/langchaingo/tools"
)

// Tool names.
const (
	CheckAccountStatus = "check_account_status"
	CheckBillingInfo   = "check_billing_info"
	CreateRefund       = "create_refund"
	EscalateToManager  = "escalate_to_manager"
	CheckTechnicalLogs = "check_technical_logs"
	ResetPassword      = "reset_password"
	UpdateServicePlan  = "update_service_plan"
)

// LastPaymentDate is reported by check_billing_info.
const LastPaymentDate = "2024-01-15"

var (
	accountStatuses = []string{"Active", "Suspended", "Pending", "Closed"}
	logFindings     = []string{"No issues found", "Connection timeout detected", "API rate limit exceeded", "Service degradation"}
)

var (
	customerID = Param{Name: "customer_id", Type: "string", Description: "The customer's account identifier"}
	reasonArg  = Param{Name: "reason", Type: "string", Description: "Why the action is taken"}
)

// Catalog holds one instance of every support tool sharing a random source.
type Catalog struct {
	mu    sync.Mutex
	rng   *rand.Rand
	byKey map[string]*SupportTool
	order []string
}

// NewCatalog builds the tools. A nil rng seeds one from the clock.
func NewCatalog(rng *rand.Rand) *Catalog {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	c := &Catalog{rng: rng, byKey: make(map[string]*SupportTool)}

	c.add(&SupportTool{
		name:        CheckAccountStatus,
		description: "Check the account status for a customer.",
		params:      []Param{customerID},
		run: func(_ context.Context, a Args) (string, error) {
			status := accountStatuses[c.intN(len(accountStatuses))]
			return fmt.Sprintf("Customer %s account status: %s", a.String("customer_id"), status), nil
		},
	})
	c.add(&SupportTool{
		name:        CheckBillingInfo,
		description: "Check billing information for a customer.",
		params:      []Param{customerID},
		run: func(_ context.Context, a Args) (string, error) {
			balance := -100 + c.uniform()*600
			return fmt.Sprintf("Customer %s - Current balance: $%.2f, Last payment: %s",
				a.String("customer_id"), balance, LastPaymentDate), nil
		},
	})
	c.add(&SupportTool{
		name:        CreateRefund,
		description: "Process a refund for a customer.",
		params: []Param{
			customerID,
			{Name: "amount", Type: "number", Description: "Refund amount in dollars"},
			reasonArg,
		},
		run: func(_ context.Context, a Args) (string, error) {
			amount, err := a.Float("amount")
			if err != nil {
				return "", err
			}
			id := a.String("customer_id")
			return fmt.Sprintf("Refund of $%.2f processed for customer %s. Reason: %s. Refund ID: REF-%s-001",
				amount, id, a.String("reason"), id), nil
		},
	})
	c.add(&SupportTool{
		name:        EscalateToManager,
		description: "Escalate a ticket to manager.",
		params: []Param{
			{Name: "ticket_id", Type: "string", Description: "The support ticket identifier"},
			reasonArg,
		},
		run: func(_ context.Context, a Args) (string, error) {
			return fmt.Sprintf("Ticket %s escalated to manager. Reason: %s. Manager will respond within 2 hours.",
				a.String("ticket_id"), a.String("reason")), nil
		},
	})
	c.add(&SupportTool{
		name:        CheckTechnicalLogs,
		description: "Check technical logs for a specific service.",
		params: []Param{
			customerID,
			{Name: "service", Type: "string", Description: "The service to inspect, e.g. api or login"},
		},
		run: func(_ context.Context, a Args) (string, error) {
			finding := logFindings[c.intN(len(logFindings))]
			return fmt.Sprintf("Technical logs for customer %s service '%s': %s",
				a.String("customer_id"), a.String("service"), finding), nil
		},
	})
	c.add(&SupportTool{
		name:        ResetPassword,
		description: "Reset password for a customer account.",
		params:      []Param{customerID},
		run: func(_ context.Context, a Args) (string, error) {
			return fmt.Sprintf("Password reset initiated for customer %s. Reset link sent to registered email.",
				a.String("customer_id")), nil
		},
	})
	c.add(&SupportTool{
		name:        UpdateServicePlan,
		description: "Update customer service plan.",
		params: []Param{
			customerID,
			{Name: "new_plan", Type: "string", Description: "The plan to switch to"},
		},
		run: func(_ context.Context, a Args) (string, error) {
			return fmt.Sprintf("Service plan updated for customer %s to '%s'. Changes will take effect immediately.",
				a.String("customer_id"), a.String("new_plan")), nil
		},
	})
	return c
}

func (c *Catalog) add(t *SupportTool) {
	c.byKey[t.name] = t
	c.order = append(c.order, t.name)
}

func (c *Catalog) intN(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}

func (c *Catalog) uniform() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

// Get returns a tool by name.
func (c *Catalog) Get(name string) (*SupportTool, bool) {
	t, ok := c.byKey[name]
	return t, ok
}

// Select returns the named tools in the given order.
func (c *Catalog) Select(names ...string) ([]tools.Tool, error) {
	out := make([]tools.Tool, 0, len(names))
	for _, n := range names {
		t, ok := c.byKey[n]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}

// All returns every tool in definition order.
func (c *Catalog) All() []tools.Tool {
	out, _ := c.Select(c.order...)
	return out
}
