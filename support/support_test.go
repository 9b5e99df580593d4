package support

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/internal/llmtest"
	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/metrics"
	"github.com/smallnest/agentdesk/prebuilt"
	"github.com/smallnest/agentdesk/tool"
)

func newSystem(t *testing.T, model *llmtest.ScriptedModel, m *metrics.Metrics) *graph.Runnable[State] {
	t.Helper()
	r, err := New(model, Options{
		Tools:   tool.NewCatalog(rand.New(rand.NewPCG(1, 2))),
		Metrics: m,
	})
	require.NoError(t, err)
	return r
}

func user(content string) State {
	return State{Messages: []prebuilt.Message{prebuilt.UserMessage(content)}}
}

func TestSupport_GreetsWithoutUserMessage(t *testing.T) {
	model := llmtest.New()
	out, err := newSystem(t, model, nil).Invoke(context.Background(), State{})
	require.NoError(t, err)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, Greeting, out.Messages[0].Content)
	assert.Empty(t, out.NextAgent)
	assert.Empty(t, model.Calls())
}

func TestSupport_RoutesWithModel(t *testing.T) {
	model := llmtest.Texts(
		"billing_agent|Customer reports a duplicate charge",
		"I can help with that refund.",
	)
	reg := metrics.New(prometheus.NewRegistry())

	out, err := newSystem(t, model, reg).Invoke(context.Background(), user("I was charged twice this month and need a refund"))
	require.NoError(t, err)

	require.Len(t, out.Messages, 3)
	assert.Equal(t, "I'm routing your request to our Billing Agent team. Customer reports a duplicate charge", out.Messages[1].Content)
	assert.Equal(t, Supervisor, out.Messages[1].Name)
	assert.Equal(t, prebuilt.AssistantMessage(BillingAgent, "I can help with that refund."), out.Messages[2])
	assert.Equal(t, BillingAgent, out.ActiveAgent)
	assert.Equal(t, CategoryBilling, out.TicketCategory)
	assert.Equal(t, "Customer reports a duplicate charge", out.RoutingReason)

	calls := model.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].LastText(), `Customer message: "I was charged twice this month and need a refund"`)
	assert.NotContains(t, calls[0].LastText(), "Recent conversation context")
	assert.Contains(t, calls[1].System(), "You are a Billing Support Specialist.")
	assert.Len(t, calls[1].Options.Tools, 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RoutingTotal.WithLabelValues(BillingAgent, metrics.RouteLLM)))
}

func ongoingTechnical(next string) State {
	return State{Messages: []prebuilt.Message{
		prebuilt.UserMessage("I can't log into my account"),
		prebuilt.AssistantMessage(Supervisor, HandoffMessage(TechnicalAgent, "Login problem")),
		prebuilt.ToolMessage(tool.ResetPassword, "Password reset initiated for customer C1."),
		prebuilt.AssistantMessage(TechnicalAgent, "I've sent a reset link."),
		prebuilt.UserMessage(next),
	}}
}

func TestSupport_StaysWithActiveAgent(t *testing.T) {
	model := llmtest.Texts("Glad to hear it!")
	reg := metrics.New(prometheus.NewRegistry())

	out, err := newSystem(t, model, reg).Invoke(context.Background(), ongoingTechnical("thanks, that worked"))
	require.NoError(t, err)

	calls := model.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System(), "Technical Support Specialist")
	assert.Equal(t, TechnicalAgent, out.ActiveAgent)
	assert.Len(t, out.Messages, 6)
	assert.Equal(t, "Glad to hear it!", out.Messages[5].Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RoutingTotal.WithLabelValues(TechnicalAgent, metrics.RouteSticky)))
}

func TestSupport_KeywordTriggersRerouting(t *testing.T) {
	model := llmtest.Texts("billing_agent|Refund request", "Refund on its way.")

	out, err := newSystem(t, model, nil).Invoke(context.Background(), ongoingTechnical("I also want a refund"))
	require.NoError(t, err)

	calls := model.Calls()
	require.Len(t, calls, 2)
	prompt := calls[0].LastText()
	assert.Contains(t, prompt, "Recent conversation context:\nAssistant: I've sent a reset link.\n")
	assert.NotContains(t, prompt, "User: I can't log into my account")
	assert.Equal(t, BillingAgent, out.ActiveAgent)
}

func TestSupport_UnparseableRoutingFallsBack(t *testing.T) {
	model := llmtest.Texts("I think this is about billing", "How can I help?")

	out, err := newSystem(t, model, nil).Invoke(context.Background(), user("hello there"))
	require.NoError(t, err)

	assert.Equal(t, "I'm routing your request to our General Agent team. "+FallbackReason, out.Messages[1].Content)
	assert.Equal(t, GeneralAgent, out.ActiveAgent)
	assert.Equal(t, CategoryGeneral, out.TicketCategory)
}

func TestSupport_CustomerIDReachesSpecialist(t *testing.T) {
	model := llmtest.New(
		llmtest.Text("billing_agent|Balance question"),
		llmtest.ToolCall("call_1", tool.CheckBillingInfo, `{"customer_id":"C9"}`),
		llmtest.Text("Your balance is shown above."),
	)
	in := user("Can you check my current account balance?")
	in.CustomerID = "C9"

	out, err := newSystem(t, model, nil).Invoke(context.Background(), in)
	require.NoError(t, err)

	calls := model.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[1].System(), "The customer's ID is C9.")

	require.Len(t, out.Messages, 4)
	assert.Equal(t, prebuilt.RoleTool, out.Messages[2].Role)
	assert.Contains(t, out.Messages[2].Content, "Customer C9 - Current balance: $")
	assert.Equal(t, "C9", out.CustomerID)
}

func TestSupport_UpstreamFailure(t *testing.T) {
	model := llmtest.New(llmtest.Fail(errors.New("invalid api key")))

	_, err := newSystem(t, model, nil).Invoke(context.Background(), user("help"))
	require.Error(t, err)
	assert.True(t, llm.IsUpstream(err))
}

func TestSupport_RetriesUpstreamFailure(t *testing.T) {
	orig := llm.RetryBaseDelay
	llm.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { llm.RetryBaseDelay = orig })

	model := llmtest.New(
		llmtest.Fail(errors.New("503 service unavailable")),
		llmtest.Text("general_agent|General question"),
		llmtest.Text("Happy to help."),
	)
	r, err := New(model, Options{Tools: tool.NewCatalog(rand.New(rand.NewPCG(1, 2))), Retries: 1})
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), user("help"))
	require.NoError(t, err)
	assert.Equal(t, GeneralAgent, out.ActiveAgent)
	assert.Equal(t, "Happy to help.", out.Messages[len(out.Messages)-1].Content)
	assert.Len(t, model.Calls(), 3)
}

func TestSupport_NilModel(t *testing.T) {
	r, err := New(nil, Options{})
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), user("help"))
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestParseRouting(t *testing.T) {
	tests := []struct {
		answer, agent, reason, method string
	}{
		{"technical_agent|Password reset", TechnicalAgent, "Password reset", metrics.RouteLLM},
		{"  `billing_agent` | charge dispute ", BillingAgent, "charge dispute", metrics.RouteLLM},
		{"general_agent|plan|upgrade", GeneralAgent, "plan|upgrade", metrics.RouteLLM},
		{"sales_agent|wants a quote", GeneralAgent, "wants a quote", metrics.RouteFallback},
		{"no separator", GeneralAgent, FallbackReason, metrics.RouteFallback},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			agent, reason, method := parseRouting(tt.answer)
			assert.Equal(t, tt.agent, agent)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.method, method)
		})
	}
}

func TestActiveAgent(t *testing.T) {
	history := []prebuilt.Message{
		prebuilt.AssistantMessage(Supervisor, HandoffMessage(BillingAgent, "")),
		prebuilt.AssistantMessage(Supervisor, HandoffMessage(GeneralAgent, "plans")),
		prebuilt.UserMessage("I'm routing your request to our technical agent team"),
	}
	assert.Equal(t, GeneralAgent, activeAgent(history))
	assert.Equal(t, "", activeAgent(nil))
}

func TestMentionsSupportTopic(t *testing.T) {
	assert.True(t, mentionsSupportTopic("My API is NOT WORKING"))
	assert.True(t, mentionsSupportTopic("where is my invoice"))
	assert.True(t, mentionsSupportTopic("Upgrade me"))
	assert.False(t, mentionsSupportTopic("thank you so much"))
}

func TestHandoffMessage(t *testing.T) {
	assert.Equal(t, "I'm routing your request to our Technical Agent team. Login issue", HandoffMessage(TechnicalAgent, "Login issue"))
	assert.Equal(t, "I'm routing your request to our Billing Agent team.", HandoffMessage(BillingAgent, ""))
}

func TestGraph_Mermaid(t *testing.T) {
	out := graph.NewExporter(NewGraph(nil, Options{})).DrawMermaid()
	for _, agent := range []string{TechnicalAgent, BillingAgent, GeneralAgent} {
		assert.Contains(t, out, "supervisor -.->|"+agent+"| "+agent)
	}
}
