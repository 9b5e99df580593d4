package server

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/metrics"
	"github.com/smallnest/agentdesk/prebuilt"
	"github.com/smallnest/agentdesk/reasoning"
	"github.com/smallnest/agentdesk/store"
	"github.com/smallnest/agentdesk/support"
)

// System names.
const (
	SystemSupport   = "support"
	SystemReasoning = "reasoning"
)

// ExampleGroup is a titled list of example queries.
type ExampleGroup struct {
	Title   string   `json:"title"`
	Queries []string `json:"queries"`
}

// SystemInfo describes an agent system to the UI.
type SystemInfo struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Welcome     string         `json:"welcome"`
	Placeholder string         `json:"placeholder"`
	Sections    []ExampleGroup `json:"sections"`
	Examples    []ExampleGroup `json:"examples"`
}

var systemInfos = []SystemInfo{
	{
		Name:        SystemSupport,
		Title:       "🎧 Customer Support Chat",
		Welcome:     "Welcome! I'm here to help you with your support needs. What can I assist you with today?",
		Placeholder: "Type your support question here...",
		Sections: []ExampleGroup{
			{Title: "🔧 Technical Support", Queries: []string{"Password resets", "Technical troubleshooting", "API issues", "Connectivity problems"}},
			{Title: "💳 Billing Support", Queries: []string{"Payment inquiries", "Refund processing", "Account status", "Billing disputes"}},
			{Title: "📋 General Support", Queries: []string{"Account management", "Service plan changes", "General questions"}},
		},
		Examples: []ExampleGroup{
			{Title: "Technical Issues", Queries: []string{
				"I can't log into my account, I think I forgot my password",
				"My API calls are failing with timeout errors",
				"The service seems to be down, can you check?",
			}},
			{Title: "Billing Questions", Queries: []string{
				"I was charged twice this month and need a refund",
				"Can you check my current account balance?",
				"I want to dispute a charge on my account",
			}},
			{Title: "General Support", Queries: []string{
				"I want to upgrade my service plan to premium",
				"How do I change my account settings?",
				"What features are included in my current plan?",
			}},
		},
	},
	{
		Name:        SystemReasoning,
		Title:       "🧠 Chain of Thought Reasoning",
		Welcome:     "I'll help you think through complex problems step by step. What would you like me to analyze?",
		Placeholder: "Ask me to think through a problem...",
		Sections: []ExampleGroup{
			{Title: "🧠 How it works", Queries: []string{
				"Analyze - Break down the problem",
				"Gather - Collect relevant information",
				"Reason - Think step by step",
				"Evaluate - Consider options",
				"Conclude - Provide reasoned answer",
			}},
			{Title: "💡 Best for", Queries: []string{"Complex decision making", "Problem solving", "Strategic planning", "Learning new concepts"}},
		},
		Examples: []ExampleGroup{
			{Title: "Decision Making", Queries: []string{
				"Should I switch careers from marketing to data science?",
				"What factors should I consider when choosing a university?",
				"How do I decide between renting vs buying a house?",
			}},
			{Title: "Problem Solving", Queries: []string{
				"My team is missing deadlines. How can I improve our productivity?",
				"How should I approach learning machine learning as a beginner?",
				"What's the best way to resolve conflicts in a remote team?",
			}},
			{Title: "Strategic Planning", Queries: []string{
				"How should I plan my startup's go-to-market strategy?",
				"What steps should I take to improve my company's customer retention?",
				"How can I effectively manage a project with multiple stakeholders?",
			}},
		},
	},
}

// turnInput is what a user turn adds to the conversation.
type turnInput struct {
	Content    string
	CustomerID string
}

// nodeUpdate reports a node event with the messages it added.
type nodeUpdate struct {
	Node       string             `json:"node"`
	Event      string             `json:"event"`
	Step       int                `json:"step"`
	DurationMS int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
	Messages   []prebuilt.Message `json:"-"`
}

// exporter renders a system's graph.
type exporter interface {
	DrawMermaid() string
	DrawDOT() string
	DrawASCII() string
	Info() graph.GraphInfo
}

// conversation runs turns of one system against checkpoint threads.
type conversation interface {
	history(ctx context.Context, thread string) ([]prebuilt.Message, error)
	// exists reports whether the thread has stored checkpoints.
	exists(ctx context.Context, thread string) (bool, error)
	// turn returns the messages added by the turn, starting with the user's.
	turn(ctx context.Context, model llms.Model, thread string, in turnInput, observe func(nodeUpdate)) ([]prebuilt.Message, error)
	clear(ctx context.Context, thread string) error
	exporter() exporter
}

type graphConversation[S any] struct {
	system         string
	build          func(model llms.Model) *graph.StateGraph[S]
	messages       func(S) []prebuilt.Message
	prepare        func(S, turnInput) S
	store          store.CheckpointStore
	maxCheckpoints int
	recursionLimit int
	metrics        *metrics.Metrics
}

func (c *graphConversation[S]) compile(model llms.Model) (*graph.Runnable[S], error) {
	return c.build(model).Compile(
		graph.WithCheckpointer[S](c.store, c.maxCheckpoints),
		graph.WithRecursionLimit[S](c.recursionLimit),
		graph.WithListener(metrics.Listener[S](c.metrics, c.system)),
	)
}

func (c *graphConversation[S]) load(ctx context.Context, r *graph.Runnable[S], thread string) (S, error) {
	state, err := r.GetState(ctx, thread)
	if errors.Is(err, store.ErrNotFound) {
		var zero S
		return zero, nil
	}
	return state, err
}

func (c *graphConversation[S]) history(ctx context.Context, thread string) ([]prebuilt.Message, error) {
	r, err := c.compile(nil)
	if err != nil {
		return nil, err
	}
	state, err := c.load(ctx, r, thread)
	if err != nil {
		return nil, err
	}
	return c.messages(state), nil
}

func (c *graphConversation[S]) turn(ctx context.Context, model llms.Model, thread string, in turnInput, observe func(nodeUpdate)) ([]prebuilt.Message, error) {
	r, err := c.compile(model)
	if err != nil {
		return nil, err
	}
	state, err := c.load(ctx, r, thread)
	if err != nil {
		return nil, err
	}
	before := len(c.messages(state))
	state = c.prepare(state, in)
	// the user's message is kept even when the first node fails
	if err := r.UpdateState(ctx, thread, state, graph.START); err != nil {
		return nil, err
	}
	cfg := &graph.Config{ThreadID: thread}

	if observe == nil {
		final, err := r.InvokeWithConfig(ctx, state, cfg)
		return tail(c.messages(final), before), err
	}

	sent := before + 1
	res := r.Stream(ctx, state, cfg)
	for ev := range res.Events {
		u := nodeUpdate{Node: ev.NodeName, Event: string(ev.Event), Step: ev.Step, DurationMS: ev.Duration.Milliseconds()}
		if ev.Error != nil {
			u.Error = ev.Error.Error()
		}
		if ev.Event == graph.NodeEventComplete {
			msgs := c.messages(ev.State)
			u.Messages = tail(msgs, sent)
			sent = max(sent, len(msgs))
		}
		observe(u)
	}
	final, err := res.Result()
	return tail(c.messages(final), before), err
}

func (c *graphConversation[S]) exists(ctx context.Context, thread string) (bool, error) {
	cps, err := c.store.List(ctx, thread)
	if err != nil {
		return false, err
	}
	return len(cps) > 0, nil
}

func (c *graphConversation[S]) clear(ctx context.Context, thread string) error {
	r, err := c.compile(nil)
	if err != nil {
		return err
	}
	return r.ClearState(ctx, thread)
}

func (c *graphConversation[S]) exporter() exporter {
	return graph.NewExporter(c.build(nil))
}

func tail(msgs []prebuilt.Message, from int) []prebuilt.Message {
	if from >= len(msgs) {
		return nil
	}
	return append([]prebuilt.Message(nil), msgs[from:]...)
}

func newSupportConversation(d deps) conversation {
	return &graphConversation[support.State]{
		system: SystemSupport,
		build: func(model llms.Model) *graph.StateGraph[support.State] {
			return support.NewGraph(model, support.Options{
				Tools:         d.tools,
				MaxIterations: d.maxIterations,
				Retries:       d.retries,
				Metrics:       d.metrics,
			})
		},
		messages: func(s support.State) []prebuilt.Message { return s.Messages },
		prepare: func(s support.State, in turnInput) support.State {
			s.Messages = append(s.Messages, prebuilt.UserMessage(in.Content))
			if in.CustomerID != "" {
				s.CustomerID = in.CustomerID
			}
			return s
		},
		store:          d.store,
		maxCheckpoints: d.maxCheckpoints,
		recursionLimit: d.recursionLimit,
		metrics:        d.metrics,
	}
}

func newReasoningConversation(d deps) conversation {
	return &graphConversation[reasoning.State]{
		system: SystemReasoning,
		build: func(model llms.Model) *graph.StateGraph[reasoning.State] {
			return reasoning.NewGraph(model, reasoning.Options{Retries: d.retries})
		},
		messages: func(s reasoning.State) []prebuilt.Message { return s.Messages },
		prepare: func(s reasoning.State, in turnInput) reasoning.State {
			s.Messages = append(s.Messages, prebuilt.UserMessage(in.Content))
			return s
		},
		store:          d.store,
		maxCheckpoints: d.maxCheckpoints,
		recursionLimit: d.recursionLimit,
		metrics:        d.metrics,
	}
}
