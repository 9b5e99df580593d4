package support

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/metrics"
	"github.com/smallnest/agentdesk/tool"
)

// Options configures the support graph.
type Options struct {
	// Tools provides the mock tools; nil creates a catalog seeded from the clock.
	Tools *tool.Catalog
	// MaxIterations bounds each specialist's model calls.
	MaxIterations int
	// Retries re-runs a node whose model call failed upstream.
	Retries int
	Metrics *metrics.Metrics
}

// NewGraph builds the support graph. model may be nil to inspect the graph;
// running it then fails with llm.ErrMissingAPIKey.
func NewGraph(model llms.Model, opts Options) *graph.StateGraph[State] {
	catalog := opts.Tools
	if catalog == nil {
		catalog = tool.NewCatalog(nil)
	}

	g := graph.NewStateGraph[State]()
	sup := &supervisor{model: model, metrics: opts.Metrics}
	g.AddNode(Supervisor, "Routes the request to a specialist", sup.run)

	routes := map[string]string{"end": graph.END}
	for _, sp := range Specialists {
		w := &worker{specialist: sp, model: model, catalog: catalog, maxIterations: opts.MaxIterations}
		g.AddNode(sp.Name, sp.Description, w.run)
		g.AddEdge(sp.Name, graph.END)
		routes[sp.Name] = sp.Name
	}

	g.AddEdge(graph.START, Supervisor)
	g.AddConditionalEdge(Supervisor, routeToAgent, routes)
	g.SetRetryPolicy(llm.RetryPolicy(opts.Retries))
	return g
}

func routeToAgent(_ context.Context, state State) string {
	if state.NextAgent == "" {
		return "end"
	}
	return state.NextAgent
}

// New compiles the support graph.
func New(model llms.Model, opts Options, compileOpts ...graph.CompileOption[State]) (*graph.Runnable[State], error) {
	return NewGraph(model, opts).Compile(compileOpts...)
}
