// Package graph is a small state-graph engine in the spirit of LangGraph.
//
// A StateGraph[S] holds named nodes that transform a state value of type S,
// static edges and conditional edges. Compile validates the wiring and
// returns a Runnable[S], which walks the graph one node at a time from the
// entry point until it reaches END.
//
// # Example
//
//	g := graph.NewStateGraph[Ticket]()
//	g.AddNode("triage", "Pick a queue", triage)
//	g.AddNode("billing", "Handle billing", billing)
//	g.AddNode("technical", "Handle technical", technical)
//	g.AddEdge(graph.START, "triage")
//	g.AddConditionalEdge("triage", func(ctx context.Context, t Ticket) string {
//		return t.Queue
//	}, map[string]string{"billing": "billing", "technical": "technical"})
//	g.AddEdge("billing", graph.END)
//	g.AddEdge("technical", graph.END)
//
//	app, err := g.Compile()
//	final, err := app.Invoke(ctx, Ticket{Text: "refund please"})
//
// Nodes run sequentially. Listeners observe node start, completion and
// failure, Stream exposes the same events over a channel, and a
// store.CheckpointStore can persist the state after every step under a
// thread id.
package graph
