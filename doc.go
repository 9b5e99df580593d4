// agentdesk - multi-agent customer support and chain-of-thought reasoning in Go
//
// agentdesk runs two LLM orchestration patterns on a small state-graph engine
// and serves both behind a web chat UI:
//
//   - Customer support: a supervisor routes each request to a technical,
//     billing or general specialist. Specialists are ReAct agents that may call
//     mock support tools (reset_password, check_billing_info, create_refund,
//     ...). A conversation stays with its specialist until the customer raises
//     a new topic.
//   - Chain of thought: a coordinator takes the problem, a step reasoner walks
//     through problem analysis, information gathering, option generation and
//     evaluation, and a conclusion node synthesises a recommendation.
//
// # Quick Start
//
//	export OPENAI_API_KEY=sk-...
//	go run ./cmd/agentdesk serve --addr :8080
//
// Or in the terminal:
//
//	go run ./cmd/agentdesk support --customer-id C-1001 "I forgot my password"
//	go run ./cmd/agentdesk reason "Should I rent or buy a house?"
//	go run ./cmd/agentdesk graph support --format mermaid
//
// Programmatic use:
//
//	model, _ := llm.New(llm.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
//	app, _ := support.New(model, support.Options{})
//	state, err := app.Invoke(ctx, support.State{
//		Messages: []prebuilt.Message{prebuilt.UserMessage("I was charged twice")},
//	})
//
// # Package Structure
//
// graph/
// The state-graph engine: nodes, static and conditional edges, schemas,
// retries, listeners, streaming, checkpointing and visualization.
//
// store/
// Checkpoint stores: memory, file, redis, postgres and sqlite.
//
// llm/, tool/, prebuilt/
// Provider access, the mock support tools, chat messages and the ReAct agent.
//
// support/, reasoning/
// The two agent systems.
//
// server/, render/, metrics/, config/, log/
// The HTTP surface, markdown rendering, Prometheus metrics, configuration and
// logging.
//
// cmd/agentdesk
// The command line.
package agentdesk // import "github.com/smallnest/agentdesk"
