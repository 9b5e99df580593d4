// Package support implements the customer-support system: a supervisor that
// routes each user turn to one of three specialist agents (technical, billing
// and general), each a ReAct agent with its own mock tools.
//
// The graph is
//
//	START -> supervisor -> {technical_agent | billing_agent | general_agent | END}
//	technical_agent, billing_agent, general_agent -> END
//
// The supervisor keeps a conversation with the agent it last handed off to
// unless the user's message mentions another kind of support; otherwise the
// model classifies the message.
package support
