// Package prebuilt contains the chat message model shared by the agent
// systems and a tool-calling ReAct agent built on the graph engine.
package prebuilt
