package graph

import (
	"errors"
	"fmt"
)

const (
	// START is the virtual node before the entry point.
	START = "START"
	// END is the special constant used to represent the end node in the graph.
	END = "END"
)

// DefaultRecursionLimit bounds the number of node executions per invocation.
const DefaultRecursionLimit = 25

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrInvalidRoute is returned when a condition yields a key missing from its path map.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrRecursionLimit is returned when an invocation runs more steps than allowed.
	ErrRecursionLimit = errors.New("recursion limit reached")

	// ErrInvalidGraph is returned by Compile for inconsistent wiring.
	ErrInvalidGraph = errors.New("invalid graph")
)

// NodeError wraps an error returned by a node function.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Edge represents a static edge between two nodes.
type Edge struct {
	From string
	To   string
}
