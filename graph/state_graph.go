package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/store"
)

// NodeFunc transforms the state. With a schema the returned value is an
// update merged into the current state; without one it replaces the state.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// ConditionFunc picks the route key after a node has run.
type ConditionFunc[S any] func(ctx context.Context, state S) string

// Node is a named step of the graph.
type Node[S any] struct {
	Name        string
	Description string
	Function    NodeFunc[S]
}

type conditionalEdge[S any] struct {
	condition ConditionFunc[S]
	// pathMap maps route keys to node names; nil means the key is the node.
	pathMap map[string]string
}

// StateGraph is a graph whose nodes share a state of type S.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	order            []string
	edges            []Edge
	conditionalEdges map[string]conditionalEdge[S]
	conditionalOrder []string
	entryPoint       string
	retryPolicy      *RetryPolicy
	schema           StateSchema[S]
}

// NewStateGraph creates an empty graph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]conditionalEdge[S]),
	}
}

// AddNode adds a node. Adding a name twice replaces the earlier node.
func (g *StateGraph[S]) AddNode(name, description string, fn NodeFunc[S]) {
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.nodes[name] = Node[S]{Name: name, Description: description, Function: fn}
}

// AddEdge adds a static edge. An edge from START sets the entry point.
func (g *StateGraph[S]) AddEdge(from, to string) {
	if from == START {
		g.entryPoint = to
		return
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge routes from a node to the target named by condition,
// looked up in pathMap when one is given.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition ConditionFunc[S], pathMap map[string]string) {
	if _, exists := g.conditionalEdges[from]; !exists {
		g.conditionalOrder = append(g.conditionalOrder, from)
	}
	g.conditionalEdges[from] = conditionalEdge[S]{condition: condition, pathMap: pathMap}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy applied to every node.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema StateSchema[S]) {
	g.schema = schema
}

// Nodes returns the nodes in insertion order.
func (g *StateGraph[S]) Nodes() []Node[S] {
	out := make([]Node[S], 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

func (g *StateGraph[S]) isTarget(name string) bool {
	if name == END {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

func (g *StateGraph[S]) validate() error {
	if g.entryPoint == "" {
		return ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	static := make(map[string]int)
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if !g.isTarget(e.To) {
			return fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
		}
		static[e.From]++
		if static[e.From] > 1 {
			return fmt.Errorf("%w: node %s has more than one outgoing edge", ErrInvalidGraph, e.From)
		}
	}

	for from, ce := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: conditional edge source %s", ErrNodeNotFound, from)
		}
		if static[from] > 0 {
			return fmt.Errorf("%w: node %s has both static and conditional edges", ErrInvalidGraph, from)
		}
		if ce.condition == nil {
			return fmt.Errorf("%w: conditional edge from %s has no condition", ErrInvalidGraph, from)
		}
		for key, to := range ce.pathMap {
			if !g.isTarget(to) {
				return fmt.Errorf("%w: route %q from %s targets %s", ErrNodeNotFound, key, from, to)
			}
		}
	}
	return nil
}

// CompileOption configures a Runnable.
type CompileOption[S any] func(*Runnable[S])

// WithListener registers listeners for every invocation.
func WithListener[S any](listeners ...NodeListener[S]) CompileOption[S] {
	return func(r *Runnable[S]) {
		r.listeners = append(r.listeners, listeners...)
	}
}

// WithRecursionLimit overrides DefaultRecursionLimit.
func WithRecursionLimit[S any](limit int) CompileOption[S] {
	return func(r *Runnable[S]) {
		if limit > 0 {
			r.recursionLimit = limit
		}
	}
}

// WithCheckpointer saves the state after every step of invocations that carry
// a thread id. maxCheckpoints > 0 keeps only the newest checkpoints per thread.
func WithCheckpointer[S any](cs store.CheckpointStore, maxCheckpoints int) CompileOption[S] {
	return func(r *Runnable[S]) {
		r.checkpoints = cs
		r.maxCheckpoints = maxCheckpoints
	}
}

// Config carries per-invocation settings.
type Config struct {
	// ThreadID names the conversation; checkpoints are saved under it.
	ThreadID string
	// RecursionLimit overrides the compiled limit when positive.
	RecursionLimit int
}

// Runnable is a compiled StateGraph.
type Runnable[S any] struct {
	graph          *StateGraph[S]
	listeners      listenerSet[S]
	recursionLimit int
	checkpoints    store.CheckpointStore
	maxCheckpoints int
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph[S]) Compile(opts ...CompileOption[S]) (*Runnable[S], error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	r := &Runnable[S]{graph: g, recursionLimit: DefaultRecursionLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// WithListeners returns a copy of r that also notifies the given listeners.
func (r *Runnable[S]) WithListeners(listeners ...NodeListener[S]) *Runnable[S] {
	cp := *r
	cp.listeners = append(append(listenerSet[S]{}, r.listeners...), listeners...)
	return &cp
}

// Graph returns the graph the runnable was compiled from.
func (r *Runnable[S]) Graph() *StateGraph[S] {
	return r.graph
}

// Invoke runs the graph to completion.
func (r *Runnable[S]) Invoke(ctx context.Context, input S) (S, error) {
	return r.run(ctx, input, nil, nil)
}

// InvokeWithConfig runs the graph with per-call settings. On error the last
// successfully merged state is returned alongside it.
func (r *Runnable[S]) InvokeWithConfig(ctx context.Context, input S, cfg *Config) (S, error) {
	return r.run(ctx, input, cfg, nil)
}

func (r *Runnable[S]) run(ctx context.Context, input S, cfg *Config, extra []NodeListener[S]) (S, error) {
	g := r.graph
	listeners := r.listeners
	if len(extra) > 0 {
		listeners = append(append(listenerSet[S]{}, r.listeners...), extra...)
	}

	limit := r.recursionLimit
	var threadID string
	if cfg != nil {
		threadID = cfg.ThreadID
		if cfg.RecursionLimit > 0 {
			limit = cfg.RecursionLimit
		}
	}
	if threadID != "" {
		ctx = WithThreadID(ctx, threadID)
	}

	state := input
	if g.schema != nil {
		merged, err := g.schema.Update(g.schema.Init(), input)
		if err != nil {
			return input, fmt.Errorf("failed to initialize state with schema: %w", err)
		}
		state = merged
	}

	cpw, err := r.newCheckpointWriter(ctx, threadID)
	if err != nil {
		return state, err
	}

	current := g.entryPoint
	for step := 1; current != END; step++ {
		if step > limit {
			return state, fmt.Errorf("%w: %d steps", ErrRecursionLimit, limit)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		event := StreamEvent[S]{ThreadID: threadID, NodeName: current, Step: step}
		event.Event, event.State, event.Timestamp = NodeEventStart, state, time.Now()
		listeners.emit(ctx, event)

		log.Debug("graph: running node %s (step %d)", current, step)
		started := time.Now()
		out, err := runWithRetry(ctx, g.retryPolicy, node.Function, state)
		if err == nil && g.schema != nil {
			out, err = g.schema.Update(state, out)
		}
		if err != nil {
			event.Event, event.Error, event.Timestamp, event.Duration = NodeEventError, err, time.Now(), time.Since(started)
			listeners.emit(ctx, event)
			var nodeErr *NodeError
			if errors.As(err, &nodeErr) {
				return state, err
			}
			return state, &NodeError{Node: current, Err: err}
		}
		state = out

		event.Event, event.State, event.Timestamp, event.Duration = NodeEventComplete, state, time.Now(), time.Since(started)
		listeners.emit(ctx, event)

		if err := cpw.save(ctx, current, state); err != nil {
			return state, err
		}

		next, err := r.next(ctx, current, state)
		if err != nil {
			return state, err
		}
		current = next
	}
	return state, nil
}

func (r *Runnable[S]) next(ctx context.Context, current string, state S) (string, error) {
	g := r.graph
	if ce, ok := g.conditionalEdges[current]; ok {
		key := ce.condition(ctx, state)
		target := key
		if ce.pathMap != nil {
			mapped, ok := ce.pathMap[key]
			if !ok {
				return "", fmt.Errorf("%w: %q from %s", ErrInvalidRoute, key, current)
			}
			target = mapped
		}
		if !g.isTarget(target) {
			return "", fmt.Errorf("%w: %s (routed from %s)", ErrNodeNotFound, target, current)
		}
		return target, nil
	}
	for _, e := range g.edges {
		if e.From == current {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
}
