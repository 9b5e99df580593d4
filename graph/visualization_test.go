package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func routedGraph() *StateGraph[counterState] {
	g := NewStateGraph[counterState]()
	g.AddNode("supervisor", "", visit("supervisor"))
	g.AddNode("billing", "", visit("billing"))
	g.AddNode("technical", "", visit("technical"))
	g.AddEdge(START, "supervisor")
	g.AddConditionalEdge("supervisor", func(context.Context, counterState) string { return "billing" },
		map[string]string{"billing": "billing", "technical": "technical", "end": END})
	g.AddEdge("billing", END)
	g.AddEdge("technical", END)
	return g
}

func TestExporter_Mermaid(t *testing.T) {
	mermaid := NewExporter(routedGraph()).DrawMermaid()

	assert.Contains(t, mermaid, "flowchart TD")
	assert.Contains(t, mermaid, "START --> supervisor")
	assert.Contains(t, mermaid, "supervisor -.->|billing| billing")
	assert.Contains(t, mermaid, "supervisor -.->|end| END")
	assert.Contains(t, mermaid, "technical --> END")
	assert.Contains(t, mermaid, "style supervisor fill:#87CEEB")

	lr := NewExporter(routedGraph()).DrawMermaidWithOptions(MermaidOptions{Direction: "LR"})
	assert.Contains(t, lr, "flowchart LR")
}

func TestExporter_MermaidUnmappedCondition(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", visit("a"))
	g.AddEdge(START, "a")
	g.AddConditionalEdge("a", func(context.Context, counterState) string { return END }, nil)

	assert.Contains(t, NewExporter(g).DrawMermaid(), "a -.-> a_condition((?))")
	assert.Contains(t, NewExporter(g).DrawDOT(), "a -> a_condition [style=dashed, label=\"?\"]")
}

func TestExporter_DOT(t *testing.T) {
	dot := NewExporter(routedGraph()).DrawDOT()

	assert.Contains(t, dot, "digraph G {")
	assert.Contains(t, dot, "START -> supervisor;")
	assert.Contains(t, dot, "supervisor -> technical [style=dashed, label=\"technical\"];")
	assert.Contains(t, dot, "billing -> END;")
}

func TestExporter_ASCII(t *testing.T) {
	ascii := NewExporter(routedGraph()).DrawASCII()

	assert.Contains(t, ascii, "├── START")
	assert.Contains(t, ascii, "supervisor")
	assert.Contains(t, ascii, "[end] END")
	assert.Contains(t, ascii, "technical")

	assert.Equal(t, "No entry point set\n", NewExporter(NewStateGraph[counterState]()).DrawASCII())
}

func TestExporter_ASCIICycle(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("loop", "", visit("loop"))
	g.AddEdge(START, "loop")
	g.AddConditionalEdge("loop", func(context.Context, counterState) string { return "again" },
		map[string]string{"again": "loop", "stop": END})

	assert.Contains(t, NewExporter(g).DrawASCII(), "[again] loop (cycle)")
}

func TestExporter_Info(t *testing.T) {
	info := NewExporter(routedGraph()).Info()

	assert.Equal(t, []string{"supervisor", "billing", "technical"}, info.Nodes)
	// START edge + 3 routes + 2 static edges
	assert.Equal(t, 6, info.Edges)
}
