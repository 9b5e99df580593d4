package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Exporter renders a graph as Mermaid, DOT or an ASCII tree.
type Exporter[S any] struct {
	graph *StateGraph[S]
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter[S any](graph *StateGraph[S]) *Exporter[S] {
	return &Exporter[S]{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// GraphInfo summarizes the shape of a graph.
type GraphInfo struct {
	Nodes []string `json:"nodes"`
	Edges int      `json:"edges"`
}

type route struct {
	label string
	to    string
}

// routes lists the conditional targets of a node, sorted by label. A
// condition without a path map yields a single unlabeled "?" route.
func (ge *Exporter[S]) routes(from string) []route {
	ce := ge.graph.conditionalEdges[from]
	if ce.pathMap == nil {
		return []route{{label: "?", to: ""}}
	}
	out := make([]route, 0, len(ce.pathMap))
	for k, v := range ce.pathMap {
		out = append(out, route{label: k, to: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}

func (ge *Exporter[S]) reachesEnd() bool {
	for _, e := range ge.graph.edges {
		if e.To == END {
			return true
		}
	}
	for _, from := range ge.graph.conditionalOrder {
		for _, r := range ge.routes(from) {
			if r.to == END {
				return true
			}
		}
	}
	return false
}

// Info returns the node names in insertion order and the number of edges,
// counting the START edge and every conditional route.
func (ge *Exporter[S]) Info() GraphInfo {
	info := GraphInfo{Nodes: append([]string(nil), ge.graph.order...)}
	if ge.graph.entryPoint != "" {
		info.Edges++
	}
	info.Edges += len(ge.graph.edges)
	for _, from := range ge.graph.conditionalOrder {
		info.Edges += len(ge.routes(from))
	}
	return info
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter[S]) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (ge *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder
	g := ge.graph

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	sb.WriteString("    START([\"START\"])\n")
	for _, name := range g.order {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
	}
	if ge.reachesEnd() {
		sb.WriteString("    END([\"END\"])\n")
	}

	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    START --> %s\n", g.entryPoint)
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", e.From, e.To)
	}
	for _, from := range g.conditionalOrder {
		for _, r := range ge.routes(from) {
			if r.to == "" {
				fmt.Fprintf(&sb, "    %s -.-> %s_condition((?))\n", from, from)
				continue
			}
			fmt.Fprintf(&sb, "    %s -.->|%s| %s\n", from, r.label, r.to)
		}
	}

	sb.WriteString("    style START fill:#90EE90\n")
	if ge.reachesEnd() {
		sb.WriteString("    style END fill:#FFB6C1\n")
	}
	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", g.entryPoint)
	}
	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter[S]) DrawDOT() string {
	var sb strings.Builder
	g := ge.graph

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")
	sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
	if ge.reachesEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}
	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", g.entryPoint)
		fmt.Fprintf(&sb, "    START -> %s;\n", g.entryPoint)
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "    %s -> %s;\n", e.From, e.To)
	}
	for _, from := range g.conditionalOrder {
		for _, r := range ge.routes(from) {
			if r.to == "" {
				fmt.Fprintf(&sb, "    %s -> %s_condition [style=dashed, label=\"?\"];\n", from, from)
				fmt.Fprintf(&sb, "    %s_condition [label=\"?\", shape=diamond, style=filled, fillcolor=lightyellow];\n", from)
				continue
			}
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=\"%s\"];\n", from, r.to, r.label)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII generates an ASCII tree representation of the graph
func (ge *Exporter[S]) DrawASCII() string {
	if ge.graph.entryPoint == "" {
		return "No entry point set\n"
	}

	var sb strings.Builder
	sb.WriteString("Graph Execution Flow:\n")
	sb.WriteString("├── START\n")
	ge.drawASCIINode(ge.graph.entryPoint, "", "│   ", true, map[string]bool{}, &sb)
	return sb.String()
}

func (ge *Exporter[S]) children(name string) []route {
	if _, ok := ge.graph.conditionalEdges[name]; ok {
		return ge.routes(name)
	}
	var out []route
	for _, e := range ge.graph.edges {
		if e.From == name {
			out = append(out, route{to: e.To})
		}
	}
	return out
}

func (ge *Exporter[S]) drawASCIINode(name, label, prefix string, isLast bool, visited map[string]bool, sb *strings.Builder) {
	connector, nextPrefix := "├──", prefix+"│   "
	if isLast {
		connector, nextPrefix = "└──", prefix+"    "
	}
	text := name
	if label != "" && label != name {
		text = fmt.Sprintf("[%s] %s", label, name)
	}

	if name == "" {
		fmt.Fprintf(sb, "%s%s (?)\n", prefix, connector)
		return
	}
	if visited[name] {
		fmt.Fprintf(sb, "%s%s %s (cycle)\n", prefix, connector, text)
		return
	}
	fmt.Fprintf(sb, "%s%s %s\n", prefix, connector, text)
	if name == END {
		return
	}

	visited[name] = true
	defer delete(visited, name)

	kids := ge.children(name)
	for i, c := range kids {
		ge.drawASCIINode(c.to, c.label, nextPrefix, i == len(kids)-1, visited, sb)
	}
}
