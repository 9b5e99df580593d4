package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/reasoning"
	"github.com/smallnest/agentdesk/support"
)

type drawer interface {
	DrawMermaid() string
	DrawDOT() string
	DrawASCII() string
	Info() graph.GraphInfo
}

func exporterFor(system string) (drawer, error) {
	switch system {
	case "support":
		return graph.NewExporter(support.NewGraph(nil, support.Options{})), nil
	case "reasoning", "reason":
		return graph.NewExporter(reasoning.NewGraph(nil, reasoning.Options{})), nil
	}
	return nil, fmt.Errorf("unknown system %q, want support or reasoning", system)
}

func (a *app) graphCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:       "graph <support|reasoning>",
		Short:     "Print the graph of an agent system",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"support", "reasoning"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := exporterFor(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "mermaid":
				fmt.Fprint(out, ex.DrawMermaid())
			case "dot":
				fmt.Fprint(out, ex.DrawDOT())
			case "ascii":
				fmt.Fprint(out, ex.DrawASCII())
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ex.Info())
			default:
				return fmt.Errorf("unknown format %q, want mermaid, dot, ascii or json", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "mermaid, dot, ascii or json")
	return cmd
}
