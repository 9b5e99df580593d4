package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/agentdesk/prebuilt"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	agentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	toolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func printMessage(w io.Writer, m prebuilt.Message) {
	switch m.Role {
	case prebuilt.RoleUser:
		fmt.Fprintf(w, "%s %s\n", userStyle.Render("You:"), m.Content)
	case prebuilt.RoleTool:
		fmt.Fprintln(w, toolStyle.Render(fmt.Sprintf("🔧 %s: %s", m.Name, m.Content)))
	default:
		name := m.Name
		if name == "" {
			name = "assistant"
		}
		fmt.Fprintf(w, "%s\n%s\n\n", agentStyle.Render(name+":"), m.Content)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errStyle.Render("Error processing request: "+err.Error()))
}
