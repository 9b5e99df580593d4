package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/prebuilt"
	"github.com/smallnest/agentdesk/reasoning"
	"github.com/smallnest/agentdesk/support"
	"github.com/smallnest/agentdesk/tool"
)

// conversation keeps the state of one terminal chat.
type conversation interface {
	send(ctx context.Context, text string) ([]prebuilt.Message, error)
	reset()
}

type supportChat struct {
	runnable   *graph.Runnable[support.State]
	customerID string
	state      support.State
}

func (c *supportChat) send(ctx context.Context, text string) ([]prebuilt.Message, error) {
	c.state.Messages = append(c.state.Messages, prebuilt.UserMessage(text))
	c.state.CustomerID = c.customerID
	before := len(c.state.Messages)
	final, err := c.runnable.Invoke(ctx, c.state)
	c.state = final
	return newMessages(final.Messages, before), err
}

func (c *supportChat) reset() { c.state = support.State{} }

type reasoningChat struct {
	runnable *graph.Runnable[reasoning.State]
	state    reasoning.State
}

func (c *reasoningChat) send(ctx context.Context, text string) ([]prebuilt.Message, error) {
	c.state.Messages = append(c.state.Messages, prebuilt.UserMessage(text))
	before := len(c.state.Messages)
	final, err := c.runnable.Invoke(ctx, c.state)
	c.state = final
	return newMessages(final.Messages, before), err
}

func (c *reasoningChat) reset() { c.state = reasoning.State{} }

func newMessages(msgs []prebuilt.Message, from int) []prebuilt.Message {
	if from >= len(msgs) {
		return nil
	}
	return msgs[from:]
}

func (a *app) supportCmd() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "support [question]",
		Short: "Chat with the customer support agents",
		Long: `Routes each question through the supervisor to the technical, billing or
general agent. With a question it answers once, otherwise it starts a chat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.model(cmd)
			if err != nil {
				return err
			}
			r, err := support.New(model, support.Options{
				Tools:         tool.NewCatalog(nil),
				MaxIterations: a.cfg.Agents.MaxIterations,
				Retries:       a.cfg.Agents.Retries,
			}, graph.WithRecursionLimit[support.State](a.cfg.Agents.RecursionLimit))
			if err != nil {
				return err
			}
			chat := &supportChat{runnable: r, customerID: customerID}
			return talk(cmd, chat, "🎧 Customer Support Chat", args)
		},
	}
	cmd.Flags().StringVar(&customerID, "customer-id", "", "customer ID passed to the agents' tools")
	return cmd
}

func (a *app) reasonCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "reason [problem]",
		Aliases: []string{"reasoning"},
		Short:   "Think through a problem step by step",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.model(cmd)
			if err != nil {
				return err
			}
			r, err := reasoning.New(model, reasoning.Options{Retries: a.cfg.Agents.Retries},
				graph.WithRecursionLimit[reasoning.State](a.cfg.Agents.RecursionLimit))
			if err != nil {
				return err
			}
			return talk(cmd, &reasoningChat{runnable: r}, "🧠 Chain of Thought Reasoning", args)
		},
	}
}

// talk answers the joined args once, or reads questions line by line until
// EOF or "exit". "clear" starts over.
func talk(cmd *cobra.Command, chat conversation, title string, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return turn(cmd.Context(), out, chat, strings.Join(args, " "))
	}

	fmt.Fprintln(out, titleStyle.Render(title))
	fmt.Fprintln(out, toolStyle.Render(`Type "clear" to start over, "exit" to quit.`))
	in := cmd.InOrStdin()
	interactive := isTerminal(in)
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, userStyle.Render("> "))
		}
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			chat.reset()
			continue
		}
		if err := turn(cmd.Context(), out, chat, line); err != nil {
			printError(out, err)
		}
	}
}

func turn(ctx context.Context, out io.Writer, chat conversation, text string) error {
	msgs, err := chat.send(ctx, text)
	for _, m := range msgs {
		printMessage(out, m)
	}
	return err
}
