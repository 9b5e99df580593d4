package main

import (
	"github.com/spf13/cobra"

	"github.com/smallnest/agentdesk/config"
	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cs, closeStore, err := config.OpenStore(ctx, a.cfg.Store)
			if err != nil {
				return err
			}
			defer closeStore()
			log.Info("agentdesk: checkpoints in %s store", a.cfg.Store.Driver)

			srv, err := server.New(server.Options{
				Models:          llm.NewFactory(a.cfg.LLM),
				Store:           cs,
				MaxCheckpoints:  a.cfg.Store.MaxCheckpoints,
				MaxIterations:   a.cfg.Agents.MaxIterations,
				RecursionLimit:  a.cfg.Agents.RecursionLimit,
				Retries:         a.cfg.Agents.Retries,
				Mode:            a.cfg.Server.Mode,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				TurnRate:        a.cfg.Server.TurnRate,
				TurnBurst:       a.cfg.Server.TurnBurst,
			})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
