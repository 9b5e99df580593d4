package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agentdesk/config"
	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
)

// app holds the state shared by the subcommands.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg      *config.Config
	newModel func(llm.Config) (llms.Model, error)
}

func newRootCmd() *cobra.Command {
	return (&app{newModel: llm.New}).command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentdesk",
		Short: "Multi-agent customer support and chain-of-thought reasoning",
		Long: `agentdesk demonstrates two LLM orchestration patterns:
a supervisor routing support requests to specialist agents with mock tools,
and a fixed four-step chain-of-thought reasoner.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load() },
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides log.level")

	root.AddCommand(a.serveCmd(), a.supportCmd(), a.reasonCmd(), a.graphCmd())
	return root
}

func (a *app) load() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetDefaultLogger(log.NewGologLoggerWithOutput(os.Stderr, level))
	a.cfg = cfg
	return nil
}

// model creates the configured model. Without an API key it asks for one
// when the command reads from a terminal.
func (a *app) model(cmd *cobra.Command) (llms.Model, error) {
	m, err := a.newModel(a.cfg.LLM)
	if errors.Is(err, llm.ErrMissingAPIKey) && isTerminal(cmd.InOrStdin()) {
		var key string
		if key, err = promptAPIKey(); err != nil {
			return nil, err
		}
		cfg := a.cfg.LLM
		cfg.APIKey = key
		m, err = a.newModel(cfg)
	}
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY or llm.api_key", err)
	}
	return m, err
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func promptAPIKey() (string, error) {
	var key string
	err := huh.NewInput().
		Title("OpenAI API Key").
		Description("Used for this session only.").
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("an API key is required")
			}
			return nil
		}).
		Value(&key).
		Run()
	return strings.TrimSpace(key), err
}
