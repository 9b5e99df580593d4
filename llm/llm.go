// Package llm builds the chat model used by the agents.
//
// Two providers are available: "openai" uses langchaingo's OpenAI client and
// "go-openai" adapts sashabaranov/go-openai to the llms.Model interface. Both
// honour a custom base URL, which is how OpenAI-compatible gateways are used.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/agentdesk/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI   = "openai"
	ProviderGoOpenAI = "go-openai"

	DefaultModel = "gpt-4o-mini"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured or supplied.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")

	// ErrEmptyResponse is returned when the provider answers without choices.
	ErrEmptyResponse = errors.New("empty response from model")
)

// UpstreamError marks a failed call to the model provider.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream model call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Config selects and configures the provider.
type Config struct {
	Provider    string  `yaml:"provider" validate:"omitempty,oneof=openai go-openai"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// WithDefaults fills the zero fields.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return c
}

// New creates the model described by cfg. Every call made through the returned
// model uses cfg.Temperature unless the caller overrides it.
func New(cfg Config) (llms.Model, error) {
	cfg = cfg.WithDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderGoOpenAI:
		model = NewGoOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	log.Debug("llm: using provider %s with model %s", cfg.Provider, cfg.Model)
	return WithDefaults(model, llms.WithTemperature(cfg.Temperature)), nil
}

// Factory creates a model for a request. An empty key falls back to the
// configured one.
type Factory func(apiKey string) (llms.Model, error)

// NewFactory returns a Factory based on cfg.
func NewFactory(cfg Config) Factory {
	return func(apiKey string) (llms.Model, error) {
		c := cfg
		if strings.TrimSpace(apiKey) != "" {
			c.APIKey = strings.TrimSpace(apiKey)
		}
		return New(c)
	}
}

type defaultsModel struct {
	llms.Model
	defaults []llms.CallOption
}

// WithDefaults wraps model so that opts are applied before the caller's own options.
func WithDefaults(model llms.Model, opts ...llms.CallOption) llms.Model {
	if len(opts) == 0 {
		return model
	}
	return &defaultsModel{Model: model, defaults: opts}
}

func (m *defaultsModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	all := make([]llms.CallOption, 0, len(m.defaults)+len(options))
	all = append(all, m.defaults...)
	all = append(all, options...)
	return m.Model.GenerateContent(ctx, messages, all...)
}

func (m *defaultsModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Generate calls the model and returns the first choice. Provider failures are
// wrapped in UpstreamError; context cancellation is returned as is.
func Generate(ctx context.Context, model llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &UpstreamError{Err: ErrEmptyResponse}
	}
	return resp.Choices[0], nil
}

// GenerateText is Generate for callers that only need the text.
func GenerateText(ctx context.Context, model llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	choice, err := Generate(ctx, model, messages, opts...)
	if err != nil {
		return "", err
	}
	return choice.Content, nil
}

// IsUpstream reports whether err came from the provider.
func IsUpstream(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up)
}
