package llm

import (
	"context"
	"fmt"

	"github.com/teilomillet/gollm"
)

// Client is the single collaborator interface the task loop depends on:
// one blocking round trip from (system context, user context) to raw
// reply text.
type Client interface {
	Complete(ctx context.Context, systemContext, userContext string) (string, error)
	Model() string
	Provider() string
}

// Default models per provider.
var defaultModels = map[string]string{
	"anthropic": "claude-3-7-sonnet-20250219",
	"openai":    "gpt-4o",
}

// DefaultModel returns the default model identifier for a provider, or
// an empty string for an unknown provider.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// GollmClient implements Client on top of gollm.LLM.
type GollmClient struct {
	provider string
	model    string
	llm      gollm.LLM
}

// Option configures a GollmClient.
type Option func(*options)

type options struct {
	apiKey      string
	maxTokens   int
	temperature float64
}

// WithAPIKey sets an explicit API key. When empty, gollm reads the
// provider's conventional environment variable.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithMaxTokens overrides the default response token budget.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// NewGollmClient creates a client for the given provider. An empty model
// selects the provider default.
func NewGollmClient(provider, model string, opts ...Option) (*GollmClient, error) {
	o := &options{
		maxTokens:   4000,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(o)
	}

	if model == "" {
		model = DefaultModel(provider)
	}
	if model == "" {
		return nil, &ConfigurationError{ClientError{
			Message: fmt.Sprintf("unknown provider %q and no model specified", provider),
		}}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(o.maxTokens),
		gollm.SetTemperature(o.temperature),
		gollm.SetMaxRetries(0), // the step executor owns retries
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if o.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(o.apiKey))
	}

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{ClientError{
			Message: fmt.Sprintf("failed to create %s client", provider),
			Cause:   err,
		}}
	}

	return &GollmClient{
		provider: provider,
		model:    model,
		llm:      inner,
	}, nil
}

// Model returns the model identifier in use.
func (c *GollmClient) Model() string { return c.model }

// Provider returns the provider identifier.
func (c *GollmClient) Provider() string { return c.provider }

// Complete performs one blocking round trip. The call has no timeout of
// its own; cancellation comes only from ctx.
func (c *GollmClient) Complete(ctx context.Context, systemContext, userContext string) (string, error) {
	prompt := gollm.NewPrompt(userContext,
		gollm.WithSystemPrompt(systemContext, gollm.CacheTypeEphemeral),
	)
	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return "", classifyError(c.provider, err)
	}
	return text, nil
}
