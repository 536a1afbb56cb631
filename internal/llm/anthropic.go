package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const anthropicMaxTokens = 4096

// AnthropicClient is the secondary network-backed generation provider.
type AnthropicClient struct {
	api     anthropic.Client
	model   string
	opts    Options
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewAnthropic constructs the Anthropic provider client.
func NewAnthropic(apiKey string, opts Options, limiter *rate.Limiter, logger zerolog.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is empty")
	}
	opts = opts.withDefaults()
	model := opts.AnthropicModel
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicClient{
		api:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		opts:    opts,
		limiter: limiter,
		logger:  logger.With().Str("component", "llm_anthropic").Logger(),
	}, nil
}

// Model reports the configured model name.
func (c *AnthropicClient) Model() string { return c.model }

// GenerateEvent requests a structured completion, retrying on rate limits.
// Anthropic has no JSON response mode, so the payload is extracted from the
// first balanced object in the text block.
func (c *AnthropicClient) GenerateEvent(ctx context.Context, systemPrompt, userPrompt string, jsonSchema map[string]any) (json.RawMessage, error) {
	user := schemaInstruction(userPrompt, jsonSchema)

	raw, err := retryOnRateLimit(ctx, c.opts.MaxAttempts, c.opts.RetryBaseDelay, isAnthropicRateLimit, func() (json.RawMessage, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		message, err := c.api.Messages.New(reqCtx, anthropic.MessageNewParams{
			Model:       anthropic.Model(c.model),
			MaxTokens:   anthropicMaxTokens,
			Temperature: anthropic.Float(c.opts.Temperature),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
			},
		})
		if err != nil {
			return nil, err
		}
		if len(message.Content) == 0 {
			return nil, errors.New("anthropic returned no content")
		}
		return json.RawMessage(message.Content[0].Text), nil
	})
	if err != nil {
		if errors.Is(err, ErrRateLimitExceeded) {
			c.logger.Warn().Err(err).Msg("anthropic retry budget exhausted")
			return nil, err
		}
		return nil, fmt.Errorf("%w: anthropic: %v", ErrGenerationFailed, err)
	}

	if extracted := extractJSON(string(raw)); extracted != "" {
		return json.RawMessage(extracted), nil
	}
	return nil, fmt.Errorf("%w: no JSON object in anthropic response", ErrMalformedResponse)
}

func isAnthropicRateLimit(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

var _ Client = (*AnthropicClient)(nil)
