package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIClient is the primary network-backed generation provider.
type OpenAIClient struct {
	api     *openai.Client
	model   string
	opts    Options
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewOpenAI constructs the OpenAI provider client.
func NewOpenAI(apiKey string, opts Options, limiter *rate.Limiter, logger zerolog.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	opts = opts.withDefaults()
	model := opts.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		api:     openai.NewClient(apiKey),
		model:   model,
		opts:    opts,
		limiter: limiter,
		logger:  logger.With().Str("component", "llm_openai").Logger(),
	}, nil
}

// Model reports the configured model name.
func (c *OpenAIClient) Model() string { return c.model }

// GenerateEvent requests a structured completion, retrying on rate limits.
func (c *OpenAIClient) GenerateEvent(ctx context.Context, systemPrompt, userPrompt string, jsonSchema map[string]any) (json.RawMessage, error) {
	user := schemaInstruction(userPrompt, jsonSchema)

	raw, err := retryOnRateLimit(ctx, c.opts.MaxAttempts, c.opts.RetryBaseDelay, isOpenAIRateLimit, func() (json.RawMessage, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: float32(c.opts.Temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("openai returned no choices")
		}
		return json.RawMessage(resp.Choices[0].Message.Content), nil
	})
	if err != nil {
		if errors.Is(err, ErrRateLimitExceeded) {
			c.logger.Warn().Err(err).Msg("openai retry budget exhausted")
			return nil, err
		}
		return nil, fmt.Errorf("%w: openai: %v", ErrGenerationFailed, err)
	}
	return raw, nil
}

func isOpenAIRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}

var _ Client = (*OpenAIClient)(nil)
