// Package llm implements the generation client chain: pluggable providers
// that turn a prompt pair into a raw structured event payload.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"news-impact-alerts/internal/schema"
)

var (
	// ErrRateLimitExceeded signals the retry budget was exhausted against a
	// rate-limiting provider.
	ErrRateLimitExceeded = errors.New("llm: rate limit exceeded")
	// ErrMalformedResponse signals the provider returned output that does not
	// parse as a structured event.
	ErrMalformedResponse = errors.New("llm: malformed provider response")
	// ErrGenerationFailed covers any other provider-side failure.
	ErrGenerationFailed = errors.New("llm: generation failed")
)

// Client generates a raw structured event payload from a prompt pair.
type Client interface {
	GenerateEvent(ctx context.Context, systemPrompt, userPrompt string, jsonSchema map[string]any) (json.RawMessage, error)
	Model() string
}

// Options parameterise the provider clients.
type Options struct {
	OpenAIModel    string
	AnthropicModel string
	Temperature    float64
	MaxAttempts    int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
	RatePerSecond  float64
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 2 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}

// newLimiter builds the shared provider-call limiter. A zero rate disables
// throttling.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Generate invokes the client, converts the raw payload into a typed Event in
// one fallible step, and applies the uniform post-processing: reason
// truncation, timestamp injection, and meta defaulting.
func Generate(ctx context.Context, client Client, systemPrompt, userPrompt string, jsonSchema map[string]any) (schema.Event, error) {
	raw, err := client.GenerateEvent(ctx, systemPrompt, userPrompt, jsonSchema)
	if err != nil {
		return schema.Event{}, err
	}

	event, err := schema.ParseEvent(raw)
	if err != nil {
		return schema.Event{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	PostProcess(&event, client.Model(), time.Now().UTC())
	return event, nil
}

// PostProcess enforces the field invariants on a freshly generated event.
func PostProcess(e *schema.Event, model string, now time.Time) {
	schema.TruncateReasons(e)
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Meta.LLMModel == "" {
		e.Meta = schema.DefaultMeta(model)
	}
}

// schemaInstruction appends the structured-output schema to a user prompt.
func schemaInstruction(userPrompt string, jsonSchema map[string]any) string {
	if jsonSchema == nil {
		return userPrompt
	}
	encoded, err := json.MarshalIndent(jsonSchema, "", "  ")
	if err != nil {
		return userPrompt
	}
	return userPrompt + "\n\nRespond with valid JSON matching this schema:\n" + string(encoded)
}

// retryOnRateLimit runs call with exponential backoff on rate-limit errors.
// The budget is attempts total; the delay starts at base and doubles. Any
// non-rate-limit error propagates immediately.
func retryOnRateLimit(ctx context.Context, attempts int, base time.Duration, isRateLimit func(error) bool, call func() (json.RawMessage, error)) (json.RawMessage, error) {
	delay := base
	for attempt := 1; ; attempt++ {
		raw, err := call()
		if err == nil {
			return raw, nil
		}
		if !isRateLimit(err) {
			return nil, err
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrRateLimitExceeded, attempts, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

// extractJSON returns the first balanced JSON object embedded in text, or ""
// when none is found. Providers occasionally wrap the payload in prose.
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
