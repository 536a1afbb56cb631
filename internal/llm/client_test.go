package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"news-impact-alerts/internal/schema"
)

func TestRetryOnRateLimitRecovers(t *testing.T) {
	calls := 0
	rateErr := errors.New("429 too many requests")

	raw, err := retryOnRateLimit(context.Background(), 3, time.Millisecond,
		func(err error) bool { return errors.Is(err, rateErr) },
		func() (json.RawMessage, error) {
			calls++
			if calls < 3 {
				return nil, rateErr
			}
			return json.RawMessage(`{}`), nil
		})
	if err != nil {
		t.Fatalf("expected recovery on third attempt: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if string(raw) != "{}" {
		t.Fatalf("unexpected payload %q", raw)
	}
}

func TestRetryOnRateLimitExhaustsBudget(t *testing.T) {
	calls := 0
	rateErr := errors.New("429 too many requests")

	_, err := retryOnRateLimit(context.Background(), 3, time.Millisecond,
		func(error) bool { return true },
		func() (json.RawMessage, error) {
			calls++
			return nil, rateErr
		})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want exactly the attempt budget", calls)
	}
}

func TestRetryOnRateLimitPropagatesOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	_, err := retryOnRateLimit(context.Background(), 3, time.Millisecond,
		func(error) bool { return false },
		func() (json.RawMessage, error) {
			calls++
			return nil, boom
		})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-rate-limit errors must not be retried, calls = %d", calls)
	}
}

func TestPostProcessInjectsDefaults(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := schema.Event{
		Why: strings.Repeat("x", 500),
	}

	PostProcess(&e, "some-model", now)

	if !e.Timestamp.Equal(now) {
		t.Fatalf("zero timestamp must be replaced, got %v", e.Timestamp)
	}
	if e.Meta.LLMModel != "some-model" {
		t.Fatalf("meta model = %q, want injected default", e.Meta.LLMModel)
	}
	if e.Meta.LLMPromptVersion != schema.PromptVersion {
		t.Fatalf("prompt version = %q", e.Meta.LLMPromptVersion)
	}
	if len(e.Why) != schema.MaxReasonLen {
		t.Fatalf("why length = %d, want %d", len(e.Why), schema.MaxReasonLen)
	}
}

func TestPostProcessKeepsProvidedMeta(t *testing.T) {
	ts := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	e := schema.Event{
		Timestamp: ts,
		Meta:      schema.Meta{LLMModel: "provider-model"},
	}

	PostProcess(&e, "fallback", time.Now().UTC())

	if !e.Timestamp.Equal(ts) {
		t.Fatal("existing timestamp must be preserved")
	}
	if e.Meta.LLMModel != "provider-model" {
		t.Fatalf("existing meta must be preserved, got %q", e.Meta.LLMModel)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose wrapped", "Here you go:\n```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`},
		{"braces in strings", `{"text":"use { and } freely"}`, `{"text":"use { and } freely"}`},
		{"no object", "nothing here", ""},
		{"unbalanced", `{"a":1`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.in); got != tc.want {
				t.Fatalf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSchemaInstruction(t *testing.T) {
	if got := schemaInstruction("prompt", nil); got != "prompt" {
		t.Fatalf("nil schema must leave the prompt unchanged, got %q", got)
	}
	got := schemaInstruction("prompt", map[string]any{"type": "object"})
	if !strings.Contains(got, "Respond with valid JSON matching this schema:") {
		t.Fatalf("schema instruction missing: %q", got)
	}
}
