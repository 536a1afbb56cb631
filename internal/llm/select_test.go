package llm

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSelectFallsBackToOffline(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")
	t.Setenv(EnvAnthropicKey, "")

	sel := Select(Options{}, zerolog.Nop())

	if sel.Provider != ProviderOffline {
		t.Fatalf("provider = %q, want %q", sel.Provider, ProviderOffline)
	}
	status := sel.Status()
	if status.OpenAIKeyPresent || status.AnthropicKeyPresent {
		t.Fatalf("no credentials configured, status = %+v", status)
	}
	if status.Model != offlineModelName {
		t.Fatalf("status model = %q", status.Model)
	}
}

func TestSelectPrefersOpenAI(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvAnthropicKey, "sk-ant-test")

	sel := Select(Options{OpenAIModel: "gpt-4o-mini"}, zerolog.Nop())

	if sel.Provider != ProviderOpenAI {
		t.Fatalf("provider = %q, want %q", sel.Provider, ProviderOpenAI)
	}
	status := sel.Status()
	if !status.OpenAIKeyPresent || !status.AnthropicKeyPresent {
		t.Fatalf("both credentials present, status = %+v", status)
	}
}

func TestSelectUsesAnthropicWhenOnlyItsKeyPresent(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")
	t.Setenv(EnvAnthropicKey, "sk-ant-test")

	sel := Select(Options{AnthropicModel: "claude-3-5-haiku-latest"}, zerolog.Nop())

	if sel.Provider != ProviderAnthropic {
		t.Fatalf("provider = %q, want %q", sel.Provider, ProviderAnthropic)
	}
}
