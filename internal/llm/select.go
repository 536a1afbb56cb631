package llm

import (
	"os"

	"github.com/rs/zerolog"
)

// Credential environment variables, read once at selection time.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// Provider names exposed by the status query.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

// Status reports which provider is active and which credentials are present.
// Never carries credential values.
type Status struct {
	ActiveProvider      string `json:"active_provider"`
	Model               string `json:"model"`
	OpenAIKeyPresent    bool   `json:"openai_key_present"`
	AnthropicKeyPresent bool   `json:"anthropic_key_present"`
}

// Selection is the resolved provider chain. Built once at wiring time and
// injected; there is no hidden process-wide client.
type Selection struct {
	Client   Client
	Provider string

	openAIKeyPresent    bool
	anthropicKeyPresent bool
}

// Status describes the selection without leaking credentials.
func (s Selection) Status() Status {
	return Status{
		ActiveProvider:      s.Provider,
		Model:               s.Client.Model(),
		OpenAIKeyPresent:    s.openAIKeyPresent,
		AnthropicKeyPresent: s.anthropicKeyPresent,
	}
}

// Select resolves the active provider: OpenAI when its credential is present
// and the client constructs, else Anthropic under the same rule, else the
// offline generator.
func Select(opts Options, logger zerolog.Logger) Selection {
	log := logger.With().Str("component", "llm_select").Logger()
	limiter := newLimiter(opts.RatePerSecond)

	openAIKey := os.Getenv(EnvOpenAIKey)
	anthropicKey := os.Getenv(EnvAnthropicKey)

	sel := Selection{
		openAIKeyPresent:    openAIKey != "",
		anthropicKeyPresent: anthropicKey != "",
	}

	if openAIKey != "" {
		client, err := NewOpenAI(openAIKey, opts, limiter, logger)
		if err == nil {
			log.Info().Str("provider", ProviderOpenAI).Str("model", client.Model()).Msg("generation provider selected")
			sel.Client = client
			sel.Provider = ProviderOpenAI
			return sel
		}
		log.Warn().Err(err).Msg("openai client construction failed")
	}

	if anthropicKey != "" {
		client, err := NewAnthropic(anthropicKey, opts, limiter, logger)
		if err == nil {
			log.Info().Str("provider", ProviderAnthropic).Str("model", client.Model()).Msg("generation provider selected")
			sel.Client = client
			sel.Provider = ProviderAnthropic
			return sel
		}
		log.Warn().Err(err).Msg("anthropic client construction failed")
	}

	log.Warn().Msg("no provider credential present; using offline generator")
	sel.Client = NewOffline()
	sel.Provider = ProviderOffline
	return sel
}
