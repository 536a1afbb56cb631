// Package analyzer turns a headline into an Event candidate via the
// generation client chain, degrading to a placeholder event when every
// provider path fails.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/idgen"
	"news-impact-alerts/internal/llm"
	"news-impact-alerts/internal/schema"
)

// ErrorModelName marks degraded events in meta.llm_model. Kept for wire
// compatibility; in-process callers branch on Result.Degraded instead.
const ErrorModelName = "error"

// Result is the outcome of one analysis: either a generated event or a
// degraded placeholder with the failure reason.
type Result struct {
	Event    schema.Event
	Degraded bool
	Reason   string
}

// Analyzer owns the injected generation client.
type Analyzer struct {
	client llm.Client
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an Analyzer around a generation client.
func New(client llm.Client, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		client: client,
		logger: logger.With().Str("component", "analyzer").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Analyze builds prompts for the request, invokes the client chain, and
// returns a structurally valid Event candidate. It never returns an error:
// generation failures yield a degraded candidate instead.
func (a *Analyzer) Analyze(ctx context.Context, req schema.AnalyzeRequest) Result {
	source := req.Source
	if source == "" {
		source = "Unknown"
	}

	systemPrompt := schema.SystemPrompt()
	userPrompt := schema.UserPrompt(req.Headline, source, req.Text)

	event, err := llm.Generate(ctx, a.client, systemPrompt, userPrompt, schema.JSONSchema())
	if err != nil {
		a.logger.Warn().Err(err).Str("headline", req.Headline).Msg("generation failed; emitting degraded event")
		return Result{
			Event:    a.degradedEvent(req, source, err),
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	if event.EventID == "" {
		event.EventID = a.newEventID(idgen.EventPrefix)
	}

	// Caller-supplied identity always wins over whatever the provider echoed.
	event.Headline = req.Headline
	event.Source = source
	if req.Timestamp != nil {
		event.Timestamp = req.Timestamp.UTC()
	} else if event.Timestamp.IsZero() {
		event.Timestamp = a.now()
	}

	return Result{Event: event}
}

// degradedEvent synthesizes the structurally valid placeholder used when no
// provider succeeds.
func (a *Analyzer) degradedEvent(req schema.AnalyzeRequest, source string, cause error) schema.Event {
	ts := a.now()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	return schema.Event{
		EventID:           a.newEventID(idgen.EventPrefix + "error_"),
		Headline:          req.Headline,
		Source:            source,
		Timestamp:         ts,
		Severity:          schema.SeverityLow,
		EventSentiment:    schema.SentimentMixed,
		MacroEffect:       "Analysis Error",
		PredictionHorizon: schema.HorizonShortTerm,
		MarketPressure:    schema.PressureRiskOff,
		LogicChain: []schema.LogicNode{
			{Type: "event", Text: "Error in analysis"},
			{Type: "macro", Text: "Unable to determine"},
			{Type: "sector", Text: "N/A"},
			{Type: "asset", Text: "N/A"},
		},
		AffectedAssets: []schema.AffectedAsset{},
		Why:            schema.Truncate(fmt.Sprintf("Analysis failed: %v", cause), schema.MaxReasonLen),
		Meta: schema.Meta{
			LLMModel:          ErrorModelName,
			LLMPromptVersion:  schema.PromptVersion,
			ConfidenceFormula: schema.DefaultConfidenceFormula,
		},
	}
}

// newEventID embeds the generation time so IDs sort by creation.
func (a *Analyzer) newEventID(prefix string) string {
	id, err := idgen.NewWithPrefix(prefix + a.now().Format("20060102150405") + "_")
	if err != nil {
		// nanoid only fails on a broken entropy source; fall back to time.
		return prefix + a.now().Format("20060102150405.000000000")
	}
	return id
}
