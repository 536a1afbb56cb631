package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/analyzer"
	"news-impact-alerts/internal/schema"
	"news-impact-alerts/internal/storage"
)

// EventAnalyzer is the analysis surface the pipeline depends on.
type EventAnalyzer interface {
	Analyze(ctx context.Context, req schema.AnalyzeRequest) analyzer.Result
}

// EventSink receives accepted events after storage, e.g. an alert notifier
// or a broker publisher. Sinks are best-effort.
type EventSink interface {
	Publish(ctx context.Context, event schema.Event) error
}

// ItemFailure points one batch failure back at the submitted item.
type ItemFailure struct {
	Index    int    `json:"index"`
	Headline string `json:"headline"`
	Error    string `json:"error"`
}

// BatchResult accounts for every item of a submitted batch:
// Accepted + Rejected + Deduplicated == Submitted.
type BatchResult struct {
	Submitted    int            `json:"submitted"`
	Accepted     int            `json:"accepted"`
	Rejected     int            `json:"rejected"`
	Deduplicated int            `json:"deduplicated"`
	Failures     []ItemFailure  `json:"failures,omitempty"`
	Events       []schema.Event `json:"events"`
}

// PipelineOptions parameterise the ingestion pipeline.
type PipelineOptions struct {
	// MaxBatchItems caps ProcessBatch input size. Zero means default.
	MaxBatchItems int
}

const defaultMaxBatchItems = 10

// Pipeline runs candidates through dedup, analysis, schema validation, and
// storage. One pipeline instance is shared by the scheduler and the API.
type Pipeline struct {
	analyzer EventAnalyzer
	store    storage.EventStore
	sinks    []EventSink
	maxBatch int
	logger   zerolog.Logger
}

// NewPipeline constructs the pipeline around its analyzer and store.
func NewPipeline(an EventAnalyzer, store storage.EventStore, opts PipelineOptions, logger zerolog.Logger) *Pipeline {
	maxBatch := opts.MaxBatchItems
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchItems
	}
	return &Pipeline{
		analyzer: an,
		store:    store,
		maxBatch: maxBatch,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// AddSink registers a post-storage consumer of accepted events.
func (p *Pipeline) AddSink(sink EventSink) {
	p.sinks = append(p.sinks, sink)
}

// MaxBatchItems reports the configured batch cap.
func (p *Pipeline) MaxBatchItems() int {
	return p.maxBatch
}

// ProcessOne runs a single candidate through the pipeline. A duplicate of an
// already-stored event returns the stored event unchanged, making repeated
// submission idempotent.
func (p *Pipeline) ProcessOne(ctx context.Context, req schema.AnalyzeRequest) (schema.Event, error) {
	source := req.Source
	if source == "" {
		source = "Unknown"
	}

	if existing, ok := p.findStored(req.Headline, source); ok {
		p.logger.Debug().Str("headline", req.Headline).Msg("duplicate headline; returning stored event")
		return existing, nil
	}

	result := p.analyzer.Analyze(ctx, req)
	event := result.Event

	if err := schema.ValidateEvent(&event); err != nil {
		return schema.Event{}, fmt.Errorf("reject candidate: %w", err)
	}

	// Atomic key check: a concurrent identical submission keeps whichever
	// record landed first.
	stored, created := p.store.InsertEventIfAbsent(event)
	if !created {
		p.logger.Debug().Str("headline", req.Headline).Msg("duplicate stored concurrently; returning stored event")
		return stored, nil
	}

	p.publish(ctx, event, result.Degraded)
	return event, nil
}

// ProcessBatch runs a batch through the pipeline with per-item accounting.
// An oversized batch is rejected before any item is processed. Duplicates
// (against the store and within the batch) are dropped silently; candidates
// that fail the schema contract become indexed failures.
func (p *Pipeline) ProcessBatch(ctx context.Context, reqs []schema.AnalyzeRequest) (BatchResult, error) {
	if len(reqs) > p.maxBatch {
		return BatchResult{}, fmt.Errorf("batch of %d exceeds limit of %d items", len(reqs), p.maxBatch)
	}

	result := BatchResult{Submitted: len(reqs), Events: []schema.Event{}}
	seen := make(map[[2]string]struct{}, len(reqs))

	for i, req := range reqs {
		source := req.Source
		if source == "" {
			source = "Unknown"
		}

		key := [2]string{req.Headline, source}
		if _, dup := seen[key]; dup || p.store.HasEventKey(req.Headline, source) {
			result.Deduplicated++
			continue
		}
		seen[key] = struct{}{}

		analyzed := p.analyzer.Analyze(ctx, req)
		event := analyzed.Event

		if err := schema.ValidateEvent(&event); err != nil {
			result.Rejected++
			result.Failures = append(result.Failures, ItemFailure{
				Index:    i,
				Headline: req.Headline,
				Error:    err.Error(),
			})
			p.logger.Warn().Err(err).Int("index", i).Str("headline", req.Headline).Msg("candidate rejected")
			continue
		}

		if _, created := p.store.InsertEventIfAbsent(event); !created {
			result.Deduplicated++
			continue
		}

		p.publish(ctx, event, analyzed.Degraded)
		result.Accepted++
		result.Events = append(result.Events, event)
	}

	p.logger.Info().
		Int("submitted", result.Submitted).
		Int("accepted", result.Accepted).
		Int("rejected", result.Rejected).
		Int("deduplicated", result.Deduplicated).
		Msg("batch processed")
	return result, nil
}

func (p *Pipeline) publish(ctx context.Context, event schema.Event, degraded bool) {
	p.logger.Info().
		Str("event_id", event.EventID).
		Str("severity", string(event.Severity)).
		Bool("degraded", degraded).
		Msg("event stored")

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.Error().Err(err).Str("event_id", event.EventID).Msg("sink publish failed")
		}
	}
}

func (p *Pipeline) findStored(headline, source string) (schema.Event, bool) {
	for _, e := range p.store.Events() {
		if e.Headline == headline && e.Source == source {
			return e, true
		}
	}
	return schema.Event{}, false
}
