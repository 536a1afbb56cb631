package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/ingest"
	"news-impact-alerts/internal/scheduler"
)

// Service orchestrates the periodic feed poll: fetch, dedup, analyze, store.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   *ingest.Fetcher
	pipeline  *ingest.Pipeline
	logger    zerolog.Logger
}

// New constructs the polling service.
func New(sched *scheduler.Scheduler, fetcher *ingest.Fetcher, pipeline *ingest.Pipeline, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		fetcher:   fetcher,
		pipeline:  pipeline,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Poll)
}

// Poll executes one fetch cycle across all configured feeds. Feed items are
// processed in pipeline-sized chunks so one oversized feed cannot starve the
// rest of the cycle.
func (s *Service) Poll(ctx context.Context) error {
	items := s.fetcher.FetchAll(ctx)
	if len(items) == 0 {
		s.logger.Debug().Msg("no feed items this cycle")
		return nil
	}

	var accepted, rejected, deduplicated int
	chunkSize := s.pipeline.MaxBatchItems()
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}

		result, err := s.pipeline.ProcessBatch(ctx, items[start:end])
		if err != nil {
			return fmt.Errorf("process feed batch: %w", err)
		}
		accepted += result.Accepted
		rejected += result.Rejected
		deduplicated += result.Deduplicated

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	s.logger.Info().
		Int("fetched", len(items)).
		Int("accepted", accepted).
		Int("rejected", rejected).
		Int("deduplicated", deduplicated).
		Msg("feed cycle complete")
	return nil
}
