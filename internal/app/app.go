package app

import (
	"context"
	"errors"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/alerting"
	"news-impact-alerts/internal/analyzer"
	"news-impact-alerts/internal/config"
	"news-impact-alerts/internal/correlator"
	"news-impact-alerts/internal/ingest"
	"news-impact-alerts/internal/kafka"
	"news-impact-alerts/internal/llm"
	"news-impact-alerts/internal/scheduler"
	"news-impact-alerts/internal/server"
	"news-impact-alerts/internal/service"
	"news-impact-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// components holds the wired runtime built for one command invocation.
type components struct {
	store      *storage.Store
	selection  llm.Selection
	fetcher    *ingest.Fetcher
	pipeline   *ingest.Pipeline
	correlator *correlator.Correlator

	closers []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// build wires the store, provider chain, pipeline, and correlator. Every
// command shares this path so one-shot invocations see the same state as
// the long-running service.
func (a *App) build(ctx context.Context) (*components, error) {
	c := &components{}

	var backup *storage.Backup
	if a.Config.Storage.BackupEnabled {
		var err error
		backup, err = storage.NewBackup(a.Config.Storage.BackupDir)
		if err != nil {
			return nil, err
		}
	}

	var archive *storage.Archive
	if a.Config.Database.DSN != "" {
		pool, err := storage.NewPool(ctx, storage.PoolConfig{
			DSN:             a.Config.Database.DSN,
			MaxOpenConns:    a.Config.Database.MaxOpenConns,
			MaxIdleConns:    a.Config.Database.MaxIdleConns,
			ConnMaxLifetime: a.Config.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		archive = storage.NewArchive(pool)
		c.closers = append(c.closers, archive.Close)

		if err := archive.EnsureSchema(ctx); err != nil {
			c.close()
			return nil, err
		}
		if count, err := archive.CountEvents(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("archive event count failed")
		} else {
			a.Logger.Info().Int64("archived_events", count).Msg("archive ready")
		}
	} else {
		a.Logger.Debug().Msg("database.dsn not configured; archive disabled")
	}

	c.store = storage.NewStore(storage.Options{Backup: backup, Archive: archive}, a.Logger)

	if backup != nil {
		events, err := backup.LoadEvents()
		if err != nil {
			c.close()
			return nil, err
		}
		validations, err := backup.LoadValidations()
		if err != nil {
			c.close()
			return nil, err
		}
		c.store.Restore(events, validations)
		a.Logger.Info().Int("events", len(events)).Int("validations", len(validations)).Msg("collections restored from backup")
	}

	c.selection = llm.Select(llm.Options{
		OpenAIModel:    a.Config.LLM.OpenAIModel,
		AnthropicModel: a.Config.LLM.AnthropicModel,
		Temperature:    a.Config.LLM.Temperature,
		MaxAttempts:    a.Config.LLM.MaxAttempts,
		RetryBaseDelay: a.Config.LLM.RetryBaseDelay,
		Timeout:        a.Config.LLM.RequestTimeout,
		RatePerSecond:  a.Config.LLM.RatePerSecond,
	}, a.Logger)

	an := analyzer.New(c.selection.Client, a.Logger)
	c.pipeline = ingest.NewPipeline(an, c.store, ingest.PipelineOptions{
		MaxBatchItems: a.Config.Ingest.MaxBatchItems,
	}, a.Logger)

	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		tg := a.Config.Alerting.Telegram
		notifier := alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, 10*time.Second, a.Logger)
		c.pipeline.AddSink(alerting.NewHighSeverityAlerter(notifier, a.Logger))
	}

	if a.Config.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.Options{
			Brokers: a.Config.Kafka.Brokers,
			Topic:   a.Config.Kafka.Topic,
		}, a.Logger)
		if err != nil {
			c.close()
			return nil, err
		}
		c.closers = append(c.closers, func() {
			if err := producer.Close(); err != nil {
				a.Logger.Error().Err(err).Msg("kafka producer close failed")
			}
		})
		c.pipeline.AddSink(producer)
	}

	var rng *rand.Rand
	if seed := a.Config.Correlator.Seed; seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}
	c.correlator = correlator.New(c.store, correlator.Options{
		HitProbability: a.Config.Correlator.HitProbability,
		Rand:           rng,
	}, a.Logger)

	c.fetcher = ingest.NewFetcher(ingest.FetcherOptions{
		URLs:      a.Config.Feeds.URLs,
		File:      a.Config.Feeds.File,
		Timeout:   a.Config.Feeds.RequestTimeout,
		UserAgent: a.Config.Feeds.UserAgent,
	}, a.Logger)

	return c, nil
}

// Run executes the long-running service: the HTTP API plus the periodic
// feed polling loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Feeds.Interval,
		StartupDelay: a.Config.Feeds.StartupDelay,
	}, a.Logger)
	svc := service.New(sched, c.fetcher, c.pipeline, a.Logger)

	srv := server.New(server.Options{
		Addr:         a.Config.Server.Addr,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}, c.store, c.pipeline, c.correlator, c.selection, a.Logger)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Run(ctx) }()
	go func() { errCh <- svc.Run(ctx) }()

	a.Logger.Info().Msg("service started")
	err = <-errCh
	cancel()
	if second := <-errCh; second != nil && !errors.Is(second, context.Canceled) && err == nil {
		err = second
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("service stopped")
	return nil
}

// AnalyzeOptions configure the one-shot analyze command.
type AnalyzeOptions struct {
	Headline string
	Source   string
	Text     string
}

// ValidateOptions configure the one-shot validate command.
type ValidateOptions struct {
	EventID string
	Horizon string
}

// ExportOptions hold parameters for exporting validation outcomes.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
