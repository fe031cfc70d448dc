// Package app wires configuration into ready-to-use components for the
// binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/events"
	"github.com/dvloznov/expense-tracker/internal/events/amqp"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/insights"
	"github.com/dvloznov/expense-tracker/internal/llm"
	"github.com/dvloznov/expense-tracker/internal/reports"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/dvloznov/expense-tracker/internal/store/bigquery"
	"github.com/dvloznov/expense-tracker/internal/store/postgres"
	"github.com/dvloznov/expense-tracker/internal/store/sqlite"
	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/rs/zerolog"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Store     store.Store
	Generator llm.Generator
	Publisher events.Publisher
	Tracker   *tracker.Service

	closers []func() error
}

// New opens the store, the model client and the event publisher and builds
// the tracker on top of them. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	gen, err := NewGenerator(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Generator = gen

	a.Publisher = events.Noop{}
	if cfg.EventsEnabled() {
		client, err := amqp.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
		if err != nil {
			log.Warn().Err(err).Msg("event broker unreachable, expense events disabled")
		} else {
			a.Publisher = client
			a.closers = append(a.closers, client.Close)
		}
	}

	loc := cfg.Location()
	in := ingest.NewService(llm.NewModelCategorizer(gen), a.Publisher, log,
		ingest.WithLocation(loc),
		ingest.WithCurrency(cfg.DefaultCurrency),
	)
	a.Tracker = tracker.NewService(st, in, insights.NewAdvisor(gen, log), log, tracker.Config{
		Location:  loc,
		ViewLimit: cfg.ViewLimit,
	})
	return a, nil
}

// Reports builds a report generator over the tracker, writing to the
// configured sink.
func (a *App) Reports(ctx context.Context) (*reports.Generator, error) {
	sink, err := OpenSink(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	if c, ok := sink.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	return reports.NewGenerator(a.Tracker, sink, a.Log, a.Config.ReportWorkers), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the configured backend. SQL backends are migrated first.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("OpenStore: create data directory: %w", err)
			}
		}
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		st, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendBigQuery:
		st, err := bigquery.Open(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("OpenStore: unknown backend %q", cfg.StoreBackend)
}

// NewGenerator returns the configured language model client, or
// llm.Disabled when the provider is "none".
func NewGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("NewGenerator: %w", err)
		}
		return g, nil
	case config.ProviderAnthropic:
		return llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, int64(cfg.LLMMaxTokens), cfg.LLMTimeout), nil
	case config.ProviderNone:
		return llm.Disabled{}, nil
	}
	return nil, fmt.Errorf("NewGenerator: unknown provider %q", cfg.LLMProvider)
}

// OpenSink returns a GCS sink when a bucket is configured, else a local
// directory sink.
func OpenSink(ctx context.Context, cfg *config.Config) (reports.Sink, error) {
	if cfg.ReportBucket != "" {
		sink, err := reports.NewGCSSink(ctx, cfg.ReportBucket, "reports")
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
	return reports.DirSink{Dir: cfg.ReportDir}, nil
}
