package main

import (
	"context"
	"fmt"

	"github.com/peter-kozarec/flowdelta/pkg/config"
	"github.com/peter-kozarec/flowdelta/pkg/data"
	"github.com/peter-kozarec/flowdelta/pkg/data/duckdb"
	"github.com/peter-kozarec/flowdelta/pkg/data/parquet"
	"github.com/peter-kozarec/flowdelta/pkg/data/redis"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/datasource/historical"
	"github.com/peter-kozarec/flowdelta/pkg/datasource/synthetic"
	"github.com/peter-kozarec/flowdelta/pkg/middleware"
	"github.com/peter-kozarec/flowdelta/pkg/simulation"
	"github.com/peter-kozarec/flowdelta/pkg/tools/classify"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const monitorFlags = middleware.MonitorSignals | middleware.MonitorPositionsOpened | middleware.MonitorPositionsClosed

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	source, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer func(source datasource.TickSource) {
		_ = source.Close()
	}(source)

	classifier, err := classify.New(cfg.Classifier)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	telemetry := middleware.NewTelemetry(logger, registry)
	performance := middleware.NewPerformance(logger)

	options := []simulation.ExecutorOption{
		simulation.WithClassifier(classifier),
		simulation.WithTelemetry(telemetry),
		simulation.WithPerformance(performance),
		simulation.WithMonitor(middleware.NewMonitor(logger, monitorFlags)),
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if store != nil {
		options = append(options, simulation.WithTradeSink(store), simulation.WithEquitySink(store), simulation.WithBarCache(store))
	}

	if cfg.Cache.RedisURL != "" {
		cache, client, err := redis.Dial(ctx, cfg.Cache.RedisURL, cfg.Cache.RedisPassword, cfg.Cache.TTL, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Close()
		}()
		options = append(options, simulation.WithBarCache(cache))
	}

	executor := simulation.NewExecutor(logger, source, options...)

	result, err := executor.Run(ctx, cfg.Request())
	if err != nil {
		return err
	}

	result.Report.Print(logger)
	telemetry.PrintStatistics()
	performance.PrintStatistics()

	if result.State.Position != nil {
		logger.Info("position still open", result.State.Position.Fields()...)
	}

	if cfg.Metrics.TextFile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.TextFile, registry); err != nil {
			return fmt.Errorf("unable to write metrics: %w", err)
		}
	}

	return nil
}

func openSource(ctx context.Context, cfg *config.Config) (datasource.TickSource, error) {
	switch cfg.Source.Kind {
	case config.SourceHistorical:
		reader, err := historical.Open(cfg.Source.Path, cfg.Instrument)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case config.SourceDuckDB:
		relation := cfg.Source.Relation
		dsn := cfg.Source.Path
		if relation == "" {
			relation, dsn = cfg.Source.Path, ""
		}
		reader, err := duckdb.OpenTickReader(ctx, dsn, relation)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case config.SourceSynthetic:
		generator, err := synthetic.NewTickGenerator(cfg.Source.Seed, cfg.Source.Synthetic.Options()...)
		if err != nil {
			return nil, err
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unsupported source %q", cfg.Source.Kind)
	}
}

type runStore interface {
	data.BarStore
	data.RunStore
}

func openStore(ctx context.Context, cfg *config.Config) (runStore, func(), error) {
	switch cfg.Storage.Kind {
	case config.StorageDuckDB:
		store, err := duckdb.NewStore(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.StorageParquet:
		store, err := parquet.NewStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
