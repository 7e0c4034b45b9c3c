package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/peter-kozarec/flowdelta/internal/dbg"
	"github.com/peter-kozarec/flowdelta/pkg/config"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	envFile := flag.String("env", ".env", "optional env file with FLOWDELTA_ overrides")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		dbg.NewDevLogger().Fatal("unable to load configuration", zap.Error(err))
	}

	var sink *dbg.FileSink
	if cfg.Logging.File != "" {
		sink = &dbg.FileSink{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   true,
		}
	}

	logger, err := dbg.NewLogger(cfg.Logging.Level, cfg.Logging.Development, sink)
	if err != nil {
		dbg.NewDevLogger().Fatal("unable to create logger", zap.Error(err))
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info("flowdelta backtest", cfg.Fields()...)
	defer logger.Info("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("backtest failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
