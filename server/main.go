package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/funnel"
	"github.com/meikuraledutech/funnel/api"
	"github.com/meikuraledutech/funnel/config"
	"github.com/meikuraledutech/funnel/memory"
	"github.com/meikuraledutech/funnel/metrics"
	"github.com/meikuraledutech/funnel/postgres"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	var store funnel.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store = memory.New()
	default:
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	h := api.New(store, logger, metrics.NewCollector("funnel"), cfg.AggregateWorkers,
		api.ExposeMetrics(cfg.EnableMetrics),
	)
	app := api.NewApp(h)

	logger.Info("starting server",
		zap.String("address", cfg.ServerAddress),
		zap.String("store", cfg.StoreDriver),
		zap.String("environment", cfg.Environment),
		zap.Bool("metrics", cfg.EnableMetrics),
	)
	if err := app.Listen(cfg.ServerAddress); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}

// newLogger builds a production logger in production and a development
// logger otherwise, both at the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
