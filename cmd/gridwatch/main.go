package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gridwatch-lab/gridwatch/internal/config"
	"github.com/gridwatch-lab/gridwatch/internal/core/storage/postgres"
	"github.com/gridwatch-lab/gridwatch/internal/notify"
	"github.com/gridwatch-lab/gridwatch/internal/pipeline"
	"github.com/gridwatch-lab/gridwatch/internal/query"
	"github.com/gridwatch-lab/gridwatch/internal/server"
)

func main() {
	configPath := flag.String("config", "gridwatch.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"rollup_enabled", cfg.Rollup.Enabled,
		"rollup_schedule", cfg.Rollup.Schedule,
		"mqtt_enabled", cfg.MQTT.Enabled,
	)

	// 2. Initialize Storage: one pool for the pipeline write path, one for
	// the read API.
	pipelineDB, err := postgres.NewAdapter(
		cfg.Database.DSN,
		"pipeline",
		cfg.Database.PipelinePool.MaxOpenConns,
		cfg.Database.PipelinePool.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize pipeline database pool", "error", err)
		os.Exit(1)
	}
	defer pipelineDB.Close()

	readDB, err := postgres.NewAdapter(
		cfg.Database.DSN,
		"read",
		cfg.Database.ReadPool.MaxOpenConns,
		cfg.Database.ReadPool.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize read database pool", "error", err)
		os.Exit(1)
	}
	defer readDB.Close()

	readingStore, err := postgres.NewReadingAdapter(pipelineDB.DB())
	if err != nil {
		slog.Error("Failed to prepare reading adapter", "error", err)
		os.Exit(1)
	}
	defer readingStore.Close()

	pipelineAggStore := postgres.NewAggregateAdapter(pipelineDB.DB())
	readAggStore := postgres.NewAggregateAdapter(readDB.DB())
	runStore := postgres.NewRunMarkerAdapter(pipelineDB.DB())

	// 3. Initialize Notification
	var notifier notify.ResetPublisher = notify.NopPublisher{}
	if cfg.MQTT.Enabled {
		notifier = notify.NewMQTTPublisher(notify.MQTTOptions{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			Payload:   cfg.MQTT.Payload,
		})
	}

	// 4. Initialize Rollup Pipeline
	rollupPipeline := pipeline.New(
		pipeline.NewIdempotencyGuard(runStore),
		notifier,
		pipeline.NewAggregator(readingStore, pipelineAggStore),
		pipeline.NewPruner(readingStore, pipelineAggStore),
		pipeline.WithStageTimeout(cfg.Rollup.StageTimeout()),
	)

	// 5. Initialize Query API
	loc := time.UTC
	if cfg.Rollup.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Rollup.Timezone)
		if err != nil {
			slog.Error("Invalid timezone", "timezone", cfg.Rollup.Timezone, "error", err)
			os.Exit(1)
		}
	}

	querySvc := query.NewService(readAggStore, loc)

	var runner query.RollupRunner
	if cfg.Rollup.Enabled {
		runner = rollupPipeline
	}
	queryHandler := query.NewHandler(querySvc, runner)

	// 6. Initialize Server
	srv := server.New(
		fmtAddr(cfg.Server.Host, cfg.Server.Port),
		map[string]*sql.DB{"pipeline": pipelineDB.DB(), "read": readDB.DB()},
		cfg.Server.Mode,
	)
	if cfg.RateLimit.Enabled {
		srv.Engine.Use(server.RateLimit(cfg.RateLimit.Limit, cfg.RateLimit.Window()))
	}
	queryHandler.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Rollup.Enabled {
		scheduler, schedErr := pipeline.NewScheduler(rollupPipeline, pipeline.SchedulerOptions{
			Schedule:   cfg.Rollup.Schedule,
			Timezone:   cfg.Rollup.Timezone,
			RunOnStart: cfg.Rollup.RunOnStart,
		})
		if schedErr != nil {
			slog.Error("Failed to build rollup scheduler", "error", schedErr)
			os.Exit(1)
		}
		group.Go(func() error {
			return scheduler.Start(groupCtx)
		})
	} else {
		slog.Info("Rollup pipeline disabled by config")
	}

	group.Go(func() error {
		return srv.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
