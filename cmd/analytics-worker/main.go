package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/biovault-exchange/biovault-backend/internal/analytics/exporter"
	"github.com/biovault-exchange/biovault-backend/internal/analytics/worker"
	"github.com/biovault-exchange/biovault-backend/internal/analytics/writer"
	"github.com/biovault-exchange/biovault-backend/internal/history"
	"github.com/biovault-exchange/biovault-backend/pkg/bigquery"
	"github.com/biovault-exchange/biovault-backend/pkg/config"
	"github.com/biovault-exchange/biovault-backend/pkg/db"
	"github.com/biovault-exchange/biovault-backend/pkg/instance"
	"github.com/biovault-exchange/biovault-backend/pkg/logger"
	"github.com/biovault-exchange/biovault-backend/pkg/pubsub"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	analyticsWriter, err := writer.New(bqClient, writer.Config{
		DailyMetricsTable:  cfg.BigQuery.DailyMetricsTable,
		MetricsEventsTable: cfg.BigQuery.MetricsEventsTable,
	})
	requireResource(ctx, logg, "analytics bigquery writer", err)

	handler, err := worker.NewMetricsHandler(analyticsWriter)
	requireResource(ctx, logg, "analytics handler", err)

	service, err := worker.NewService(subscription, handler, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	// The exporter gets its own writer; writer buffers are not safe for
	// concurrent use.
	exportWriter, err := writer.New(bqClient, writer.Config{
		DailyMetricsTable:  cfg.BigQuery.DailyMetricsTable,
		MetricsEventsTable: cfg.BigQuery.MetricsEventsTable,
	})
	requireResource(ctx, logg, "export bigquery writer", err)

	historyRepo := history.NewRepository(dbClient.DB())
	snapshotExporter, err := exporter.New(historyRepo, exportWriter, logg, exporter.Config{})
	requireResource(ctx, logg, "daily metrics exporter", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "analytics worker ready")

	go func() {
		if err := snapshotExporter.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "daily metrics exporter stopped", err)
		}
	}()

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
