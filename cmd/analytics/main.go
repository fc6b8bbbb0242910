// Command analytics starts the standalone match analytics service.
//
// It consumes match and index events from Kafka, aggregates them in memory
// (match count, grade distribution, latency percentiles, most frequently
// missing skills, chunks indexed per source), and exposes an HTTP API at
// GET /api/v1/analytics. When PostgreSQL is reachable the aggregate is
// restored from the latest snapshot on start, snapshotted periodically and
// served at GET /api/v1/analytics/snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	group := flag.String("group", "careermatch-analytics", "kafka consumer group")
	snapshotEvery := flag.Duration("snapshot-interval", time.Minute, "how often to persist the aggregate")
	retention := flag.Duration("snapshot-retention", 30*24*time.Hour, "drop snapshots older than this, 0 keeps all")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker("analytics", map[string]string{
		"topic": cfg.Kafka.Topics.MatchEvents,
		"group": *group,
	})
	var handlerOpts []analytics.HandlerOption

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		checker.Disabled("postgres", "snapshots disabled")
	} else {
		defer db.Close()
		checker.Register("postgres", db.Ping, false)
		if store, err := aggregator.NewStore(ctx, db); err != nil {
			slog.Warn("analytics snapshot store unavailable", "error", err)
		} else {
			if last, err := store.Latest(ctx); err != nil {
				slog.Warn("could not restore previous aggregate", "error", err)
			} else if last != nil {
				agg.Restore(last.Stats)
				slog.Info("aggregate restored", "captured_at", last.CapturedAt, "total_matches", last.Stats.TotalMatches)
			}
			store.StartPeriodicSave(ctx, agg, *snapshotEvery, *retention)
			handlerOpts = append(handlerOpts, analytics.WithHistory(store))
		}
	}

	kafkaCfg := cfg.Kafka
	kafkaCfg.ConsumerGroup = *group
	consumer := kafka.NewConsumer(kafkaCfg, cfg.Kafka.Topics.MatchEvents, analytics.HandleEvent(agg))
	defer consumer.Close()
	agg.Attach(consumer)
	checker.Register("kafka", consumer.Ping, false)
	handlerOpts = append(handlerOpts, analytics.WithConsumer(consumer))

	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.MatchEvents, "group", *group)

	mux := http.NewServeMux()
	analytics.NewHandler(agg, handlerOpts...).Routes(mux)
	checker.Routes(mux)

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
	<-aggDone

	slog.Info("analytics service stopped")
}
