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

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	healthPort := flag.Int("health-port", 8082, "port for liveness and readiness probes, 0 disables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"vector_store", cfg.VectorStore.Driver,
		"embedding_model", cfg.Embedding.Model,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Port); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	var kv embedding.KV
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, embedding cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		kv = redisClient
	}

	loader, err := embedding.NewLoader(cfg.Embedding, kv, cfg.Redis.CacheTTL, m)
	if err != nil {
		slog.Error("failed to configure embedding model", "error", err)
		os.Exit(1)
	}
	model := embedding.NewHandle(loader)

	store, err := vectorindex.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open vector store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := indexer.NewEngine(model, store, cfg.Chunking, cfg.Retrieval.Collections, m)
	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.ProfileUpdates,
		consumer.HandleMessage(engine, m),
	)
	defer kafkaConsumer.Close()

	if *healthPort > 0 {
		checker := health.NewChecker("indexer", map[string]string{
			"topic":           cfg.Kafka.Topics.ProfileUpdates,
			"embedding_model": cfg.Embedding.Model,
		})
		checker.Register("vector_store", store.Ping, true)
		checker.Register("embedding_model", model.Ping, true)
		checker.Register("kafka", kafkaConsumer.Ping, false)
		if redisClient != nil {
			checker.Register("redis", redisClient.Ping, false)
		} else {
			checker.Disabled("redis", "not configured, embedding cache off")
		}
		go serveHealth(ctx, *healthPort, checker)
	}

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ProfileUpdates,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := consumer.New(kafkaConsumer).Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	st := kafkaConsumer.Stats()
	slog.Info("indexer service stopped", "handled", st.Handled, "dropped", st.Dropped)
}

func serveHealth(ctx context.Context, port int, checker *health.Checker) {
	mux := http.NewServeMux()
	checker.Routes(mux)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	slog.Info("health endpoint listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("health server failed", "error", err)
	}
}
