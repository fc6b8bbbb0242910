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
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer/publisher"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/matcher/handler"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/matching"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting matcher service",
		"port", cfg.Server.Port,
		"vector_store", cfg.VectorStore.Driver,
		"embedding_provider", cfg.Embedding.Provider,
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
		slog.Info("embedding cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
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
	slog.Info("vector store ready", "driver", cfg.VectorStore.Driver)

	analyzers, err := matching.NewReloader(cfg.Scoring)
	if err != nil {
		slog.Error("failed to load scoring data", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := analyzers.Watch(ctx); err != nil {
			slog.Warn("scoring data hot reload disabled", "error", err)
		}
	}()

	matchProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
	defer matchProducer.Close()
	collector := analytics.NewCollector(matchProducer, 10000, 100, time.Second)
	// Requests drained during shutdown still emit events; Close flushes them
	// once the server has stopped.
	collector.Start(context.WithoutCancel(ctx))
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.MatchEvents)

	profileProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ProfileUpdates)
	defer profileProducer.Close()

	engine := indexer.NewEngine(model, store, cfg.Chunking, cfg.Retrieval.Collections, m)
	ret := retriever.New(model, store, cfg.Retrieval, m)
	svc := matching.NewService(ret, model, analyzers,
		matching.WithEvents(collector),
		matching.WithSimilarityLimit(cfg.Embedding.SimilarityInputLimit),
		matching.WithMetrics(m),
	)
	h := handler.New(engine, ret, svc, analyzers,
		handler.WithEnqueuer(publisher.New(profileProducer)),
		handler.WithIndexTracker(collector),
		handler.WithMaxJobLength(cfg.Scoring.MaxJobLength),
	)

	checker := health.NewChecker("matcher", map[string]string{
		"embedding_model": cfg.Embedding.Model,
		"vector_store":    cfg.VectorStore.Driver,
	})
	checker.Register("vector_store", store.Ping, true)
	checker.Register("embedding_model", model.Ping, true)
	if redisClient != nil {
		checker.Register("redis", redisClient.Ping, false)
	} else {
		checker.Disabled("redis", "not configured, embedding cache off")
	}

	mux := http.NewServeMux()
	h.Register(mux)
	checker.Routes(mux)

	proxies, err := middleware.ParseProxies(cfg.Server.TrustedProxies)
	if err != nil {
		slog.Error("invalid server.trustedProxies", "error", err)
		os.Exit(1)
	}
	limiter := ratelimit.New(time.Minute)
	defer limiter.Close()

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(limiter, cfg.Server.RateLimit, proxies...)(chain)
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.Metrics(m)(chain)
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

	slog.Info("matcher service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped

	slog.Info("matcher service stopped")
}
