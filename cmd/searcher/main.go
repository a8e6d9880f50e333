// Command searcher serves collection builds and BM25 memory queries over HTTP.
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

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/redis"
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
	slog.Info("starting memory service", "port", cfg.Server.Port, "root", cfg.Memory.Root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("collection_root", health.DirCheck(cfg.Memory.Root))

	opts := collection.OptionsFromConfig(cfg.Memory)
	opts.Metrics = m

	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
			break
		}
		defer redisClient.Close()
		opts.Cache = cache.New(cache.NewRedisBackend(redisClient, cfg.Redis.CacheTTL))
		checker.Register("redis", health.PingCheck(redisClient.Ping, true))
		slog.Info("query cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	case "memory":
		backend, err := cache.NewMemoryBackend(cfg.Cache.Size)
		if err != nil {
			slog.Error("failed to create query cache", "error", err)
			os.Exit(1)
		}
		opts.Cache = cache.New(backend)
		slog.Info("query cache enabled", "backend", "memory", "size", cfg.Cache.Size)
	default:
		slog.Info("query cache disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		builds := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt)
		defer builds.Close()
		queries := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MemoryEvents)
		defer queries.Close()

		collector := analytics.NewCollector(analytics.Router{Builds: builds, Queries: queries}, 10000)
		collector.Start(ctx)
		defer collector.Close()
		opts.Events = collector
		slog.Info("event publishing enabled",
			"brokers", cfg.Kafka.Brokers,
			"builds_topic", cfg.Kafka.Topics.IndexBuilt,
			"queries_topic", cfg.Kafka.Topics.MemoryEvents,
		)
	}

	if cfg.Postgres.Host != "" {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, build history disabled", "error", err)
		} else {
			defer pg.Close()
			history := analytics.NewHistoryStore(pg.DB)
			if err := history.EnsureSchema(ctx); err != nil {
				slog.Warn("build history disabled", "error", err)
			} else {
				opts.History = history
				checker.Register("postgres", health.PingCheck(pg.Ping, true))
			}
		}
	}

	mgr, err := collection.NewManager(opts)
	if err != nil {
		slog.Error("failed to create collection manager", "error", err)
		os.Exit(1)
	}
	if loaded, err := mgr.Discover(ctx); err != nil {
		slog.Warn("initial discovery failed", "error", err)
	} else {
		slog.Info("initial discovery complete", "loaded", loaded)
	}

	h := handler.New(mgr, opts.Cache, cfg.Memory.DefaultTopK, cfg.Memory.MaxTopK)

	mux := http.NewServeMux()
	h.Register(mux, middleware.RateLimit(cfg.Server.BuildRatePerSecond, cfg.Server.BuildBurst, middleware.PathValueKey("name")))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("memory service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("memory service stopped")
}
