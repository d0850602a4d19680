package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qmodel/query-modelling-service/internal/analytics"
	"github.com/qmodel/query-modelling-service/internal/cache"
	"github.com/qmodel/query-modelling-service/internal/corpus"
	"github.com/qmodel/query-modelling-service/internal/handler"
	"github.com/qmodel/query-modelling-service/internal/modeller"
	"github.com/qmodel/query-modelling-service/internal/scorer"
	"github.com/qmodel/query-modelling-service/internal/session"
	"github.com/qmodel/query-modelling-service/pkg/config"
	"github.com/qmodel/query-modelling-service/pkg/health"
	"github.com/qmodel/query-modelling-service/pkg/kafka"
	"github.com/qmodel/query-modelling-service/pkg/logger"
	"github.com/qmodel/query-modelling-service/pkg/metrics"
	"github.com/qmodel/query-modelling-service/pkg/middleware"
	"github.com/qmodel/query-modelling-service/pkg/postgres"
	pkgredis "github.com/qmodel/query-modelling-service/pkg/redis"
)

const snapshotInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting query modelling service", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Corpus loading and range precomputation are blocking startup steps; the
	// service must not accept requests before they complete.
	store := corpus.NewStore()
	slog.Info("loading corpus labels", "path", cfg.Corpus.LabelPath)
	if err := store.Load(cfg.Corpus.LabelPath); err != nil {
		slog.Error("corpus load failed", "error", err)
		os.Exit(1)
	}
	if err := store.LoadArticleCount(cfg.Corpus.StatsPath); err != nil {
		slog.Error("article count load failed", "error", err)
		os.Exit(1)
	}
	rangeStart := time.Now()
	if err := store.ComputeRanges(ctx); err != nil {
		slog.Error("feature range computation failed", "error", err)
		os.Exit(1)
	}
	if m != nil {
		m.CorpusVocabularySize.Set(float64(store.VocabularySize()))
		m.CorpusArticleCount.Set(float64(store.ArticleCount()))
		m.RangeComputeSeconds.Set(time.Since(rangeStart).Seconds())
	}

	weights := scorer.Weights{
		Features: cfg.Weights.Features,
		Fields:   cfg.Weights.Fields,
	}
	engine := scorer.New(store, weights)
	qm := modeller.New(engine,
		cfg.Modelling.TopN,
		cfg.Modelling.DecayBase,
		cfg.Modelling.DecayScale,
	)
	sessions := session.NewStore()

	var resultCache *cache.ResultCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer producer.Close()
	collector := analytics.NewCollector(producer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	aggregator := analytics.NewAggregator(nil)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	aggregator.SetConsumer(consumer)
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	if db, err := postgres.New(cfg.Postgres); err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
	} else {
		defer db.Close()
		snapshots := analytics.NewStore(db)
		if prev, err := snapshots.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not read previous analytics snapshot", "error", err)
		} else if prev != nil {
			slog.Info("previous analytics snapshot found",
				"reformulations", prev.TotalReformulations,
				"modellings", prev.TotalModellings,
			)
		}
		snapshots.StartPeriodicSave(ctx, aggregator, snapshotInterval)
	}

	checker := health.NewChecker()
	checker.Register("corpus", func(ctx context.Context) health.ComponentHealth {
		if store.VocabularySize() > 0 && store.FeatureRanges() != nil {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d terms loaded", store.VocabularySize()),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "corpus not loaded"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(qm, weights, sessions, resultCache, collector, m)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.About)
	mux.HandleFunc("POST /query_reformulation", h.Reformulate)
	mux.HandleFunc("POST /query_modelling", h.Model)
	mux.HandleFunc("POST /query_modelling/{sessionID}", h.ModelSession)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	slog.Info("query modelling service listening", "addr", server.Addr)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		// Shutdown must finish before the deferred collector and client
		// closes run, or in-flight handlers would race them.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}

	slog.Info("query modelling service stopped")
}
