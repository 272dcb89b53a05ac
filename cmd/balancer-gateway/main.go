// Package main is the entry point for balancer-gateway: a metrics-aware
// reverse proxy that ranks candidate replicas by an MCDM kernel and
// optionally fans a request out to several of them under a completion
// policy.
//
// balancer-gateway runs two servers from one process:
//
//   - an HTTP server on http.port that proxies every path except
//     /stats, /docs, /openapi.json, /redoc (those three resolve to 404:
//     this module carries no documentation server)
//   - a gRPC server on grpc.port that accepts PushMetrics telemetry
//     pushes from the nodes it balances across
//
// Configuration is loaded with the same priority as the teacher's
// services: environment variables (BALANCER_ prefix), then config.yaml in
// the standard search locations, then the defaults in pkg/config/loader.go.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"balancer-gateway/internal/decision"
	"balancer-gateway/internal/ingest"
	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/proxy"
	"balancer-gateway/internal/registry"
	"balancer-gateway/internal/replication"
	"balancer-gateway/internal/statsview"
	"balancer-gateway/pkg/cache"
	"balancer-gateway/pkg/config"
	"balancer-gateway/pkg/logger"
	"balancer-gateway/pkg/metrics"
	"balancer-gateway/pkg/ratelimit"
	"balancer-gateway/pkg/server"
	"balancer-gateway/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("balancer-gateway", 50051)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	logger.Log = logger.WithService(cfg.App.Name)

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.App.Name)
	if m := metrics.Get(); m != nil {
		m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	}

	repo := buildRepository(cfg)
	nodeRegistry := registry.New()
	resolver := decision.NewResolverWithConfig(cfg.Decision.AIRMIterations, cfg.Decision.DefaultBalancerStrategy, cfg.Decision.DefaultWeightsStrategy)
	chooseNode := buildChooseNode(cfg, repo, nodeRegistry, resolver)
	runner := replication.NewRunner(nil, repo, logger.Log)

	orchestrator := proxy.NewOrchestrator(chooseNode, runner, repo, proxy.ReplicationDefaults{
		DefaultStrategy:   cfg.Replication.DefaultStrategy,
		DefaultCompletion: cfg.Replication.DefaultCompletion,
		Adaptive:          cfg.Replication.Adaptive,
		AdaptiveLambda:    cfg.Replication.AdaptiveLambda,
		MaxReplicas:       cfg.Replication.MaxReplicas,
	}, logger.Log)

	stats := statsview.New(cfg.Repository.StatsEMAAlpha)
	startStatsFeed(ctx, repo, stats)

	handler := proxy.NewHandler(orchestrator, stats, logger.Log)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(&ratelimit.Config{
			Requests:        cfg.RateLimit.Requests,
			Window:          cfg.RateLimit.Window,
			Strategy:        cfg.RateLimit.Strategy,
			Backend:         cfg.RateLimit.Backend,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
			RedisAddr:       cfg.RateLimit.RedisAddr,
		})
		if err != nil {
			logger.Log.Warn("failed to create HTTP rate limiter, continuing without it", "error", err)
			limiter = nil
		}
	}

	var httpHandler http.Handler = handler
	httpHandler = proxy.RateLimit(limiter)(httpHandler)
	httpHandler = proxy.CORS(cfg.HTTP.CORS)(httpHandler)

	// h2c lets clients reach the proxy over cleartext HTTP/2 as well as
	// HTTP/1.1, same as the teacher's gateway-svc front door. It applies
	// only to this inbound listener, not to calls out to backend nodes.
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      h2c.NewHandler(httpHandler, &http2.Server{}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	grpcSrv := server.New(cfg)
	ingest.RegisterTelemetryServer(grpcSrv.GetEngine(), ingest.New(repo, nodeRegistry, logger.Log))

	go func() {
		logger.Info("starting HTTP proxy server", "port", cfg.HTTP.Port, "environment", cfg.App.Environment)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("HTTP proxy server failed", "error", err)
		}
	}()

	go func() {
		// grpcSrv.Run blocks: it starts the metrics server itself (if
		// enabled) and owns its own SIGINT/SIGTERM handling, independent
		// of the HTTP shutdown path below.
		logger.Info("starting gRPC telemetry ingestion server", "port", cfg.GRPC.Port)
		if err := grpcSrv.Run(); err != nil {
			logger.Log.Error("gRPC ingestion server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down HTTP proxy server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("HTTP proxy server shutdown error", "error", err)
	}
}

// buildRepository constructs the metrics repository backend named by
// repository.backend, falling back to the in-memory implementation for an
// unrecognized value.
func buildRepository(cfg *config.Config) metricsrepo.Repository {
	if cfg.Repository.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Address(),
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		logger.Info("using redis metrics repository", "addr", cfg.Cache.Address())
		return metricsrepo.NewRedisRepository(client, cfg.Repository.Prefix, cfg.Repository.HistoryLimit, cfg.Repository.LatencyWindow)
	}
	logger.Info("using in-memory metrics repository")
	return metricsrepo.NewMemoryRepository(cfg.Repository.HistoryLimit, cfg.Repository.LatencyWindow)
}

// buildChooseNode wires the ranking cache when cfg.Cache is enabled. The
// configured TTL is expected to stay well under the node collector
// interval, so a ranking is reused only for requests that land in the same
// sub-interval burst, not across telemetry refreshes.
func buildChooseNode(cfg *config.Config, repo metricsrepo.Repository, reg *registry.Registry, resolver *decision.Resolver) *decision.ChooseNode {
	if !cfg.Cache.Enabled {
		return decision.NewChooseNode(repo, reg, resolver, cfg.Node.CollectorInterval.Seconds(), cfg.Node.SLALatencyMS, logger.Log)
	}
	rankingCache, err := cache.New(cache.FromConfig(&cfg.Cache))
	if err != nil {
		logger.Log.Warn("failed to create ranking cache, continuing without it", "error", err)
		return decision.NewChooseNode(repo, reg, resolver, cfg.Node.CollectorInterval.Seconds(), cfg.Node.SLALatencyMS, logger.Log)
	}
	logger.Info("ranking cache enabled", "backend", cfg.Cache.Driver, "ttl", cfg.Cache.DefaultTTL)
	return decision.NewChooseNodeWithCache(repo, reg, resolver, cfg.Node.CollectorInterval.Seconds(), cfg.Node.SLALatencyMS, rankingCache, cfg.Cache.DefaultTTL, logger.Log)
}

// startStatsFeed periodically folds the repository's latest snapshots into
// the EMA view /stats serves, decoupling stats observation from the
// request path the way the teacher decouples its own background collectors
// from request handling.
func startStatsFeed(ctx context.Context, repo metricsrepo.Repository, stats *statsview.View) {
	ticker := time.NewTicker(2 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshots, err := repo.ListLatest(ctx)
				if err != nil {
					if err != metricsrepo.ErrNoTelemetry {
						logger.Log.Warn("stats feed failed to list telemetry", "error", err)
					}
					continue
				}
				for _, snap := range snapshots {
					stats.ObserveUtilization(snap.NodeID, snap.CPUUtil, snap.MemUtil)
					stats.ObserveLatency(snap.NodeID, snap.LatencyMS)
				}
			}
		}
	}()
}
