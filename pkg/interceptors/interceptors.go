package interceptors

import (
	"google.golang.org/grpc"

	"balancer-gateway/pkg/ratelimit"
	"balancer-gateway/pkg/telemetry"
)

// ServerConfig selects which interceptors pkg/server wraps the gRPC
// listener with.
type ServerConfig struct {
	ServiceName   string
	EnableTracing bool
	RateLimiter   ratelimit.Limiter
	KeyExtractor  ratelimit.KeyExtractor
}

// UnaryServerInterceptors builds the chain PushMetrics runs through:
// recovery first so a panic never escapes as a dropped connection, then
// rate limiting before any other work is spent on a call that's going to
// be rejected anyway, then tracing, metrics, logging, and finally
// validation.
func UnaryServerInterceptors(cfg *ServerConfig) grpc.UnaryServerInterceptor {
	interceptors := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(),
	}

	if cfg.RateLimiter != nil {
		interceptors = append(interceptors, RateLimitInterceptor(cfg.RateLimiter, cfg.KeyExtractor))
	}

	if cfg.EnableTracing {
		interceptors = append(interceptors, telemetry.UnaryServerInterceptor())
	}

	interceptors = append(interceptors, MetricsInterceptor(cfg.ServiceName))
	interceptors = append(interceptors, LoggingInterceptor())
	interceptors = append(interceptors, ValidationInterceptor())

	return chainUnaryInterceptors(interceptors...)
}

// StreamServerInterceptors is the streaming counterpart, kept for parity
// even though this module registers no streaming RPC today.
func StreamServerInterceptors(cfg *ServerConfig) grpc.StreamServerInterceptor {
	interceptors := []grpc.StreamServerInterceptor{
		StreamRecoveryInterceptor(),
	}

	if cfg.RateLimiter != nil {
		interceptors = append(interceptors, StreamRateLimitInterceptor(cfg.RateLimiter, cfg.KeyExtractor))
	}

	if cfg.EnableTracing {
		interceptors = append(interceptors, telemetry.StreamServerInterceptor())
	}

	interceptors = append(interceptors,
		StreamMetricsInterceptor(cfg.ServiceName),
		StreamLoggingInterceptor(),
	)

	return chainStreamInterceptors(interceptors...)
}
