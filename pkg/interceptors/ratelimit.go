package interceptors

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"balancer-gateway/pkg/logger"
	"balancer-gateway/pkg/ratelimit"
)

// RateLimitInterceptor throttles PushMetrics by the reporting node's
// address. Telemetry-reporting nodes connect to the gRPC listener
// directly rather than through an HTTP reverse proxy, so there is no
// X-Forwarded-For to key on; metadataMap is built from incoming gRPC
// metadata for keyExtractor's benefit, but the peer address pulled off
// the connection itself is the one piece DefaultKeyExtractor can't get
// any other way, so it is injected as :authority before extraction.
func RateLimitInterceptor(limiter ratelimit.Limiter, keyExtractor ratelimit.KeyExtractor) grpc.UnaryServerInterceptor {
	if keyExtractor == nil {
		keyExtractor = ratelimit.DefaultKeyExtractor
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		metadataMap := metadataMapFromContext(ctx)
		key := keyExtractor(ctx, info.FullMethod, metadataMap)

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.Log.Warn("rate limit check failed, failing open", "error", err, "key", key)
			return handler(ctx, req)
		}

		if !allowed {
			limitInfo, infoErr := limiter.GetInfo(ctx, key)
			if infoErr != nil {
				logger.Log.Warn("failed to get rate limit info", "error", infoErr, "key", key)
				limitInfo = &ratelimit.LimitInfo{
					Limit:   0,
					ResetAt: time.Now().Add(time.Minute),
				}
			}

			logger.Log.Warn("PushMetrics rate limit exceeded", "node_key", key, "limit", limitInfo.Limit)

			header := metadata.Pairs(
				"x-ratelimit-limit", fmt.Sprintf("%d", limitInfo.Limit),
				"x-ratelimit-remaining", "0",
				"x-ratelimit-reset", limitInfo.ResetAt.Format(time.RFC3339),
			)
			if err := grpc.SetHeader(ctx, header); err != nil {
				logger.Log.Debug("failed to set rate limit headers", "error", err)
			}

			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %d requests per %v", limitInfo.Limit, time.Until(limitInfo.ResetAt))
		}

		return handler(ctx, req)
	}
}

// StreamRateLimitInterceptor is the streaming counterpart of
// RateLimitInterceptor. Nothing in this module registers a streaming RPC
// today, but pkg/server wires it alongside the unary path so a future
// streaming telemetry feed (e.g. a watch-style push) is throttled the
// same way from day one.
func StreamRateLimitInterceptor(limiter ratelimit.Limiter, keyExtractor ratelimit.KeyExtractor) grpc.StreamServerInterceptor {
	if keyExtractor == nil {
		keyExtractor = ratelimit.DefaultKeyExtractor
	}

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		key := keyExtractor(ctx, info.FullMethod, metadataMapFromContext(ctx))

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			return handler(srv, ss)
		}

		if !allowed {
			return status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(srv, ss)
	}
}

func metadataMapFromContext(ctx context.Context) map[string]string {
	md, _ := metadata.FromIncomingContext(ctx)
	metadataMap := make(map[string]string, len(md)+1)
	for k, v := range md {
		if len(v) > 0 {
			metadataMap[k] = v[0]
		}
	}
	if _, ok := metadataMap["x-forwarded-for"]; !ok {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			metadataMap[":authority"] = p.Addr.String()
		}
	}
	return metadataMap
}
