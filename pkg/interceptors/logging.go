package interceptors

import (
	"context"
	"time"

	"balancer-gateway/pkg/logger"
	"balancer-gateway/pkg/telemetry"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs every PushMetrics call this gateway's gRPC
// listener handles — the only RPC registered on it (internal/ingest's
// Telemetry service) — tagging the log line with the reporting node's ID
// when the decoded request carries one.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		duration := time.Since(start)

		st, _ := status.FromError(err)
		code := st.Code().String()

		args := []any{"method", info.FullMethod, "duration_ms", duration.Milliseconds(), "code", code}
		if n, ok := req.(telemetry.NodeIdentifiable); ok {
			args = append(args, "node_id", n.TelemetryNodeID())
		}

		if err != nil {
			logger.Log.Error("PushMetrics call failed", append(args, "error", err.Error())...)
		} else {
			logger.Log.Info("PushMetrics call completed", args...)
		}

		return resp, err
	}
}

// StreamLoggingInterceptor is the streaming counterpart, kept for parity
// with pkg/server's interceptor chain even though this module registers
// no streaming RPC today.
func StreamLoggingInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		err := handler(srv, ss)

		duration := time.Since(start)

		if err != nil {
			logger.Log.Error("gRPC stream failed",
				"method", info.FullMethod,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			logger.Log.Info("gRPC stream completed",
				"method", info.FullMethod,
				"duration_ms", duration.Milliseconds(),
			)
		}

		return err
	}
}
