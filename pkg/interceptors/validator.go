package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Validator is implemented by a decoded gRPC request that can reject
// itself before reaching its handler. internal/ingest's NodeMetricsMessage
// implements it to catch a malformed PushMetrics snapshot.
type Validator interface {
	Validate() error
}

// ValidationInterceptor runs last in the chain, after tracing/metrics/
// logging have already observed the call, so a rejected PushMetrics
// snapshot still shows up in both.
func ValidationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if v, ok := req.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
			}
		}

		return handler(ctx, req)
	}
}
