package interceptors

import (
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware/v2"
	"google.golang.org/grpc"
)

// chainUnaryInterceptors delegates to go-grpc-middleware's chaining helper
// rather than hand-rolling the same reversed-fold-over-handlers logic.
func chainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return grpcmiddleware.ChainUnaryServer(interceptors...)
}

// chainStreamInterceptors delegates to go-grpc-middleware's chaining helper.
func chainStreamInterceptors(interceptors ...grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
	return grpcmiddleware.ChainStreamServer(interceptors...)
}
