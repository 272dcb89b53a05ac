package ingest

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName and MethodPushMetrics name the hand-rolled gRPC descriptor
// below, playing the role a .proto file's service/rpc declarations would.
const (
	ServiceName       = "balancer.telemetry.v1.Telemetry"
	MethodPushMetrics = "PushMetrics"
)

// TelemetryServer is the interface grpc.Server.RegisterService checks the
// registered implementation against.
type TelemetryServer interface {
	PushMetrics(context.Context, *NodeMetricsMessage) (*AckMessage, error)
}

// ServiceDesc is the hand-constructed counterpart to what protoc-gen-go-grpc
// would emit for a one-RPC "Telemetry" service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodPushMetrics,
			Handler:    pushMetricsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/ingest/telemetry.proto",
}

// RegisterTelemetryServer registers srv as the handler for the Telemetry
// service on s.
func RegisterTelemetryServer(s *grpc.Server, srv TelemetryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func pushMetricsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(NodeMetricsMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).PushMetrics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/" + MethodPushMetrics,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).PushMetrics(ctx, req.(*NodeMetricsMessage))
	}
	return interceptor(ctx, in, info, handler)
}
