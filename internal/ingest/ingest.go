package ingest

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc/peer"

	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/registry"
)

// Server implements TelemetryServer against a metrics repository and the
// endpoint registry the choose-node use case reads from.
type Server struct {
	repo     metricsrepo.Repository
	registry *registry.Registry
	log      *slog.Logger
}

// New wires a Server from its dependencies.
func New(repo metricsrepo.Repository, reg *registry.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{repo: repo, registry: reg, log: log}
}

// PushMetrics records a node's latest utilization snapshot and, when the
// caller advertises a listen port, updates the registry with the peer's
// observed IP as that node's host (spec §6: "peer IP is used as host for
// registry update when port is present"). A write failure is logged and
// swallowed per spec §7, never surfaced as an RPC error: a node pushing
// telemetry is better served by a quiet ack than a hard failure that sends
// it into backoff.
func (s *Server) PushMetrics(ctx context.Context, in *NodeMetricsMessage) (*AckMessage, error) {
	if in.Port != 0 {
		if host, ok := peerHost(ctx); ok {
			s.registry.Update(in.NodeID, host, uint16(in.Port))
		}
	}

	ts := time.Now()
	if in.TimestampUnixMS > 0 {
		ts = time.UnixMilli(in.TimestampUnixMS)
	}

	err := s.repo.Upsert(ctx, metricsrepo.NodeMetrics{
		NodeID:      in.NodeID,
		Timestamp:   ts,
		CPUUtil:     in.CPUUtil,
		MemUtil:     in.MemUtil,
		NetInBytes:  in.NetInBytes,
		NetOutBytes: in.NetOutBytes,
		LatencyMS:   in.LatencyMS,
	})
	if err != nil {
		s.log.Warn("failed to record pushed telemetry", "node_id", in.NodeID, "error", err)
		return &AckMessage{OK: false}, nil
	}

	return &AckMessage{OK: true}, nil
}

// peerHost extracts the caller's IP from ctx's gRPC peer info, stripping
// the port the connection happened to originate from.
func peerHost(ctx context.Context) (string, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "", false
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String(), true
	}
	return host, true
}
