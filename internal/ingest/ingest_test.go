package ingest

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc/peer"

	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/registry"
)

func peerContext(t *testing.T, addr string) context.Context {
	t.Helper()
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		t.Fatalf("resolve %s: %v", addr, err)
	}
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcpAddr})
}

func TestServer_PushMetrics_RegistersHostWhenPortPresent(t *testing.T) {
	repo := metricsrepo.NewMemoryRepository(16, 100)
	reg := registry.New()
	s := New(repo, reg, nil)

	ctx := peerContext(t, "10.0.0.5:54321")
	ack, err := s.PushMetrics(ctx, &NodeMetricsMessage{
		NodeID:  "node-a",
		CPUUtil: 0.4,
		MemUtil: 0.5,
		Port:    9090,
	})
	if err != nil {
		t.Fatalf("PushMetrics() error = %v", err)
	}
	if !ack.OK {
		t.Fatalf("ack.OK = false, want true")
	}

	ep, err := reg.GetEndpoint("node-a")
	if err != nil {
		t.Fatalf("GetEndpoint() error = %v", err)
	}
	if ep.Host != "10.0.0.5" || ep.Port != 9090 {
		t.Errorf("Endpoint = %+v, want host 10.0.0.5 port 9090", ep)
	}

	snap, err := repo.GetLatest(context.Background(), "node-a")
	if err != nil || snap == nil {
		t.Fatalf("GetLatest() = %v, %v", snap, err)
	}
	if snap.CPUUtil != 0.4 || snap.MemUtil != 0.5 {
		t.Errorf("Snapshot = %+v, want CPUUtil 0.4 MemUtil 0.5", snap)
	}
}

func TestServer_PushMetrics_NoPortLeavesRegistryUntouched(t *testing.T) {
	repo := metricsrepo.NewMemoryRepository(16, 100)
	reg := registry.New()
	s := New(repo, reg, nil)

	ctx := peerContext(t, "10.0.0.5:54321")
	if _, err := s.PushMetrics(ctx, &NodeMetricsMessage{NodeID: "node-a", CPUUtil: 0.1, MemUtil: 0.1}); err != nil {
		t.Fatalf("PushMetrics() error = %v", err)
	}

	if _, err := reg.GetEndpoint("node-a"); err != registry.ErrNodeNotFound {
		t.Errorf("GetEndpoint() error = %v, want ErrNodeNotFound", err)
	}
}

func TestServer_PushMetrics_NoPeerInfoSkipsRegistration(t *testing.T) {
	repo := metricsrepo.NewMemoryRepository(16, 100)
	reg := registry.New()
	s := New(repo, reg, nil)

	ack, err := s.PushMetrics(context.Background(), &NodeMetricsMessage{NodeID: "node-a", Port: 9090})
	if err != nil {
		t.Fatalf("PushMetrics() error = %v", err)
	}
	if !ack.OK {
		t.Fatalf("ack.OK = false, want true")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}
