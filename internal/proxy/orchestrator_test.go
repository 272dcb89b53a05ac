package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"balancer-gateway/internal/decision"
	"balancer-gateway/internal/envelope"
	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/registry"
	"balancer-gateway/internal/replication"
	"balancer-gateway/pkg/apperror"
)

func newTestOrchestrator(t *testing.T, servers map[string]*httptest.Server) (*Orchestrator, metricsrepo.Repository) {
	t.Helper()

	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	ctx := context.Background()

	for nodeID, srv := range servers {
		u, err := url.Parse(srv.URL)
		if err != nil {
			t.Fatalf("parse %s: %v", srv.URL, err)
		}
		host, portStr, err := splitHostPortTest(u.Host)
		if err != nil {
			t.Fatalf("split host/port: %v", err)
		}
		reg.Update(nodeID, host, portStr)
		if err := repo.Upsert(ctx, metricsrepo.NodeMetrics{
			NodeID:    nodeID,
			Timestamp: time.Now(),
			CPUUtil:   0.1,
			MemUtil:   0.1,
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	resolver := decision.NewResolver()
	chooseNode := decision.NewChooseNode(repo, reg, resolver, 1.0, 200.0, nil)
	runner := replication.NewRunner(nil, repo, nil)

	return NewOrchestrator(chooseNode, runner, repo, ReplicationDefaults{
		DefaultStrategy:   "fixed",
		DefaultCompletion: "first",
		MaxReplicas:       replication.MaxCount,
	}, nil), repo
}

func splitHostPortTest(hostport string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, err
	}
	return host, uint16(port), nil
}

func baseBRS() envelope.BRS {
	return envelope.BRS{Service: "checkout", Deadline: time.Second}
}

func TestOrchestrator_Direct_SingleNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t, map[string]*httptest.Server{"node-a": srv})

	outcome, err := o.Handle(context.Background(), replication.Command{Method: "GET", Path: "/x"}, baseBRS())
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if outcome.Result.Status != http.StatusOK || string(outcome.Result.Body) != "ok" {
		t.Errorf("Result = %+v, want status 200 body ok", outcome.Result)
	}
	if outcome.Fanout != 1 {
		t.Errorf("Fanout = %d, want 1", outcome.Fanout)
	}
}

func TestOrchestrator_Direct_NoTelemetry(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]*httptest.Server{})

	_, err := o.Handle(context.Background(), replication.Command{Method: "GET", Path: "/x"}, baseBRS())
	if !apperror.Is(err, apperror.CodeNoTelemetry) {
		t.Fatalf("error = %v, want CodeNoTelemetry", err)
	}
}

func TestOrchestrator_Replicated_FixedFanout(t *testing.T) {
	srvA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("a"))
	}))
	defer srvA.Close()
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("b"))
	}))
	defer srvB.Close()

	o, _ := newTestOrchestrator(t, map[string]*httptest.Server{"node-a": srvA, "node-b": srvB})

	count := 2
	brs := baseBRS()
	brs.ReplicationsCount = &count

	outcome, err := o.Handle(context.Background(), replication.Command{Method: "GET", Path: "/x"}, brs)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if outcome.Fanout != 2 {
		t.Errorf("Fanout = %d, want 2", outcome.Fanout)
	}
	if outcome.Result.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", outcome.Result.Status)
	}
}

func TestOrchestrator_Replicated_UnknownStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t, map[string]*httptest.Server{"node-a": srv})

	brs := baseBRS()
	brs.ReplicationsStrategy = "bogus"

	_, err := o.Handle(context.Background(), replication.Command{Method: "GET", Path: "/x"}, brs)
	if !apperror.Is(err, apperror.CodeUnknownReplicationStrat) {
		t.Fatalf("error = %v, want CodeUnknownReplicationStrat", err)
	}
}
