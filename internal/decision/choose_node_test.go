package decision

import (
	"context"
	"testing"
	"time"

	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/registry"
	"balancer-gateway/pkg/cache"
)

func TestChooseNode_RankNodes(t *testing.T) {
	ctx := context.Background()
	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	resolver := NewResolver()

	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-a", CPUUtil: 0.1, MemUtil: 0.1})
	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-b", CPUUtil: 0.9, MemUtil: 0.9})
	reg.Update("node-a", "10.0.0.1", 8080)
	reg.Update("node-b", "10.0.0.2", 8080)

	cn := NewChooseNode(repo, reg, resolver, 0.25, 500, nil)
	ranked, err := cn.RankNodes(ctx, RankRequest{})
	if err != nil {
		t.Fatalf("RankNodes() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}
	if ranked[0].NodeID != "node-a" {
		t.Errorf("top-ranked node = %s, want node-a (lower CPU/mem cost)", ranked[0].NodeID)
	}
}

func TestChooseNode_RankNodes_CachesWithinTTLForSameCandidateSet(t *testing.T) {
	ctx := context.Background()
	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	resolver := NewResolver()

	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-a", CPUUtil: 0.1, MemUtil: 0.1})
	reg.Update("node-a", "10.0.0.1", 8080)

	rankingCache := cache.MustNew(&cache.Options{Backend: cache.BackendMemory})
	cn := NewChooseNodeWithCache(repo, reg, resolver, 0.25, 500, rankingCache, time.Minute, nil)

	first, err := cn.RankNodes(ctx, RankRequest{})
	if err != nil {
		t.Fatalf("RankNodes() error = %v", err)
	}

	// A telemetry push for the same node within the TTL window should
	// not change the result: the cache key is unaffected by values, only
	// by the candidate set and strategy pair.
	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-a", CPUUtil: 0.9, MemUtil: 0.9})

	second, err := cn.RankNodes(ctx, RankRequest{})
	if err != nil {
		t.Fatalf("RankNodes() second call error = %v", err)
	}
	if second[0].Score != first[0].Score {
		t.Errorf("RankNodes() within TTL recomputed (score %v != cached score %v), want cache hit", second[0].Score, first[0].Score)
	}
}

func TestChooseNode_RankNodes_CandidateSetChangeInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	resolver := NewResolver()

	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-a", CPUUtil: 0.1, MemUtil: 0.1})
	reg.Update("node-a", "10.0.0.1", 8080)

	rankingCache := cache.MustNew(&cache.Options{Backend: cache.BackendMemory})
	cn := NewChooseNodeWithCache(repo, reg, resolver, 0.25, 500, rankingCache, time.Minute, nil)

	first, err := cn.RankNodes(ctx, RankRequest{})
	if err != nil {
		t.Fatalf("RankNodes() error = %v", err)
	}

	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-b", CPUUtil: 0.2, MemUtil: 0.2})
	reg.Update("node-b", "10.0.0.2", 8080)

	second, err := cn.RankNodes(ctx, RankRequest{})
	if err != nil {
		t.Fatalf("RankNodes() second call error = %v", err)
	}
	if len(second) == len(first) {
		t.Fatalf("RankNodes() after candidate set changed returned cached result (len %d), want a fresh ranking including the new node", len(second))
	}
}

func TestChooseNode_NoTelemetry(t *testing.T) {
	ctx := context.Background()
	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	resolver := NewResolver()

	cn := NewChooseNode(repo, reg, resolver, 0.25, 500, nil)
	if _, err := cn.RankNodes(ctx, RankRequest{}); err == nil {
		t.Fatal("RankNodes() on empty repository: expected error, got nil")
	}
}

func TestChooseNode_SkipsNodeMissingFromRegistry(t *testing.T) {
	ctx := context.Background()
	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	resolver := NewResolver()

	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-a", CPUUtil: 0.1})
	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-ghost", CPUUtil: 0.2})
	reg.Update("node-a", "10.0.0.1", 8080)
	// node-ghost has telemetry but no registered endpoint.

	cn := NewChooseNode(repo, reg, resolver, 0.25, 500, nil)
	ranked, err := cn.RankNodes(ctx, RankRequest{})
	if err != nil {
		t.Fatalf("RankNodes() error = %v", err)
	}
	if len(ranked) != 1 || ranked[0].NodeID != "node-a" {
		t.Errorf("ranked = %+v, want only node-a", ranked)
	}
}

func TestChooseNode_Execute_UnknownStrategy(t *testing.T) {
	ctx := context.Background()
	repo := metricsrepo.NewMemoryRepository(32, 100)
	reg := registry.New()
	resolver := NewResolver()

	repo.Upsert(ctx, metricsrepo.NodeMetrics{NodeID: "node-a", CPUUtil: 0.1})
	reg.Update("node-a", "10.0.0.1", 8080)

	cn := NewChooseNode(repo, reg, resolver, 0.25, 500, nil)
	if _, err := cn.Execute(ctx, RankRequest{BalancerStrategy: "nope"}); err == nil {
		t.Fatal("Execute() with unknown strategy: expected error, got nil")
	}
}
