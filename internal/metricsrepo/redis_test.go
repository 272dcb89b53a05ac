package metricsrepo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func skipIfNoRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_TEST_PASSWORD"),
	})
}

func TestRedisRepository_UpsertAndGetLatest(t *testing.T) {
	client := skipIfNoRedis(t)
	defer client.Close()

	repo := NewRedisRepository(client, "test_metrics_upsert", 32, 100)
	ctx := context.Background()
	defer client.Del(ctx, repo.keyLatest("node-a"), repo.keyHistory("node-a"), repo.keyLatency("node-a"))

	now := time.Unix(1700000000, 0)
	if err := repo.Upsert(ctx, NodeMetrics{NodeID: "node-a", Timestamp: now, CPUUtil: 0.5, MemUtil: 0.4}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	m, err := repo.GetLatest(ctx, "node-a")
	if err != nil {
		t.Fatalf("GetLatest() error: %v", err)
	}
	if m == nil {
		t.Fatal("GetLatest() = nil, want snapshot")
	}
	if m.CPUUtil != 0.5 || m.MemUtil != 0.4 {
		t.Errorf("GetLatest() = %+v, want CPUUtil=0.5 MemUtil=0.4", m)
	}
}

func TestRedisRepository_GetPrev(t *testing.T) {
	client := skipIfNoRedis(t)
	defer client.Close()

	repo := NewRedisRepository(client, "test_metrics_prev", 32, 100)
	ctx := context.Background()
	defer client.Del(ctx, repo.keyLatest("node-a"), repo.keyHistory("node-a"), repo.keyLatency("node-a"))

	repo.Upsert(ctx, NodeMetrics{NodeID: "node-a", CPUUtil: 0.1})
	if m, _ := repo.GetPrev(ctx, "node-a"); m != nil {
		t.Fatalf("GetPrev() with single snapshot = %+v, want nil", m)
	}

	repo.Upsert(ctx, NodeMetrics{NodeID: "node-a", CPUUtil: 0.2})
	m, err := repo.GetPrev(ctx, "node-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m.CPUUtil != 0.1 {
		t.Errorf("GetPrev() = %+v, want CPUUtil=0.1", m)
	}
}

func TestRedisRepository_HistoryTrimsAtLimit(t *testing.T) {
	client := skipIfNoRedis(t)
	defer client.Close()

	repo := NewRedisRepository(client, "test_metrics_trim", 3, 100)
	ctx := context.Background()
	defer client.Del(ctx, repo.keyLatest("node-a"), repo.keyHistory("node-a"), repo.keyLatency("node-a"))

	for i := 0; i < 5; i++ {
		repo.Upsert(ctx, NodeMetrics{NodeID: "node-a", CPUUtil: float64(i)})
	}

	length, err := client.LLen(ctx, repo.keyHistory("node-a")).Result()
	if err != nil {
		t.Fatalf("LLen() error: %v", err)
	}
	if length != 3 {
		t.Errorf("history length = %d, want 3", length)
	}
}

func TestRedisRepository_AddLatencyTrimsAtLimit(t *testing.T) {
	client := skipIfNoRedis(t)
	defer client.Close()

	repo := NewRedisRepository(client, "test_metrics_latency", 32, 3)
	ctx := context.Background()
	defer client.Del(ctx, repo.keyLatest("node-a"), repo.keyHistory("node-a"), repo.keyLatency("node-a"))

	for i := 1; i <= 5; i++ {
		if err := repo.AddLatency(ctx, "node-a", float64(i)); err != nil {
			t.Fatalf("AddLatency() error: %v", err)
		}
	}

	length, err := client.LLen(ctx, repo.keyLatency("node-a")).Result()
	if err != nil {
		t.Fatalf("LLen() error: %v", err)
	}
	if length != 3 {
		t.Errorf("latency window length = %d, want 3", length)
	}
}

func TestRedisRepository_ListLatest(t *testing.T) {
	client := skipIfNoRedis(t)
	defer client.Close()

	repo := NewRedisRepository(client, "test_metrics_list", 32, 100)
	ctx := context.Background()
	defer func() {
		client.Del(ctx, repo.keyLatest("node-a"), repo.keyHistory("node-a"), repo.keyLatency("node-a"))
		client.Del(ctx, repo.keyLatest("node-b"), repo.keyHistory("node-b"), repo.keyLatency("node-b"))
	}()

	if _, err := repo.ListLatest(ctx); err != ErrNoTelemetry {
		t.Fatalf("ListLatest() on empty repo error = %v, want ErrNoTelemetry", err)
	}

	repo.Upsert(ctx, NodeMetrics{NodeID: "node-a"})
	repo.Upsert(ctx, NodeMetrics{NodeID: "node-b"})

	all, err := repo.ListLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListLatest() length = %d, want 2", len(all))
	}
}
