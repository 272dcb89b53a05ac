package metricsrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository is an external-KV-backed Repository using the layout:
//
//	{prefix}:{node_id}:latest  — HASH of the latest snapshot's fields
//	{prefix}:{node_id}:history — LIST of JSON snapshots, newest first, LTRIM'd
//	{prefix}:{node_id}:latency — LIST of latency samples (ms), newest first, LTRIM'd
//
// Mutations are issued inside a transactional pipeline so a reader never
// observes a half-written snapshot.
type RedisRepository struct {
	client        *redis.Client
	prefix        string
	historyLimit  int
	latencyWindow int
}

// NewRedisRepository creates a Repository backed by client.
func NewRedisRepository(client *redis.Client, prefix string, historyLimit, latencyWindow int) *RedisRepository {
	if prefix == "" {
		prefix = "metrics"
	}
	if historyLimit <= 0 {
		historyLimit = 32
	}
	if latencyWindow <= 0 {
		latencyWindow = 100
	}
	return &RedisRepository{
		client:        client,
		prefix:        prefix,
		historyLimit:  historyLimit,
		latencyWindow: latencyWindow,
	}
}

func (r *RedisRepository) keyLatest(nodeID string) string  { return fmt.Sprintf("%s:%s:latest", r.prefix, nodeID) }
func (r *RedisRepository) keyHistory(nodeID string) string { return fmt.Sprintf("%s:%s:history", r.prefix, nodeID) }
func (r *RedisRepository) keyLatency(nodeID string) string { return fmt.Sprintf("%s:%s:latency", r.prefix, nodeID) }

type storedSnapshot struct {
	NodeID      string  `json:"node_id"`
	TimestampMS int64   `json:"timestamp_ms"`
	CPUUtil     float64 `json:"cpu_util"`
	MemUtil     float64 `json:"mem_util"`
	NetInBytes  uint64  `json:"net_in_bytes"`
	NetOutBytes uint64  `json:"net_out_bytes"`
}

func toStored(m NodeMetrics) storedSnapshot {
	return storedSnapshot{
		NodeID:      m.NodeID,
		TimestampMS: m.Timestamp.UnixMilli(),
		CPUUtil:     m.CPUUtil,
		MemUtil:     m.MemUtil,
		NetInBytes:  m.NetInBytes,
		NetOutBytes: m.NetOutBytes,
	}
}

func (s storedSnapshot) toMetrics() NodeMetrics {
	return NodeMetrics{
		NodeID:      s.NodeID,
		Timestamp:   time.UnixMilli(s.TimestampMS),
		CPUUtil:     s.CPUUtil,
		MemUtil:     s.MemUtil,
		NetInBytes:  s.NetInBytes,
		NetOutBytes: s.NetOutBytes,
	}
}

// Upsert implements Repository.
func (r *RedisRepository) Upsert(ctx context.Context, m NodeMetrics) error {
	stored := toStored(m)
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("metricsrepo: marshal snapshot: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.keyLatest(m.NodeID), map[string]any{
			"timestamp_ms":  stored.TimestampMS,
			"cpu_util":      stored.CPUUtil,
			"mem_util":      stored.MemUtil,
			"net_in_bytes":  stored.NetInBytes,
			"net_out_bytes": stored.NetOutBytes,
		})
		pipe.LPush(ctx, r.keyHistory(m.NodeID), payload)
		pipe.LTrim(ctx, r.keyHistory(m.NodeID), 0, int64(r.historyLimit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("metricsrepo: upsert %s: %w", m.NodeID, err)
	}
	return nil
}

// AddLatency implements Repository.
func (r *RedisRepository) AddLatency(ctx context.Context, nodeID string, latencyMS float64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.keyLatency(nodeID), strconv.FormatFloat(latencyMS, 'f', -1, 64))
		pipe.LTrim(ctx, r.keyLatency(nodeID), 0, int64(r.latencyWindow-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("metricsrepo: add_latency %s: %w", nodeID, err)
	}
	return nil
}

// GetLatest implements Repository.
func (r *RedisRepository) GetLatest(ctx context.Context, nodeID string) (*NodeMetrics, error) {
	vals, err := r.client.LRange(ctx, r.keyHistory(nodeID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("metricsrepo: get_latest %s: %w", nodeID, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	var stored storedSnapshot
	if err := json.Unmarshal([]byte(vals[0]), &stored); err != nil {
		return nil, fmt.Errorf("metricsrepo: decode snapshot %s: %w", nodeID, err)
	}

	samples, err := r.latencySamples(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	latest := stored.toMetrics()
	latest.LatencyMS = Percentile(samples, 95)
	return &latest, nil
}

// GetPrev implements Repository.
func (r *RedisRepository) GetPrev(ctx context.Context, nodeID string) (*NodeMetrics, error) {
	vals, err := r.client.LRange(ctx, r.keyHistory(nodeID), 1, 1).Result()
	if err != nil {
		return nil, fmt.Errorf("metricsrepo: get_prev %s: %w", nodeID, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	var stored storedSnapshot
	if err := json.Unmarshal([]byte(vals[0]), &stored); err != nil {
		return nil, fmt.Errorf("metricsrepo: decode snapshot %s: %w", nodeID, err)
	}
	prev := stored.toMetrics()
	return &prev, nil
}

// ListLatest implements Repository.
func (r *RedisRepository) ListLatest(ctx context.Context) ([]NodeMetrics, error) {
	nodeIDs, err := r.scanNodeIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodeIDs) == 0 {
		return nil, ErrNoTelemetry
	}

	result := make([]NodeMetrics, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		m, err := r.GetLatest(ctx, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			result = append(result, *m)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoTelemetry
	}
	return result, nil
}

func (r *RedisRepository) scanNodeIDs(ctx context.Context) ([]string, error) {
	pattern := fmt.Sprintf("%s:*:latest", r.prefix)
	var nodeIDs []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		nodeID := strings.TrimSuffix(strings.TrimPrefix(key, r.prefix+":"), ":latest")
		nodeIDs = append(nodeIDs, nodeID)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("metricsrepo: scan node ids: %w", err)
	}
	return nodeIDs, nil
}

func (r *RedisRepository) latencySamples(ctx context.Context, nodeID string) ([]float64, error) {
	vals, err := r.client.LRange(ctx, r.keyLatency(nodeID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("metricsrepo: latency samples %s: %w", nodeID, err)
	}
	samples := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		samples = append(samples, f)
	}
	return samples, nil
}
