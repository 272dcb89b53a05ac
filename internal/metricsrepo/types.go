// Package metricsrepo stores per-node telemetry: the latest snapshot, a
// bounded history of past snapshots, and a sliding window of observed
// outbound latencies. It backs both the MCDM ranking input and the
// feedback loop that records latency after each replication runner pass.
package metricsrepo

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNoTelemetry is returned by ListLatest when the repository holds no
// snapshot for any node yet.
var ErrNoTelemetry = errors.New("metrics repository: no telemetry recorded")

// NodeMetrics is an immutable snapshot of a node's resource utilization at
// a point in time. LatencyMS is optional on ingestion; GetLatest always
// fills it in with the p95 of the node's latency window.
type NodeMetrics struct {
	NodeID      string
	Timestamp   time.Time
	CPUUtil     float64
	MemUtil     float64
	NetInBytes  uint64
	NetOutBytes uint64
	LatencyMS   float64
}

// Repository is the storage abstraction consumed by the choose-node use
// case (reads) and the replication runner (writes). Both the in-memory and
// external-KV backends implement it; mutations must be atomic so a
// concurrent upsert/add_latency never interleaves a half-written snapshot
// into a GetLatest read.
type Repository interface {
	// Upsert records a new snapshot as the node's latest, pushing the
	// previous latest into history (trimmed to the configured limit).
	Upsert(ctx context.Context, m NodeMetrics) error

	// AddLatency appends an observed outbound latency sample to the
	// node's sliding window (trimmed to the configured limit). Backends
	// must treat this as best-effort: a failure here must never be
	// surfaced as a user-facing error by callers.
	AddLatency(ctx context.Context, nodeID string, latencyMS float64) error

	// GetLatest returns the most recent snapshot for nodeID with
	// LatencyMS replaced by the p95 of the latency window. Returns
	// (nil, nil) if the node is unknown.
	GetLatest(ctx context.Context, nodeID string) (*NodeMetrics, error)

	// GetPrev returns the second-most-recent history snapshot for
	// nodeID, or (nil, nil) if fewer than two snapshots exist.
	GetPrev(ctx context.Context, nodeID string) (*NodeMetrics, error)

	// ListLatest returns GetLatest for every known node. Returns
	// ErrNoTelemetry if no node has ever been upserted.
	ListLatest(ctx context.Context) ([]NodeMetrics, error)
}

// Percentile computes the p-th percentile (0..100) of samples using linear
// interpolation between closest ranks, matching numpy.percentile's default
// behavior. samples is not required to be sorted; it is not mutated.
func Percentile(samples []float64, p float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return samples[0]
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := (p / 100) * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	weight := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*weight
}
