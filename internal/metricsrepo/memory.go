package metricsrepo

import (
	"context"
	"sync"
)

// MemoryRepository is a lock-guarded, in-process implementation of
// Repository. It holds, per node, a bounded history ring (newest first)
// and a bounded latency sliding window (newest first).
type MemoryRepository struct {
	mu            sync.RWMutex
	nodes         map[string]*nodeState
	historyLimit  int
	latencyWindow int
}

type nodeState struct {
	history []NodeMetrics // newest first, len <= historyLimit
	latency []float64     // newest first, len <= latencyWindow
}

// NewMemoryRepository creates an in-memory Repository. historyLimit and
// latencyWindow must be positive; both default to sane values if given as
// zero or negative.
func NewMemoryRepository(historyLimit, latencyWindow int) *MemoryRepository {
	if historyLimit <= 0 {
		historyLimit = 32
	}
	if latencyWindow <= 0 {
		latencyWindow = 100
	}
	return &MemoryRepository{
		nodes:         make(map[string]*nodeState),
		historyLimit:  historyLimit,
		latencyWindow: latencyWindow,
	}
}

// Upsert implements Repository.
func (r *MemoryRepository) Upsert(_ context.Context, m NodeMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.nodes[m.NodeID]
	if !ok {
		st = &nodeState{}
		r.nodes[m.NodeID] = st
	}

	st.history = prependTrim(st.history, m, r.historyLimit)
	return nil
}

// AddLatency implements Repository.
func (r *MemoryRepository) AddLatency(_ context.Context, nodeID string, latencyMS float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.nodes[nodeID]
	if !ok {
		st = &nodeState{}
		r.nodes[nodeID] = st
	}

	st.latency = prependTrimFloat(st.latency, latencyMS, r.latencyWindow)
	return nil
}

// GetLatest implements Repository.
func (r *MemoryRepository) GetLatest(_ context.Context, nodeID string) (*NodeMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.nodes[nodeID]
	if !ok || len(st.history) == 0 {
		return nil, nil
	}

	latest := st.history[0]
	latest.LatencyMS = Percentile(st.latency, 95)
	return &latest, nil
}

// GetPrev implements Repository.
func (r *MemoryRepository) GetPrev(_ context.Context, nodeID string) (*NodeMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.nodes[nodeID]
	if !ok || len(st.history) < 2 {
		return nil, nil
	}

	prev := st.history[1]
	return &prev, nil
}

// ListLatest implements Repository.
func (r *MemoryRepository) ListLatest(ctx context.Context) ([]NodeMetrics, error) {
	r.mu.RLock()
	nodeIDs := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		nodeIDs = append(nodeIDs, id)
	}
	r.mu.RUnlock()

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

func prependTrim(history []NodeMetrics, m NodeMetrics, limit int) []NodeMetrics {
	history = append([]NodeMetrics{m}, history...)
	if len(history) > limit {
		history = history[:limit]
	}
	return history
}

func prependTrimFloat(window []float64, v float64, limit int) []float64 {
	window = append([]float64{v}, window...)
	if len(window) > limit {
		window = window[:limit]
	}
	return window
}
