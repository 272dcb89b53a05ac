// Package statsview maintains an exponentially-weighted moving average of
// CPU, memory, and latency per node for the /stats diagnostic endpoint. It
// is fed by the same upsert/add-latency path as the ranking metrics
// repository but is never consulted by ranking itself.
package statsview

import "sync"

// DefaultAlpha is the smoothing factor: higher weighs recent samples more.
const DefaultAlpha = 0.3

// NodeStats is the EMA snapshot returned for one node.
type NodeStats struct {
	NodeID    string  `json:"node_id"`
	CPUUtil   float64 `json:"cpu_util_ema"`
	MemUtil   float64 `json:"mem_util_ema"`
	LatencyMS float64 `json:"latency_ms_ema"`
}

type nodeState struct {
	stats         NodeStats
	initialized   bool
	latencySeeded bool
}

// View is a lock-guarded per-node EMA aggregator.
type View struct {
	mu    sync.RWMutex
	alpha float64
	nodes map[string]*nodeState
}

// New creates a View with the given smoothing factor; alpha <= 0 or > 1
// falls back to DefaultAlpha.
func New(alpha float64) *View {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &View{alpha: alpha, nodes: make(map[string]*nodeState)}
}

// ObserveUtilization folds a new CPU/mem sample into the node's EMA.
func (v *View) ObserveUtilization(nodeID string, cpuUtil, memUtil float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := v.stateFor(nodeID)
	if !st.initialized {
		st.stats.CPUUtil = cpuUtil
		st.stats.MemUtil = memUtil
		st.initialized = true
		return
	}
	st.stats.CPUUtil = ema(st.stats.CPUUtil, cpuUtil, v.alpha)
	st.stats.MemUtil = ema(st.stats.MemUtil, memUtil, v.alpha)
}

// ObserveLatency folds a new observed latency sample into the node's EMA.
func (v *View) ObserveLatency(nodeID string, latencyMS float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := v.stateFor(nodeID)
	if !st.latencySeeded {
		st.stats.LatencyMS = latencyMS
		st.latencySeeded = true
		return
	}
	st.stats.LatencyMS = ema(st.stats.LatencyMS, latencyMS, v.alpha)
}

// stateFor returns (creating if needed) the node's EMA state. Callers must
// hold v.mu.
func (v *View) stateFor(nodeID string) *nodeState {
	st, ok := v.nodes[nodeID]
	if !ok {
		st = &nodeState{stats: NodeStats{NodeID: nodeID}}
		v.nodes[nodeID] = st
	}
	return st
}

// Snapshot returns the current EMA for every observed node.
func (v *View) Snapshot() []NodeStats {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]NodeStats, 0, len(v.nodes))
	for _, st := range v.nodes {
		out = append(out, st.stats)
	}
	return out
}

func ema(prev, sample, alpha float64) float64 {
	return alpha*sample + (1-alpha)*prev
}
