package ingest

import "fmt"

// NodeMetricsMessage is the wire shape of PushMetrics' request, matching
// spec §6's telemetry ingestion contract field-for-field. Port is optional:
// when zero, the caller's endpoint is left untouched in the registry.
type NodeMetricsMessage struct {
	NodeID          string  `json:"node_id"`
	TimestampUnixMS int64   `json:"timestamp_unix_ms"`
	CPUUtil         float64 `json:"cpu_util"`
	MemUtil         float64 `json:"mem_util"`
	NetInBytes      uint64  `json:"net_in_bytes"`
	NetOutBytes     uint64  `json:"net_out_bytes"`
	LatencyMS       float64 `json:"latency_ms,omitempty"`
	Port            uint32  `json:"port,omitempty"`
}

// AckMessage is PushMetrics' response.
type AckMessage struct {
	OK bool `json:"ok"`
}

// Validate implements pkg/interceptors's Validator, rejecting a pushed
// snapshot before it ever reaches Server.PushMetrics: a node id is required
// to attribute the snapshot, utilization is a fraction rather than a
// percentage, and a port above 65535 can only mean a malformed caller.
// The byte counters are unsigned and are not checked.
func (m *NodeMetricsMessage) Validate() error {
	if m.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if m.CPUUtil < 0 || m.CPUUtil > 1 {
		return fmt.Errorf("cpu_util must be in [0, 1], got %v", m.CPUUtil)
	}
	if m.MemUtil < 0 || m.MemUtil > 1 {
		return fmt.Errorf("mem_util must be in [0, 1], got %v", m.MemUtil)
	}
	if m.Port > 65535 {
		return fmt.Errorf("port %d out of range", m.Port)
	}
	return nil
}

// TelemetryNodeID implements pkg/telemetry's NodeIdentifiable, so the
// gRPC tracing interceptor can attach which node a PushMetrics span
// belongs to without this package importing pkg/telemetry's types.
func (m *NodeMetricsMessage) TelemetryNodeID() string {
	return m.NodeID
}
