package replication

// ReplicaReply is the outcome of one replica task: either a genuine
// upstream response or a synthetic failure reply (ok = false, status =
// 599) produced when the outbound call itself failed.
type ReplicaReply struct {
	NodeID    string
	OK        bool
	Status    int
	Value     string // SHA-256 hex digest of the raw response body
	Body      []byte
	Headers   map[string][]string
	LatencyMS float64
}
