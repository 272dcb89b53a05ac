package decision

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/registry"
	"balancer-gateway/pkg/apperror"
	"balancer-gateway/pkg/cache"
)

// RankedEndpoint is one entry of a ranking: the node that produced it and
// where to reach it.
type RankedEndpoint struct {
	NodeID string
	Host   string
	Port   uint16
	Score  float64
}

// criteriaColumns is the fixed column order every feature vector is built
// in: CPU utilization, memory utilization, inbound bandwidth delta,
// outbound bandwidth delta, and SLA-normalized observed latency. All five
// are in cost framing (lower = better).
const criteriaColumns = 5

// ChooseNode reads the current telemetry snapshot, ranks candidate nodes by
// the BRS-selected kernel and weights strategy, and resolves each ranked
// node_id to its registered endpoint.
type ChooseNode struct {
	repo              metricsrepo.Repository
	registry          *registry.Registry
	resolver          *Resolver
	collectorInterval float64 // seconds, used to normalize net in/out deltas
	slaLatencyMS      float64 // ceiling used to normalize observed latency
	log               *slog.Logger

	cache    cache.Cache
	cacheTTL time.Duration
}

// NewChooseNode wires the use case to its telemetry sources, with ranking
// caching disabled.
func NewChooseNode(repo metricsrepo.Repository, reg *registry.Registry, resolver *Resolver, collectorIntervalSeconds, slaLatencyMS float64, log *slog.Logger) *ChooseNode {
	return NewChooseNodeWithCache(repo, reg, resolver, collectorIntervalSeconds, slaLatencyMS, nil, 0, log)
}

// NewChooseNodeWithCache wires the use case with an optional short-TTL
// ranking cache: under request bursts, many proxy requests land between two
// telemetry pushes and would otherwise recompute an identical ranking. A
// nil cache or non-positive ttl disables caching entirely, so the BRS
// always sees a freshly computed ranking (spec's freshness invariant),
// which is the right default for any ttl longer than the collector
// interval.
func NewChooseNodeWithCache(repo metricsrepo.Repository, reg *registry.Registry, resolver *Resolver, collectorIntervalSeconds, slaLatencyMS float64, c cache.Cache, ttl time.Duration, log *slog.Logger) *ChooseNode {
	if log == nil {
		log = slog.Default()
	}
	return &ChooseNode{
		repo:              repo,
		registry:          reg,
		resolver:          resolver,
		collectorInterval: collectorIntervalSeconds,
		slaLatencyMS:      slaLatencyMS,
		log:               log,
		cache:             c,
		cacheTTL:          ttl,
	}
}

// RankRequest carries the strategy names resolved from a BRS. Empty fields
// fall back to the resolver's configured defaults.
type RankRequest struct {
	BalancerStrategy string
	WeightsStrategy  string
}

// RankNodes ranks every node with known telemetry and a registered
// endpoint, returning endpoints sorted by descending score.
func (c *ChooseNode) RankNodes(ctx context.Context, req RankRequest) ([]RankedEndpoint, error) {
	snapshots, err := c.repo.ListLatest(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeNoTelemetry, "no telemetry recorded for any node")
	}

	// Keyed on the strategy pair and the candidate set itself, so a cache
	// hit is only possible for a request that would recompute the exact
	// same ranking: same kernel, same weights, same nodes reporting.
	cacheKey := cache.BuildRankingKeyWithWeights(req.BalancerStrategy, req.WeightsStrategy, cache.CandidateSetHash(snapshotNodeIDs(snapshots)))
	if c.cache != nil && c.cacheTTL > 0 {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
			var ranked []RankedEndpoint
			if jsonErr := json.Unmarshal(cached, &ranked); jsonErr == nil {
				return ranked, nil
			}
		}
	}

	kernel, err := c.resolver.ResolveKernel(req.BalancerStrategy)
	if err != nil {
		return nil, err
	}
	weightsProvider, err := c.resolver.ResolveWeights(req.WeightsStrategy)
	if err != nil {
		return nil, err
	}

	nodeIDs := make([]string, 0, len(snapshots))
	matrix := make(Matrix, 0, len(snapshots))
	for _, snap := range snapshots {
		row, err := c.buildRow(ctx, snap)
		if err != nil {
			c.log.Warn("skipping node with unbuildable feature row", "node_id", snap.NodeID, "error", err)
			continue
		}
		nodeIDs = append(nodeIDs, snap.NodeID)
		matrix = append(matrix, row)
	}

	if len(matrix) == 0 {
		return nil, apperror.New(apperror.CodeNoTelemetry, "no node produced a usable feature row")
	}

	weights, err := weightsProvider.Weights(matrix)
	if err != nil {
		return nil, err
	}
	scores, err := kernel.ScoreAll(matrix, weights)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedEndpoint, 0, len(nodeIDs))
	for i, nodeID := range nodeIDs {
		ep, err := c.registry.GetEndpoint(nodeID)
		if err != nil {
			c.log.Warn("node has telemetry but no registered endpoint", "node_id", nodeID)
			continue
		}
		ranked = append(ranked, RankedEndpoint{NodeID: nodeID, Host: ep.Host, Port: ep.Port, Score: scores[i]})
	}

	sortDescending(ranked)

	if c.cache != nil && c.cacheTTL > 0 {
		if encoded, jsonErr := json.Marshal(ranked); jsonErr == nil {
			if err := c.cache.Set(ctx, cacheKey, encoded, c.cacheTTL); err != nil {
				c.log.Warn("failed to cache ranking result", "error", err)
			}
		}
	}

	return ranked, nil
}

// Execute returns the single best-ranked endpoint, or an error if ranking
// produced no viable candidate.
func (c *ChooseNode) Execute(ctx context.Context, req RankRequest) (RankedEndpoint, error) {
	ranked, err := c.RankNodes(ctx, req)
	if err != nil {
		return RankedEndpoint{}, err
	}
	if len(ranked) == 0 {
		return RankedEndpoint{}, apperror.New(apperror.CodeNoTelemetry, "no ranked node has a registered endpoint")
	}
	return ranked[0], nil
}

// buildRow assembles the cost-framed feature vector for one node: CPU
// utilization, memory utilization, inbound/outbound bandwidth deltas
// against the previous snapshot normalized by the collector interval, and
// observed latency normalized against the SLA ceiling.
func (c *ChooseNode) buildRow(ctx context.Context, snap metricsrepo.NodeMetrics) ([]float64, error) {
	var netInRate, netOutRate float64
	prev, err := c.repo.GetPrev(ctx, snap.NodeID)
	if err == nil && prev != nil && c.collectorInterval > 0 {
		if snap.NetInBytes >= prev.NetInBytes {
			netInRate = float64(snap.NetInBytes-prev.NetInBytes) / c.collectorInterval
		}
		if snap.NetOutBytes >= prev.NetOutBytes {
			netOutRate = float64(snap.NetOutBytes-prev.NetOutBytes) / c.collectorInterval
		}
	}

	latencyNorm := snap.LatencyMS
	if c.slaLatencyMS > 0 {
		latencyNorm = snap.LatencyMS / c.slaLatencyMS
	}

	row := make([]float64, criteriaColumns)
	row[0] = snap.CPUUtil
	row[1] = snap.MemUtil
	row[2] = netInRate
	row[3] = netOutRate
	row[4] = latencyNorm
	return row, nil
}

func snapshotNodeIDs(snapshots []metricsrepo.NodeMetrics) []string {
	ids := make([]string, len(snapshots))
	for i, snap := range snapshots {
		ids[i] = snap.NodeID
	}
	return ids
}

func sortDescending(endpoints []RankedEndpoint) {
	for i := 1; i < len(endpoints); i++ {
		for j := i; j > 0 && endpoints[j].Score > endpoints[j-1].Score; j-- {
			endpoints[j], endpoints[j-1] = endpoints[j-1], endpoints[j]
		}
	}
}
