package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys attached to the one span each proxied request gets.
const (
	AttrHTTPMethod   = "http.method"
	AttrHTTPPath     = "http.path"
	AttrStrategy     = "balancer.strategy"
	AttrCompletion   = "balancer.completion_policy"
	AttrFanout       = "balancer.fanout"
	AttrWinnerNodeID = "balancer.winner_node_id"
	AttrAlgorithm    = "ranking.algorithm"
	AttrWeights      = "ranking.weights_strategy"
	AttrCandidates   = "ranking.candidate_count"
)

// RequestAttributes returns the attributes recorded as soon as a proxy
// span starts, before the BRS has resolved a winning strategy.
func RequestAttributes(method, path string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPPath, path),
	}
}

// OutcomeAttributes returns the attributes recorded once a proxy request
// has been resolved: the strategy and completion policy actually used, the
// fan-out size, and the winning node.
func OutcomeAttributes(strategy, completionPolicy string, fanout int, winnerNodeID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStrategy, strategy),
		attribute.String(AttrCompletion, completionPolicy),
		attribute.Int(AttrFanout, fanout),
		attribute.String(AttrWinnerNodeID, winnerNodeID),
	}
}

// RankingAttributes returns the attributes describing one choose-node pass.
func RankingAttributes(algorithm, weightsStrategy string, candidateCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAlgorithm, algorithm),
		attribute.String(AttrWeights, weightsStrategy),
		attribute.Int(AttrCandidates, candidateCount),
	}
}
