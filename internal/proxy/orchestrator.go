// Package proxy wires the envelope parser, the MCDM choose-node use case,
// and the replication runner into the single entry point the HTTP handler
// calls per inbound request: parse the BRS, decide direct vs. replicated,
// execute, return the winning reply verbatim.
package proxy

import (
	"context"
	"log/slog"
	"time"

	"balancer-gateway/internal/decision"
	"balancer-gateway/internal/envelope"
	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/internal/replication"
	"balancer-gateway/pkg/apperror"
	"balancer-gateway/pkg/metrics"
	"balancer-gateway/pkg/telemetry"
)

// Orchestrator is the Proxy Orchestrator (spec §4.12): it never talks HTTP
// itself beyond what the replication runner already does, it only decides
// which pipeline a request takes and assembles the plan that feeds it.
type Orchestrator struct {
	chooseNode *decision.ChooseNode
	runner     *replication.Runner
	repo       metricsrepo.Repository
	replCfg    ReplicationDefaults
	log        *slog.Logger
}

// ReplicationDefaults mirrors the subset of config.ReplicationConfig the
// orchestrator needs, kept separate so this package does not import
// pkg/config directly.
type ReplicationDefaults struct {
	DefaultStrategy   string
	DefaultCompletion string
	Adaptive          bool
	AdaptiveLambda    float64
	MaxReplicas       int
}

// NewOrchestrator wires an Orchestrator from its already-constructed
// dependencies.
func NewOrchestrator(chooseNode *decision.ChooseNode, runner *replication.Runner, repo metricsrepo.Repository, replCfg ReplicationDefaults, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{chooseNode: chooseNode, runner: runner, repo: repo, replCfg: replCfg, log: log}
}

// Outcome carries both the executed result and the labels the caller needs
// to record metrics (strategy/completion policy actually used, fan-out
// size), since those are only known once the BRS has been resolved.
type Outcome struct {
	Result           replication.ExecutionResult
	Strategy         string
	CompletionPolicy string
	Fanout           int
}

// Handle runs cmd against the node the BRS selects, either as a single
// direct call or as a replicated fan-out, per spec §4.12.
func (o *Orchestrator) Handle(ctx context.Context, cmd replication.Command, brs envelope.BRS) (Outcome, error) {
	rankReq := decision.RankRequest{
		BalancerStrategy: brs.BalancerStrategy,
		WeightsStrategy:  brs.WeightsStrategy,
	}

	if !brs.WantsReplication() {
		return o.executeDirect(ctx, cmd, rankReq)
	}
	return o.executeReplicated(ctx, cmd, brs, rankReq)
}

// rankNodes ranks candidates and records the pass's duration and candidate
// count, so both the direct and replicated paths share one instrumented
// entry point into the choose-node use case.
func (o *Orchestrator) rankNodes(ctx context.Context, rankReq decision.RankRequest) ([]decision.RankedEndpoint, error) {
	start := time.Now()
	ranked, err := o.chooseNode.RankNodes(ctx, rankReq)
	algorithm := rankReq.BalancerStrategy
	if algorithm == "" {
		algorithm = "default"
	}
	weightsStrategy := rankReq.WeightsStrategy
	if weightsStrategy == "" {
		weightsStrategy = "default"
	}
	metrics.Get().RecordRanking(algorithm, weightsStrategy, time.Since(start), len(ranked))
	telemetry.SpanFromContext(ctx).SetAttributes(telemetry.RankingAttributes(algorithm, weightsStrategy, len(ranked))...)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, apperror.New(apperror.CodeNoTelemetry, "no ranked node has a registered endpoint")
	}
	return ranked, nil
}

// executeDirect ranks once, picks the head, and runs it through the runner
// with a single fixed-delay target and a first-valid policy: the same
// mechanics as replication with a fan-out of one, so there is exactly one
// outbound-call code path in the whole package.
func (o *Orchestrator) executeDirect(ctx context.Context, cmd replication.Command, rankReq decision.RankRequest) (Outcome, error) {
	ranked, err := o.rankNodes(ctx, rankReq)
	if err != nil {
		return Outcome{}, err
	}
	best := ranked[0]

	target := replication.Target{NodeID: best.NodeID, Host: best.Host, Port: best.Port}
	result, err := o.runner.Execute(ctx, cmd, []replication.Target{target}, replication.NewFirstValidPolicy())
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Result: result, Strategy: "direct", CompletionPolicy: "first", Fanout: 1}, nil
}

// executeReplicated resolves the replica count and strategy from the BRS
// (falling back to configured defaults), optionally narrows the count with
// the adaptive estimator, builds the plan, and runs it through a completion
// policy resolved the same way.
func (o *Orchestrator) executeReplicated(ctx context.Context, cmd replication.Command, brs envelope.BRS, rankReq decision.RankRequest) (Outcome, error) {
	ranked, err := o.rankNodes(ctx, rankReq)
	if err != nil {
		return Outcome{}, err
	}

	count := replication.ResolveCount(replication.Request{
		ReplicateAll: brs.ReplicationsAll,
		Count:        brs.ReplicationsCount,
	}, len(ranked))

	if o.replCfg.Adaptive && count > 1 {
		count = replication.AdaptiveCount(replication.AdaptiveConfig{
			Lambda: o.replCfg.AdaptiveLambda,
			RMax:   o.replCfg.MaxReplicas,
		}, o.latencyEstimates(ctx, ranked), count)
	}

	strategyName := brs.ReplicationsStrategy
	if strategyName == "" {
		strategyName = o.replCfg.DefaultStrategy
	}
	strategy, err := replication.ResolveStrategy(strategyName)
	if err != nil {
		return Outcome{}, err
	}

	completionName := brs.CompletionStrategy
	if completionName == "" {
		completionName = o.replCfg.DefaultCompletion
	}
	policy, err := replication.NewCompletionPolicy(completionName, brs.CompletionK)
	if err != nil {
		return Outcome{}, err
	}

	plan := replication.BuildPlan(ranked, count, strategy)
	start := time.Now()
	result, err := o.runner.Execute(ctx, cmd, plan.Targets, policy)
	completionDuration := time.Since(start)
	// The runner does not report which individual tasks were cancelled,
	// only the winner; fanout size is tracked precisely, cancellations are not.
	metrics.Get().RecordReplication(strategyName, completionName, len(plan.Targets), 0, completionDuration)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Result:           result,
		Strategy:         strategyName,
		CompletionPolicy: completionName,
		Fanout:           len(plan.Targets),
	}, nil
}

// latencyEstimates fetches each ranked node's last-known p95 latency, best
// rank first, for the adaptive estimator. A node with no telemetry (should
// not happen here since ranking already required it) contributes 0.
func (o *Orchestrator) latencyEstimates(ctx context.Context, ranked []decision.RankedEndpoint) []float64 {
	estimates := make([]float64, len(ranked))
	for i, ep := range ranked {
		snap, err := o.repo.GetLatest(ctx, ep.NodeID)
		if err != nil || snap == nil {
			o.log.Warn("adaptive estimator missing latency for ranked node", "node_id", ep.NodeID)
			continue
		}
		estimates[i] = snap.LatencyMS
	}
	return estimates
}
