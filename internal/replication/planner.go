package replication

import "balancer-gateway/internal/decision"

// Plan describes a fully-resolved replication pass: which targets to hit
// and with what launch delay.
type Plan struct {
	Targets []Target
}

// BuildPlan cuts ranked down to r_eff = min(count, len(ranked)), then
// assigns each target a launch delay via strategy.
func BuildPlan(ranked []decision.RankedEndpoint, count int, strategy Strategy) Plan {
	n := min(count, len(ranked))
	if n <= 0 {
		return Plan{}
	}
	delays := strategy.Delays(n)
	targets := make([]Target, n)
	for i := 0; i < n; i++ {
		targets[i] = Target{
			NodeID: ranked[i].NodeID,
			Host:   ranked[i].Host,
			Port:   ranked[i].Port,
			Delay:  delays[i],
		}
	}
	return Plan{Targets: targets}
}
