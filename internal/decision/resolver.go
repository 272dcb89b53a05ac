package decision

import (
	"fmt"

	"balancer-gateway/pkg/apperror"
)

// DefaultBalancerStrategy and DefaultWeightsStrategy name the kernels used
// when a BRS omits the corresponding header.
const (
	DefaultBalancerStrategy = "saw"
	DefaultWeightsStrategy  = "entropy"
)

// Resolver maps the balancer/weights strategy names carried on a BRS to
// concrete Kernel/WeightsProvider implementations. An absent name falls
// back to the configured default; a present-but-unknown name is a
// client-visible error naming the offending field.
type Resolver struct {
	kernels        map[string]Kernel
	weights        map[string]WeightsProvider
	defaultKernel  string
	defaultWeights string
}

// NewResolver builds a Resolver pre-registered with every kernel and
// weights provider this package implements, using the package defaults for
// AIRM's iteration count and the fallback strategy names.
func NewResolver() *Resolver {
	return NewResolverWithConfig(0, "", "")
}

// NewResolverWithConfig builds a Resolver the same way NewResolver does,
// but lets the caller override AIRM's Monte-Carlo iteration count
// (decision.airm_iterations) and the fallback balancer/weights strategy
// names (decision.default_balancer_strategy, decision.default_weights_strategy).
// Zero/empty values fall back to the package defaults.
func NewResolverWithConfig(airmIterations int, defaultBalancerStrategy, defaultWeightsStrategy string) *Resolver {
	if defaultBalancerStrategy == "" {
		defaultBalancerStrategy = DefaultBalancerStrategy
	}
	if defaultWeightsStrategy == "" {
		defaultWeightsStrategy = DefaultWeightsStrategy
	}
	r := &Resolver{
		kernels:        make(map[string]Kernel),
		weights:        make(map[string]WeightsProvider),
		defaultKernel:  defaultBalancerStrategy,
		defaultWeights: defaultWeightsStrategy,
	}
	r.RegisterKernel(SAWKernel{})
	r.RegisterKernel(LinearKernel{})
	r.RegisterKernel(TOPSISKernel{})
	r.RegisterKernel(ELECTREKernel{})
	r.RegisterKernel(NewAIRMKernelWithIterations(airmIterations))
	r.RegisterWeights(EntropyWeights{})
	r.RegisterWeights(FixedWeights{})
	return r
}

// RegisterKernel adds or replaces a balancer strategy by name.
func (r *Resolver) RegisterKernel(k Kernel) {
	r.kernels[k.Name()] = k
}

// RegisterWeights adds or replaces a weights strategy by name.
func (r *Resolver) RegisterWeights(w WeightsProvider) {
	r.weights[w.Name()] = w
}

// ResolveKernel returns the kernel named by the BRS, or the configured
// default if name is empty. An unknown name fails with
// CodeUnknownBalancerStrategy naming the "X-Balancer-Strategy" field.
func (r *Resolver) ResolveKernel(name string) (Kernel, error) {
	if name == "" {
		name = r.defaultKernel
	}
	k, ok := r.kernels[name]
	if !ok {
		return nil, apperror.NewWithField(
			apperror.CodeUnknownBalancerStrategy,
			fmt.Sprintf("unknown balancer strategy %q", name),
			"X-Balancer-Strategy",
		)
	}
	return k, nil
}

// ResolveWeights returns the weights provider named by the BRS, or the
// configured default if name is empty. An unknown name fails with
// CodeUnknownWeightsStrategy naming the "X-Weights-Strategy" field.
func (r *Resolver) ResolveWeights(name string) (WeightsProvider, error) {
	if name == "" {
		name = r.defaultWeights
	}
	w, ok := r.weights[name]
	if !ok {
		return nil, apperror.NewWithField(
			apperror.CodeUnknownWeightsStrategy,
			fmt.Sprintf("unknown weights strategy %q", name),
			"X-Weights-Strategy",
		)
	}
	return w, nil
}
