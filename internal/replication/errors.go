package replication

import (
	"fmt"

	"balancer-gateway/pkg/apperror"
)

func errUnknownStrategy(name string) error {
	return apperror.NewWithField(
		apperror.CodeUnknownReplicationStrat,
		fmt.Sprintf("unknown replication strategy %q", name),
		"X-Replications-Strategy",
	)
}

func errUnknownCompletionPolicy(name string) error {
	return apperror.NewWithField(
		apperror.CodeUnknownCompletionPolicy,
		fmt.Sprintf("unknown completion policy %q", name),
		"X-Completion-Strategy",
	)
}

func errMissingCompletionK(policy string) error {
	return apperror.NewWithField(
		apperror.CodeInvalidEnvelope,
		fmt.Sprintf("X-Completion-K is required for the %q completion policy", policy),
		"X-Completion-K",
	)
}
