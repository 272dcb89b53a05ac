// Package envelope parses the BRS (Balancer and Replications envelope)
// carried on inbound HTTP request headers into a typed, validated value the
// rest of the proxy consumes.
package envelope

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"balancer-gateway/pkg/apperror"
)

// Header names of the BRS envelope.
const (
	HeaderService              = "X-Service"
	HeaderBalancerDeadline     = "X-Balancer-Deadline"
	HeaderReplicationsAll      = "X-Replications-All"
	HeaderReplicationsCount    = "X-Replications-Count"
	HeaderReplicationsStrategy = "X-Replications-Strategy"
	HeaderBalancerStrategy     = "X-Balancer-Strategy"
	HeaderWeightsStrategy      = "X-Weights-Strategy"
	HeaderCompletionStrategy   = "X-Completion-Strategy"
	HeaderCompletionK          = "X-Completion-K"
)

// replicationsCountTrueDefault is the replica count "X-Replications-Count:
// true" resolves to.
const replicationsCountTrueDefault = 3

// BRS is the fully parsed and validated envelope for one inbound request.
type BRS struct {
	Service              string
	Deadline             time.Duration
	ReplicationsAll      bool
	ReplicationsCount    *int
	ReplicationsStrategy string
	BalancerStrategy     string
	WeightsStrategy      string
	CompletionStrategy   string
	CompletionK          int
}

// WantsReplication reports whether this BRS requests the replication
// pipeline rather than the single-call path.
func (b BRS) WantsReplication() bool {
	return b.ReplicationsAll || b.ReplicationsCount != nil || b.ReplicationsStrategy != ""
}

// Parse validates and extracts the BRS from an inbound request's headers.
// Every present strategy-name header is trimmed and lower-cased before
// validation; a header present but empty after trimming is a distinct
// envelope error from an absent header, since an absent header means "use
// the default" while an empty one signals a malformed client.
//
// Every header is checked even after an earlier one fails, and all
// failures are returned together via apperror.ValidationErrors: a client
// that sends several bad headers in one request learns about all of them
// at once instead of fixing them one at a time.
func Parse(h http.Header) (BRS, error) {
	var brs BRS
	verrs := apperror.NewValidationErrors()

	service, err := requiredString(h, HeaderService, apperror.CodeMissingService)
	collect(verrs, err)
	brs.Service = service

	deadline, err := parseDeadline(h)
	collect(verrs, err)
	brs.Deadline = deadline

	replicationsAll, err := parseBool(h, HeaderReplicationsAll, false)
	collect(verrs, err)
	brs.ReplicationsAll = replicationsAll

	count, err := parseReplicationsCount(h)
	collect(verrs, err)
	brs.ReplicationsCount = count

	brs.ReplicationsStrategy, err = optionalLowerString(h, HeaderReplicationsStrategy)
	collect(verrs, err)
	brs.BalancerStrategy, err = optionalLowerString(h, HeaderBalancerStrategy)
	collect(verrs, err)
	brs.WeightsStrategy, err = optionalLowerString(h, HeaderWeightsStrategy)
	collect(verrs, err)
	brs.CompletionStrategy, err = optionalLowerString(h, HeaderCompletionStrategy)
	collect(verrs, err)

	completionK, err := parseCompletionK(h, brs.CompletionStrategy)
	collect(verrs, err)
	brs.CompletionK = completionK

	if verrs.HasErrors() {
		return BRS{}, verrs.AsError()
	}
	return brs, nil
}

// collect appends err to verrs when present. Every helper below only ever
// returns nil or an *apperror.Error, so the assertion is safe.
func collect(verrs *apperror.ValidationErrors, err error) {
	if err == nil {
		return
	}
	if appErr, ok := err.(*apperror.Error); ok {
		verrs.Add(appErr)
	}
}

func requiredString(h http.Header, name string, code apperror.ErrorCode) (string, error) {
	raw := strings.TrimSpace(h.Get(name))
	if raw == "" {
		return "", apperror.NewWithField(code, name+" is required", name)
	}
	return raw, nil
}

func optionalLowerString(h http.Header, name string) (string, error) {
	raw, present := firstValue(h, name)
	if !present {
		return "", nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", apperror.NewWithField(apperror.CodeEmptyStrategyField, name+" was present but empty", name)
	}
	return trimmed, nil
}

func firstValue(h http.Header, name string) (string, bool) {
	values, ok := h[http.CanonicalHeaderKey(name)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseDeadline(h http.Header) (time.Duration, error) {
	raw := strings.TrimSpace(h.Get(HeaderBalancerDeadline))
	if raw == "" {
		return 0, apperror.NewWithField(apperror.CodeMissingDeadline, HeaderBalancerDeadline+" is required", HeaderBalancerDeadline)
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, apperror.NewWithField(apperror.CodeInvalidDeadline, HeaderBalancerDeadline+" must be a positive integer number of milliseconds", HeaderBalancerDeadline)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parseBool(h http.Header, name string, def bool) (bool, error) {
	raw, present := firstValue(h, name)
	if !present {
		return def, nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch trimmed {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, apperror.NewWithField(apperror.CodeInvalidEnvelope, name+" must be \"true\" or \"false\"", name)
	}
}

func parseReplicationsCount(h http.Header) (*int, error) {
	raw, present := firstValue(h, HeaderReplicationsCount)
	if !present {
		return nil, nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return nil, apperror.NewWithField(apperror.CodeInvalidReplications, HeaderReplicationsCount+" was present but empty", HeaderReplicationsCount)
	}
	if trimmed == "true" {
		n := replicationsCountTrueDefault
		return &n, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return nil, apperror.NewWithField(apperror.CodeInvalidReplications, HeaderReplicationsCount+" must be a positive integer or \"true\"", HeaderReplicationsCount)
	}
	return &n, nil
}

func parseCompletionK(h http.Header, completionStrategy string) (int, error) {
	raw, present := firstValue(h, HeaderCompletionK)
	if !present {
		if completionStrategy == "quorum" || completionStrategy == "k_out_of_n" {
			return 0, apperror.NewWithField(apperror.CodeInvalidEnvelope, HeaderCompletionK+" is required for the "+completionStrategy+" completion strategy", HeaderCompletionK)
		}
		return 0, nil
	}
	trimmed := strings.TrimSpace(raw)
	k, err := strconv.Atoi(trimmed)
	if err != nil || k <= 0 {
		return 0, apperror.NewWithField(apperror.CodeInvalidEnvelope, HeaderCompletionK+" must be a positive integer", HeaderCompletionK)
	}
	return k, nil
}
