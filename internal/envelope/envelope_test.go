package envelope

import (
	"net/http"
	"testing"
	"time"

	"balancer-gateway/pkg/apperror"
)

func baseHeaders() http.Header {
	h := http.Header{}
	h.Set(HeaderService, "checkout")
	h.Set(HeaderBalancerDeadline, "500")
	return h
}

func TestParse_MinimalValid(t *testing.T) {
	brs, err := Parse(baseHeaders())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if brs.Service != "checkout" {
		t.Errorf("Service = %s, want checkout", brs.Service)
	}
	if brs.Deadline != 500*time.Millisecond {
		t.Errorf("Deadline = %v, want 500ms", brs.Deadline)
	}
	if brs.WantsReplication() {
		t.Error("WantsReplication() = true, want false for a minimal envelope")
	}
}

func TestParse_MissingService(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderBalancerDeadline, "500")
	_, err := Parse(h)
	requireCode(t, err, apperror.CodeMissingService)
}

func TestParse_MissingDeadline(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderService, "checkout")
	_, err := Parse(h)
	requireCode(t, err, apperror.CodeMissingDeadline)
}

func TestParse_InvalidDeadline(t *testing.T) {
	for _, v := range []string{"0", "-5", "abc", ""} {
		h := baseHeaders()
		h.Set(HeaderBalancerDeadline, v)
		_, err := Parse(h)
		if v == "" {
			requireCode(t, err, apperror.CodeMissingDeadline)
		} else {
			requireCode(t, err, apperror.CodeInvalidDeadline)
		}
	}
}

func TestParse_ReplicationsCount_LiteralTrue(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderReplicationsCount, "true")
	brs, err := Parse(h)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if brs.ReplicationsCount == nil || *brs.ReplicationsCount != 3 {
		t.Errorf("ReplicationsCount = %v, want 3", brs.ReplicationsCount)
	}
	if !brs.WantsReplication() {
		t.Error("WantsReplication() = false, want true")
	}
}

func TestParse_ReplicationsCount_Invalid(t *testing.T) {
	for _, v := range []string{"0", "-1", "notanumber"} {
		h := baseHeaders()
		h.Set(HeaderReplicationsCount, v)
		_, err := Parse(h)
		requireCode(t, err, apperror.CodeInvalidReplications)
	}
}

func TestParse_StrategyHeader_AbsentUsesEmptyDefault(t *testing.T) {
	brs, err := Parse(baseHeaders())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if brs.BalancerStrategy != "" {
		t.Errorf("BalancerStrategy = %q, want empty (absent header means default)", brs.BalancerStrategy)
	}
}

func TestParse_StrategyHeader_PresentButEmptyIsAnError(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderBalancerStrategy, "   ")
	_, err := Parse(h)
	requireCode(t, err, apperror.CodeEmptyStrategyField)
}

func TestParse_StrategyHeader_LowercasedAndTrimmed(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderBalancerStrategy, "  TOPSIS  ")
	brs, err := Parse(h)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if brs.BalancerStrategy != "topsis" {
		t.Errorf("BalancerStrategy = %q, want topsis", brs.BalancerStrategy)
	}
}

func TestParse_CompletionK_RequiredForQuorum(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderCompletionStrategy, "quorum")
	_, err := Parse(h)
	requireCode(t, err, apperror.CodeInvalidEnvelope)
}

func TestParse_CompletionK_RequiredForKOutOfN(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderCompletionStrategy, "k_out_of_n")
	_, err := Parse(h)
	requireCode(t, err, apperror.CodeInvalidEnvelope)
}

func TestParse_CompletionK_NotRequiredForFirstOrMajority(t *testing.T) {
	for _, strategy := range []string{"first", "majority"} {
		h := baseHeaders()
		h.Set(HeaderCompletionStrategy, strategy)
		if _, err := Parse(h); err != nil {
			t.Errorf("Parse() with completion=%s error = %v, want nil", strategy, err)
		}
	}
}

func TestParse_CompletionK_Valid(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderCompletionStrategy, "quorum")
	h.Set(HeaderCompletionK, "3")
	brs, err := Parse(h)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if brs.CompletionK != 3 {
		t.Errorf("CompletionK = %d, want 3", brs.CompletionK)
	}
}

func TestParse_CollectsEveryHeaderError(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderBalancerStrategy, "   ")
	h.Set(HeaderCompletionStrategy, "quorum")
	// HeaderService and HeaderBalancerDeadline are both absent too.

	_, err := Parse(h)
	appErr, ok := err.(*apperror.Error)
	if !ok {
		t.Fatalf("expected *apperror.Error, got %T (%v)", err, err)
	}

	fields, _ := appErr.Details["fields"].([]string)
	want := map[string]bool{
		HeaderService:          true,
		HeaderBalancerDeadline: true,
		HeaderBalancerStrategy: true,
		HeaderCompletionK:      true,
	}
	if len(fields) != len(want) {
		t.Fatalf("Details[\"fields\"] = %v, want %d entries matching %v", fields, len(want), want)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected field %q in aggregated error", f)
		}
	}

	errMsgs, _ := appErr.Details["errors"].([]string)
	if len(errMsgs) != len(want) {
		t.Errorf("Details[\"errors\"] has %d messages, want %d", len(errMsgs), len(want))
	}
}

func TestParse_Idempotent(t *testing.T) {
	h := baseHeaders()
	h.Set(HeaderReplicationsAll, "true")
	h.Set(HeaderBalancerStrategy, "electre")

	brs1, err := Parse(h)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	brs2, err := Parse(h)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if brs1 != brs2 {
		t.Errorf("Parse() not idempotent: %+v != %+v", brs1, brs2)
	}
}

func requireCode(t *testing.T, err error, code apperror.ErrorCode) {
	t.Helper()
	appErr, ok := err.(*apperror.Error)
	if !ok {
		t.Fatalf("expected *apperror.Error, got %T (%v)", err, err)
	}
	if appErr.Code != code {
		t.Errorf("Code = %v, want %v", appErr.Code, code)
	}
}
