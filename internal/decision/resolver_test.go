package decision

import (
	"testing"

	"balancer-gateway/pkg/apperror"
)

func TestResolver_ResolveKernel_Default(t *testing.T) {
	r := NewResolver()
	k, err := r.ResolveKernel("")
	if err != nil {
		t.Fatalf("ResolveKernel(\"\") error = %v", err)
	}
	if k.Name() != DefaultBalancerStrategy {
		t.Errorf("ResolveKernel(\"\") = %s, want %s", k.Name(), DefaultBalancerStrategy)
	}
}

func TestResolver_ResolveKernel_Named(t *testing.T) {
	r := NewResolver()
	k, err := r.ResolveKernel("topsis")
	if err != nil {
		t.Fatalf("ResolveKernel() error = %v", err)
	}
	if k.Name() != "topsis" {
		t.Errorf("ResolveKernel(\"topsis\") = %s, want topsis", k.Name())
	}
}

func TestResolver_ResolveKernel_Unknown(t *testing.T) {
	r := NewResolver()
	_, err := r.ResolveKernel("not-a-strategy")
	var appErr *apperror.Error
	if !asAppError(err, &appErr) {
		t.Fatalf("expected *apperror.Error, got %T", err)
	}
	if appErr.Code != apperror.CodeUnknownBalancerStrategy {
		t.Errorf("Code = %v, want CodeUnknownBalancerStrategy", appErr.Code)
	}
	if appErr.Field != "X-Balancer-Strategy" {
		t.Errorf("Field = %v, want X-Balancer-Strategy", appErr.Field)
	}
}

func TestResolver_ResolveWeights_Unknown(t *testing.T) {
	r := NewResolver()
	_, err := r.ResolveWeights("not-a-strategy")
	var appErr *apperror.Error
	if !asAppError(err, &appErr) {
		t.Fatalf("expected *apperror.Error, got %T", err)
	}
	if appErr.Code != apperror.CodeUnknownWeightsStrategy {
		t.Errorf("Code = %v, want CodeUnknownWeightsStrategy", appErr.Code)
	}
	if appErr.Field != "X-Weights-Strategy" {
		t.Errorf("Field = %v, want X-Weights-Strategy", appErr.Field)
	}
}

func TestResolver_ResolveWeights_Default(t *testing.T) {
	r := NewResolver()
	w, err := r.ResolveWeights("")
	if err != nil {
		t.Fatalf("ResolveWeights(\"\") error = %v", err)
	}
	if w.Name() != DefaultWeightsStrategy {
		t.Errorf("ResolveWeights(\"\") = %s, want %s", w.Name(), DefaultWeightsStrategy)
	}
}

func asAppError(err error, target **apperror.Error) bool {
	appErr, ok := err.(*apperror.Error)
	if !ok {
		return false
	}
	*target = appErr
	return true
}
