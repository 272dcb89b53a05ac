package replication

import (
	"testing"
	"time"
)

func TestFixedStrategy_AllZero(t *testing.T) {
	delays := FixedStrategy{}.Delays(3)
	for i, d := range delays {
		if d != 0 {
			t.Errorf("delays[%d] = %v, want 0", i, d)
		}
	}
}

func TestHedgedStrategy_LinearSpacing(t *testing.T) {
	s := NewHedgedStrategy()
	delays := s.Delays(3)
	want := []time.Duration{0, DefaultHedgeTau, 2 * DefaultHedgeTau}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delays[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestSpeculativeStrategy_FirstExempt(t *testing.T) {
	s := NewSpeculativeStrategy()
	delays := s.Delays(3)
	if delays[0] != 0 {
		t.Errorf("delays[0] = %v, want 0", delays[0])
	}
	if delays[1] != DefaultSpeculativeSpacing {
		t.Errorf("delays[1] = %v, want %v", delays[1], DefaultSpeculativeSpacing)
	}
	if delays[2] != 2*DefaultSpeculativeSpacing {
		t.Errorf("delays[2] = %v, want %v", delays[2], 2*DefaultSpeculativeSpacing)
	}
}

func TestResolveStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "fixed", false},
		{"fixed", "fixed", false},
		{"hedged", "hedged", false},
		{"speculative", "speculative", false},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		s, err := ResolveStrategy(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveStrategy(%q) expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ResolveStrategy(%q) error = %v", tt.name, err)
		}
		if s.Name() != tt.want {
			t.Errorf("ResolveStrategy(%q).Name() = %s, want %s", tt.name, s.Name(), tt.want)
		}
	}
}
