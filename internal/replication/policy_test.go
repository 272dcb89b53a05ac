package replication

import "testing"

func TestResolveCount(t *testing.T) {
	two := 2
	ten := 10
	tests := []struct {
		name      string
		req       Request
		available int
		want      int
	}{
		{"no candidates", Request{}, 0, 0},
		{"replicate all capped at max", Request{ReplicateAll: true}, 10, MaxCount},
		{"replicate all under max", Request{ReplicateAll: true}, 2, 2},
		{"no count requested uses default", Request{}, 5, DefaultCount},
		{"no count requested capped by availability", Request{}, 0, 0},
		{"explicit count under caps", Request{Count: &two}, 5, 2},
		{"explicit count capped by availability", Request{Count: &ten}, 3, 3},
		{"explicit count capped by max", Request{Count: &ten}, 10, MaxCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCount(tt.req, tt.available)
			if got != tt.want {
				t.Errorf("ResolveCount(%+v, %d) = %d, want %d", tt.req, tt.available, got, tt.want)
			}
		})
	}
}
