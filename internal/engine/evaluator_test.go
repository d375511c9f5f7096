package engine

import "testing"

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name     string
		observed uint64
		ceiling  uint64
		want     Verdict
	}{
		{"below", 50, 60, Proceed},
		{"equal", 60, 60, Proceed},
		{"above", 61, 60, Wait},
		{"zero observed", 0, 60, Proceed},
		{"zero ceiling above", 1, 0, Wait},
		{"zero ceiling equal", 0, 0, Proceed},
		{"max observed", ^uint64(0), 60, Wait},
		{"max ceiling", ^uint64(0), ^uint64(0), Proceed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.observed, tc.ceiling); got != tc.want {
				t.Errorf("Evaluate(%d, %d) = %v, want %v", tc.observed, tc.ceiling, got, tc.want)
			}
		})
	}
}

func TestVerdictString(t *testing.T) {
	if Proceed.String() != "proceed" || Wait.String() != "wait" {
		t.Errorf("unexpected verdict strings: %q %q", Proceed, Wait)
	}
}
