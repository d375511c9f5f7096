package chain

import "testing"

func TestFormatTAO(t *testing.T) {
	cases := []struct {
		rao  uint64
		want string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{RaoPerTao, "1"},
		{1_500_000_000, "1.5"},
		{123_456_789_012, "123.456789012"},
	}
	for _, tc := range cases {
		if got := FormatTAO(tc.rao); got != tc.want {
			t.Errorf("FormatTAO(%d) = %q, want %q", tc.rao, got, tc.want)
		}
	}
}
