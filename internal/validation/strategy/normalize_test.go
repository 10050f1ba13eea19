package strategy_test

import (
	"testing"

	"codecheck/internal/validation/strategy"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World\r\n", "hello, world"},
		{"  a   b\tc  ", "a b c"},
		{"line1\nline2\n", "line1 line2"},
		{"", ""},
		{"   \n\t  ", ""},
		{"MiXeD Case", "mixed case"},
	}
	for _, tc := range cases {
		if got := strategy.Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
