package ctxengine_test

import (
	"testing"

	ctxengine "github.com/flemzord/tgrelay/internal/context"
)

func TestParseLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		wantLimited  bool
		wantCount    int
		wantFallback bool
	}{
		{name: "all", raw: "all", wantLimited: false},
		{name: "zero", raw: "0", wantLimited: true, wantCount: 0},
		{name: "five", raw: "5", wantLimited: true, wantCount: 5},
		{name: "large", raw: "1000", wantLimited: true, wantCount: 1000},
		{name: "negative_kept_verbatim", raw: "-3", wantLimited: true, wantCount: -3},
		{name: "text_falls_back", raw: "banana", wantLimited: false, wantFallback: true},
		{name: "empty_falls_back", raw: "", wantLimited: false, wantFallback: true},
		{name: "mixed_falls_back", raw: "5abc", wantLimited: false, wantFallback: true},
		{name: "uppercase_all_falls_back", raw: "ALL", wantLimited: false, wantFallback: true},
		{name: "float_falls_back", raw: "2.5", wantLimited: false, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := ctxengine.ParseLimit(tt.raw)
			if p.Limited() != tt.wantLimited {
				t.Errorf("ParseLimit(%q).Limited() = %v, want %v", tt.raw, p.Limited(), tt.wantLimited)
			}
			if tt.wantLimited && p.Count() != tt.wantCount {
				t.Errorf("ParseLimit(%q).Count() = %d, want %d", tt.raw, p.Count(), tt.wantCount)
			}
			if p.Fallback() != tt.wantFallback {
				t.Errorf("ParseLimit(%q).Fallback() = %v, want %v", tt.raw, p.Fallback(), tt.wantFallback)
			}
		})
	}
}

func TestPolicy_ZeroValueIsNoLimit(t *testing.T) {
	t.Parallel()

	var p ctxengine.Policy
	if p.Limited() {
		t.Error("zero Policy should be NoLimit")
	}
	if p.String() != "all" {
		t.Errorf("String() = %q, want %q", p.String(), "all")
	}
	if got := ctxengine.FixedCount(4).String(); got != "last 4" {
		t.Errorf("FixedCount(4).String() = %q, want %q", got, "last 4")
	}
}
