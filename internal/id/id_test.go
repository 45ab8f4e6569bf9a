package id

import (
	"strconv"
	"testing"
)

func TestNew_UniqueAndOrdered(t *testing.T) {
	if err := Init(1); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	seen := make(map[string]struct{}, 1000)
	var prev int64
	for range 1000 {
		s := New()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate id %s", s)
		}
		seen[s] = struct{}{}

		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			t.Fatalf("id %q is not decimal: %v", s, err)
		}
		if n <= prev {
			t.Fatalf("id %d not greater than %d", n, prev)
		}
		prev = n
	}
}

func TestInit_RejectsOutOfRangeNode(t *testing.T) {
	if err := Init(4096); err == nil {
		t.Fatal("expected error for node 4096")
	}
}
