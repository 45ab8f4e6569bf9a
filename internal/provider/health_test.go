package provider

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestTracker(cfg HealthConfig) *healthTracker {
	h := newHealthTracker(cfg)
	h.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestHealthTracker_StartsHealthy(t *testing.T) {
	t.Parallel()
	h := newTestTracker(HealthConfig{})
	if h.State() != StateHealthy {
		t.Errorf("state = %v, want healthy", h.State())
	}
	if got := h.Report(); got.Failures != 0 || got.State != "healthy" {
		t.Errorf("Report() = %+v, want healthy with no failures", got)
	}
}

func TestHealthTracker_DegradedThenDown(t *testing.T) {
	t.Parallel()
	h := newTestTracker(HealthConfig{MaxFailures: 3})

	h.RecordFailure(errors.New("one"))
	if h.State() != StateDegraded {
		t.Fatalf("state = %v, want degraded", h.State())
	}
	h.RecordFailure(errors.New("two"))
	h.RecordFailure(errors.New("three"))
	if h.State() != StateDown {
		t.Fatalf("state = %v, want down", h.State())
	}

	r := h.Report()
	if r.Failures != 3 {
		t.Errorf("Failures = %d, want 3", r.Failures)
	}
	if r.LastError != "three" {
		t.Errorf("LastError = %q, want %q", r.LastError, "three")
	}
}

func TestHealthTracker_SuccessResets(t *testing.T) {
	t.Parallel()
	h := newTestTracker(HealthConfig{MaxFailures: 2})

	h.RecordFailure(errors.New("x"))
	h.RecordFailure(errors.New("x"))
	h.RecordSuccess()

	r := h.Report()
	if r.State != "healthy" || r.Failures != 0 || r.LastError != "" {
		t.Errorf("Report() = %+v, want reset", r)
	}
	if r.LastSuccess.IsZero() {
		t.Error("LastSuccess should be set")
	}
}

func TestHealthTracker_OnStateChange(t *testing.T) {
	t.Parallel()
	h := newTestTracker(HealthConfig{MaxFailures: 2})

	var mu sync.Mutex
	var transitions []string
	h.onStateChange = func(from, to HealthState) {
		mu.Lock()
		transitions = append(transitions, from.String()+"->"+to.String())
		mu.Unlock()
	}

	h.RecordSuccess() // no transition
	h.RecordFailure(nil)
	h.RecordFailure(nil)
	h.RecordFailure(nil) // still down, no transition
	h.RecordSuccess()

	want := []string{"healthy->degraded", "degraded->down", "down->healthy"}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestHealthState_String(t *testing.T) {
	t.Parallel()
	if got := HealthState(42).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}
