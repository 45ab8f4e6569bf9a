package provider

import (
	"sync"
	"time"
)

// HealthState is the observed availability of the provider.
type HealthState int

const (
	StateHealthy  HealthState = iota
	StateDegraded             // recent failures, below the threshold
	StateDown                 // MaxFailures consecutive failures
)

// String returns a human-readable label for the health state.
func (s HealthState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateDown:
		return "down"
	default:
		return "unknown"
	}
}

// HealthConfig controls health tracking behavior.
type HealthConfig struct {
	// MaxFailures is the number of consecutive failures before the
	// provider is reported down. Default: 5.
	MaxFailures int
}

func (c *HealthConfig) defaults() {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
}

// HealthReport is a snapshot of the tracker, served on /health.
type HealthReport struct {
	State       string    `json:"state"`
	Failures    int       `json:"consecutive_failures"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success,omitzero"`
}

// healthTracker records completion outcomes. It never gates requests:
// every message still reaches the provider exactly once.
type healthTracker struct {
	cfg HealthConfig

	// onStateChange is called outside the lock whenever the health
	// state transitions. It keeps the tracker decoupled from logging.
	onStateChange func(from, to HealthState)

	mu          sync.Mutex
	state       HealthState
	failures    int
	lastErr     string
	lastSuccess time.Time

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

func newHealthTracker(cfg HealthConfig) *healthTracker {
	cfg.defaults()
	return &healthTracker{
		cfg:   cfg,
		state: StateHealthy,
		now:   time.Now,
	}
}

// RecordSuccess resets the tracker to the healthy state.
func (h *healthTracker) RecordSuccess() {
	h.mu.Lock()
	prev := h.state
	h.state = StateHealthy
	h.failures = 0
	h.lastErr = ""
	h.lastSuccess = h.now()
	h.mu.Unlock()

	if prev != StateHealthy && h.onStateChange != nil {
		h.onStateChange(prev, StateHealthy)
	}
}

// RecordFailure records a failed request.
func (h *healthTracker) RecordFailure(err error) {
	h.mu.Lock()
	prev := h.state
	h.failures++
	if err != nil {
		h.lastErr = err.Error()
	}
	if h.failures >= h.cfg.MaxFailures {
		h.state = StateDown
	} else {
		h.state = StateDegraded
	}
	next := h.state
	h.mu.Unlock()

	if prev != next && h.onStateChange != nil {
		h.onStateChange(prev, next)
	}
}

// Report returns the current state.
func (h *healthTracker) Report() HealthReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthReport{
		State:       h.state.String(),
		Failures:    h.failures,
		LastError:   h.lastErr,
		LastSuccess: h.lastSuccess,
	}
}

// State returns the current health state.
func (h *healthTracker) State() HealthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
