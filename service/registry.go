package service

import (
	"log/slog"
	"sync"
	"time"
)

// CircuitState is the per-backend breaker state.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type backendCircuit struct {
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
}

// HealthRegistry tracks availability of each OCR backend across requests.
// It is the only state shared between concurrent pipelines; all access
// goes through the mutex. Circuits open after failureThreshold
// consecutive failures and allow a single half-open trial once the
// cooldown has elapsed.
type HealthRegistry struct {
	mu               sync.Mutex
	failureThreshold int
	cooldown         time.Duration
	backends         map[string]*backendCircuit
	now              func() time.Time
}

// BackendHealth is a read-only view of one circuit, used by /health.
type BackendHealth struct {
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
}

func NewHealthRegistry(failureThreshold int, cooldown time.Duration) *HealthRegistry {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &HealthRegistry{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		backends:         make(map[string]*backendCircuit),
		now:              time.Now,
	}
}

// get returns the circuit for name, creating a closed one on first use.
// Caller must hold the mutex.
func (r *HealthRegistry) get(name string) *backendCircuit {
	c, ok := r.backends[name]
	if !ok {
		c = &backendCircuit{}
		r.backends[name] = c
	}
	return c
}

// RecordSuccess resets the circuit to closed. A successful half-open
// trial closes the circuit.
func (r *HealthRegistry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.get(name)
	if c.state != CircuitClosed {
		slog.Info("ocr backend recovered", "backend", name, "previous_state", c.state.String())
	}
	c.state = CircuitClosed
	c.consecutiveFailures = 0
	c.trialInFlight = false
	c.openedAt = time.Time{}
}

// RecordFailure increments the failure count and opens the circuit once
// the threshold is reached. A failed half-open trial re-opens it and
// restarts the cooldown.
func (r *HealthRegistry) RecordFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.get(name)
	c.consecutiveFailures++

	switch c.state {
	case CircuitHalfOpen:
		c.state = CircuitOpen
		c.openedAt = r.now()
		c.trialInFlight = false
		slog.Warn("ocr backend trial failed, circuit re-opened", "backend", name)
	case CircuitClosed:
		if c.consecutiveFailures >= r.failureThreshold {
			c.state = CircuitOpen
			c.openedAt = r.now()
			slog.Warn("ocr backend circuit opened",
				"backend", name,
				"consecutive_failures", c.consecutiveFailures,
			)
		}
	}
}

// IsEligible reports whether the backend may be called at time now.
// Closed circuits are always eligible. An open circuit whose cooldown
// has elapsed moves to half-open and this call claims the single trial
// slot; further callers are refused until the trial resolves via
// RecordSuccess or RecordFailure.
func (r *HealthRegistry) IsEligible(name string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.get(name)
	switch c.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.Sub(c.openedAt) < r.cooldown {
			return false
		}
		c.state = CircuitHalfOpen
		c.trialInFlight = true
		slog.Info("ocr backend cooldown elapsed, allowing trial call", "backend", name)
		return true
	default: // CircuitHalfOpen
		if c.trialInFlight {
			return false
		}
		c.trialInFlight = true
		return true
	}
}

// Snapshot returns the current circuit state of every known backend.
func (r *HealthRegistry) Snapshot() map[string]BackendHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]BackendHealth, len(r.backends))
	for name, c := range r.backends {
		out[name] = BackendHealth{
			State:               c.state.String(),
			ConsecutiveFailures: c.consecutiveFailures,
			OpenedAt:            c.openedAt,
		}
	}
	return out
}
