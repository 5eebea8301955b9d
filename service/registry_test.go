package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryClosedByDefault(t *testing.T) {
	r := NewHealthRegistry(3, 30*time.Second)

	assert.True(t, r.IsEligible("colab", time.Now()))

	snap := r.Snapshot()
	require.Contains(t, snap, "colab")
	assert.Equal(t, "closed", snap["colab"].State)
}

func TestRegistryOpensAfterThreshold(t *testing.T) {
	r := NewHealthRegistry(3, 30*time.Second)
	now := time.Now()

	r.RecordFailure("colab")
	r.RecordFailure("colab")
	assert.True(t, r.IsEligible("colab", now), "below threshold, should stay closed")

	r.RecordFailure("colab")
	assert.False(t, r.IsEligible("colab", now), "threshold reached, circuit should be open")

	snap := r.Snapshot()
	assert.Equal(t, "open", snap["colab"].State)
	assert.Equal(t, 3, snap["colab"].ConsecutiveFailures)
}

func TestRegistrySuccessResetsFailures(t *testing.T) {
	r := NewHealthRegistry(3, 30*time.Second)

	r.RecordFailure("colab")
	r.RecordFailure("colab")
	r.RecordSuccess("colab")
	r.RecordFailure("colab")
	r.RecordFailure("colab")

	// Never three consecutive, so still closed.
	assert.True(t, r.IsEligible("colab", time.Now()))
}

func TestRegistryHalfOpenSingleTrial(t *testing.T) {
	r := NewHealthRegistry(2, 10*time.Second)
	r.RecordFailure("colab")
	r.RecordFailure("colab")

	now := time.Now()
	assert.False(t, r.IsEligible("colab", now), "cooldown not elapsed")

	later := now.Add(11 * time.Second)
	assert.True(t, r.IsEligible("colab", later), "cooldown elapsed, trial allowed")
	assert.False(t, r.IsEligible("colab", later), "only one half-open trial at a time")

	snap := r.Snapshot()
	assert.Equal(t, "half_open", snap["colab"].State)
}

func TestRegistryTrialSuccessCloses(t *testing.T) {
	r := NewHealthRegistry(2, 10*time.Second)
	r.RecordFailure("colab")
	r.RecordFailure("colab")

	later := time.Now().Add(11 * time.Second)
	require.True(t, r.IsEligible("colab", later))

	r.RecordSuccess("colab")
	assert.True(t, r.IsEligible("colab", time.Now()))
	assert.Equal(t, "closed", r.Snapshot()["colab"].State)
}

func TestRegistryTrialFailureReopens(t *testing.T) {
	r := NewHealthRegistry(2, 10*time.Second)
	r.RecordFailure("colab")
	r.RecordFailure("colab")

	later := time.Now().Add(11 * time.Second)
	require.True(t, r.IsEligible("colab", later))

	r.RecordFailure("colab")
	assert.Equal(t, "open", r.Snapshot()["colab"].State)
	assert.False(t, r.IsEligible("colab", time.Now()), "cooldown restarted")

	// A second cooldown allows another trial.
	assert.True(t, r.IsEligible("colab", time.Now().Add(11*time.Second)))
}

func TestRegistryCooldownBoundary(t *testing.T) {
	r := NewHealthRegistry(1, 10*time.Second)
	base := time.Now()
	r.now = func() time.Time { return base }
	r.RecordFailure("colab")

	// Open timestamp comes from the injected clock, so eligibility flips
	// exactly at openedAt+cooldown without any real waiting.
	assert.False(t, r.IsEligible("colab", base.Add(9*time.Second)))
	assert.True(t, r.IsEligible("colab", base.Add(10*time.Second)))

	// A failed trial restamps openedAt from the same clock.
	base = base.Add(10 * time.Second)
	r.RecordFailure("colab")
	assert.False(t, r.IsEligible("colab", base.Add(9*time.Second)))
	assert.True(t, r.IsEligible("colab", base.Add(10*time.Second)))
}

func TestRegistryBackendsIndependent(t *testing.T) {
	r := NewHealthRegistry(1, time.Minute)

	r.RecordFailure("colab")
	assert.False(t, r.IsEligible("colab", time.Now()))
	assert.True(t, r.IsEligible("runpod", time.Now()))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewHealthRegistry(5, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.RecordFailure("colab")
			} else {
				r.RecordSuccess("colab")
			}
			r.IsEligible("colab", time.Now())
			r.Snapshot()
		}(i)
	}
	wg.Wait()

	// State must be one of the valid circuit states, not corrupted.
	state := r.Snapshot()["colab"].State
	assert.Contains(t, []string{"closed", "open", "half_open"}, state)
}

func TestRegistryHalfOpenConcurrentEligibility(t *testing.T) {
	r := NewHealthRegistry(1, 10*time.Second)
	base := time.Now()
	r.now = func() time.Time { return base }
	r.RecordFailure("colab")

	// Many goroutines race for the single trial slot; exactly one wins.
	var wg sync.WaitGroup
	granted := make(chan bool, 20)
	now := base.Add(11 * time.Second)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- r.IsEligible("colab", now)
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for ok := range granted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one half-open trial may be dispatched")
}
