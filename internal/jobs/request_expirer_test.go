package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fakeLedger records ExpireOlderThan calls and returns a scripted result.
type fakeLedger struct {
	mu      sync.Mutex
	calls   []time.Time
	expired int64
	err     error
}

func (f *fakeLedger) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cutoff)
	return f.expired, f.err
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLedger) lastCutoff() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// ---------------------------------------------------------------------------
// NewRequestExpirer — construction and TTL defaulting
// ---------------------------------------------------------------------------

func TestNewRequestExpirer_DefaultTTL(t *testing.T) {
	e := NewRequestExpirer(&fakeLedger{}, 0)
	assert.Equal(t, 168*time.Hour, e.ttl)
}

func TestNewRequestExpirer_NegativeTTL_Defaults(t *testing.T) {
	e := NewRequestExpirer(&fakeLedger{}, -3)
	assert.Equal(t, 168*time.Hour, e.ttl)
}

func TestNewRequestExpirer_CustomTTL(t *testing.T) {
	e := NewRequestExpirer(&fakeLedger{}, 24)
	assert.Equal(t, 24*time.Hour, e.ttl)
}

// ---------------------------------------------------------------------------
// runSweep
// ---------------------------------------------------------------------------

func TestRunSweep_CutoffRespectsTTL(t *testing.T) {
	ledger := &fakeLedger{expired: 2}
	e := NewRequestExpirer(ledger, 48)

	before := time.Now().Add(-48 * time.Hour)
	e.runSweep(context.Background())
	after := time.Now().Add(-48 * time.Hour)

	require.Equal(t, 1, ledger.callCount())
	cutoff := ledger.lastCutoff()
	assert.False(t, cutoff.Before(before), "cutoff %v earlier than %v", cutoff, before)
	assert.False(t, cutoff.After(after), "cutoff %v later than %v", cutoff, after)
}

func TestRunSweep_LedgerErrorDoesNotPanic(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("db down")}
	e := NewRequestExpirer(ledger, 24)

	// Must log and continue, never panic.
	e.runSweep(context.Background())

	assert.Equal(t, 1, ledger.callCount())
}

// ---------------------------------------------------------------------------
// Start / Stop lifecycle
// ---------------------------------------------------------------------------

func TestStart_RunsInitialSweepAndStops(t *testing.T) {
	ledger := &fakeLedger{}
	e := NewRequestExpirer(ledger, 24)

	done := make(chan struct{})
	go func() {
		e.Start(context.Background())
		close(done)
	}()

	// The initial sweep runs before the first tick.
	deadline := time.After(2 * time.Second)
	for ledger.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial sweep did not run within timeout")
		case <-time.After(10 * time.Millisecond):
		}
	}

	e.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after Stop")
	}
}

func TestStart_ExitsOnContextCancel(t *testing.T) {
	ledger := &fakeLedger{}
	e := NewRequestExpirer(ledger, 24)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after context cancellation")
	}
}
