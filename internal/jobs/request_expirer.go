// request_expirer.go implements the RequestExpirer background job, which
// periodically marks pending join requests older than the configured TTL as
// expired. Expiry is persisted in the database (status column) so a request
// expires exactly once even across server restarts. The job runs an initial
// sweep on startup so a long-stopped server catches up immediately.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/campus5/club-service/internal/telemetry"
)

// requestLedger is the subset of the join request repository the expirer needs.
type requestLedger interface {
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RequestExpirer periodically expires stale pending join requests.
type RequestExpirer struct {
	requests requestLedger
	ttl      time.Duration
	interval time.Duration
	stopChan chan struct{}
}

// NewRequestExpirer creates a new RequestExpirer. ttlHours controls how old a
// pending request must be before it expires; the sweep runs hourly.
func NewRequestExpirer(requests requestLedger, ttlHours int) *RequestExpirer {
	if ttlHours <= 0 {
		ttlHours = 168
	}
	return &RequestExpirer{
		requests: requests,
		ttl:      time.Duration(ttlHours) * time.Hour,
		interval: time.Hour,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background expiry loop.
// It runs an initial sweep immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (e *RequestExpirer) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	slog.Info("request expirer started", "ttl", e.ttl, "interval", e.interval)

	// Run once immediately on startup
	e.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			e.runSweep(ctx)
		case <-e.stopChan:
			slog.Info("request expirer stopped")
			return
		case <-ctx.Done():
			slog.Info("request expirer context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (e *RequestExpirer) Stop() {
	close(e.stopChan)
}

// runSweep expires every pending request created before now minus the TTL.
func (e *RequestExpirer) runSweep(ctx context.Context) {
	cutoff := time.Now().Add(-e.ttl)

	expired, err := e.requests.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		telemetry.RequestExpirerErrorsTotal.Inc()
		slog.Error("request expirer: failed to expire stale requests", "error", err)
		return
	}

	if expired > 0 {
		telemetry.JoinRequestsExpiredTotal.Add(float64(expired))
		slog.Info("request expirer: expired stale join requests", "count", expired)
	}
}
