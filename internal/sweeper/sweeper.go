package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"hangartalk/pkg/config"
	"hangartalk/pkg/ledger"
	"hangartalk/pkg/logger"
	"hangartalk/pkg/store"
)

// Start starts the sweep scheduler if enabled. The sweeper hard-purges
// soft-deleted messages older than the configured grace period and drops
// ledger entries whose messages are gone. Returns a cancel func.
func Start(ctx context.Context, eff config.EffectiveConfigResult, st *store.Store, led *ledger.Ledger) (context.CancelFunc, error) {
	sw := eff.Config.Sweeper

	if !sw.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	// map empty cron to default daily @03:00
	cronExpr := sw.Cron
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", sw.Cron)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", sw.Cron)
	}

	logger.Info("sweeper_enabled", "cron", cronExpr, "grace", sw.Period.Duration().String(), "dry_run", sw.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, sw, cronExpr, st, led)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time. This yields sharp scheduling and
// supports full cron syntax.
func runScheduler(ctx context.Context, sw config.SweeperConfig, cronExpr string, st *store.Store, led *ledger.Ledger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			RunOnce(sw, st, led)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			RunOnce(sw, st, led)
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep pass: purge tombstones past the grace
// period, then reconcile the report ledger against surviving messages.
func RunOnce(sw config.SweeperConfig, st *store.Store, led *ledger.Ledger) {
	start := time.Now()
	cutoff := start.UTC().Add(-sw.Period.Duration()).UnixNano()

	purged, err := st.PurgeDeleted(cutoff, sw.BatchSize, sw.DryRun)
	if err != nil {
		logger.Error("sweep_purge_failed", "error", err)
		return
	}
	cleared := 0
	if !sw.DryRun {
		cleared, err = led.Sweep()
		if err != nil {
			logger.Error("sweep_ledger_failed", "error", err)
			return
		}
	}
	logger.AuditEvent("sweep_completed",
		"purged", purged,
		"ledger_cleared", cleared,
		"dry_run", sw.DryRun,
		"took_ms", time.Since(start).Milliseconds())
}
