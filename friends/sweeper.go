package friends

import (
	"context"
	"time"

	"github.com/deemkeen/kinship/domain"
	"go.uber.org/zap"
)

type SweepStats struct {
	Evicted        int
	PrunedEvents   int
	PrunedLastSeen int
}

// RunSweeper evicts stale presence records until ctx is done. With nobody
// online it sleeps until the store wakes it, otherwise it sweeps every
// SweepInterval.
func (e *Engine) RunSweeper(ctx context.Context) {
	e.logger.Info("Starting presence sweeper",
		zap.Duration("interval", e.settings.SweepInterval),
		zap.Duration("heartbeat_timeout", e.settings.HeartbeatTimeout))

	for {
		if e.presence.Len() == 0 {
			select {
			case <-ctx.Done():
				e.logger.Info("Presence sweeper stopped")
				return
			case <-e.presence.Wake():
			}
		}

		timer := time.NewTimer(e.settings.SweepInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("Presence sweeper stopped")
			return
		case <-timer.C:
		}

		stats := e.Sweep(ctx, time.Now())
		if stats.Evicted > 0 || stats.PrunedEvents > 0 {
			e.logger.Info("Sweep finished",
				zap.Int("evicted", stats.Evicted),
				zap.Int("pruned_events", stats.PrunedEvents),
				zap.Int("pruned_last_seen", stats.PrunedLastSeen))
		}
	}
}

// Sweep runs one eviction and pruning pass as of now.
func (e *Engine) Sweep(ctx context.Context, now time.Time) SweepStats {
	evicted := e.presence.Evict(now, e.settings.HeartbeatTimeout)

	// the presence lock is released by now
	for _, t := range evicted {
		e.logger.Info("User timed out", zap.String("npid", t.Npid))
		e.fanOutEvicted(ctx, t)
	}

	stats := SweepStats{
		Evicted:        len(evicted),
		PrunedLastSeen: e.presence.PruneLastChange(now, e.settings.Retention),
		PrunedEvents:   e.queue.Prune(now, e.settings.Retention),
	}

	e.metrics.Evictions.Add(float64(stats.Evicted))
	e.metrics.EventsPruned.Add(float64(stats.PrunedEvents))
	e.metrics.OnlineUsers.Set(float64(e.presence.Len()))
	return stats
}

// fanOutEvicted announces an eviction unless the user heartbeated again
// since, in which case that heartbeat already told friends it is online.
func (e *Engine) fanOutEvicted(ctx context.Context, t domain.Transition) int {
	if !t.WentOffline {
		return 0
	}
	if e.presence.IsOnline(t.Npid) {
		e.logger.Debug("Skipping offline fan-out, user is back", zap.String("npid", t.Npid))
		return 0
	}
	return e.fanOut(ctx, t.Npid, domain.StatusOffline)
}
