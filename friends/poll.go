package friends

import (
	"context"
	"time"

	"github.com/deemkeen/kinship/domain"
	"go.uber.org/zap"
)

// Poll returns everything queued for npid, blocking up to the poll timeout
// when nothing is. since is accepted but not used for filtering, any value is fine. A timeout
// yields an empty result, not an error.
func (e *Engine) Poll(ctx context.Context, npid string, since int64) (*domain.PollResult, error) {
	start := time.Now()
	deadline := start.Add(e.settings.PollTimeout)

	sig := e.signals.Acquire(npid)
	defer e.signals.Release(npid, sig)

	e.metrics.ActivePolls.Inc()
	defer e.metrics.ActivePolls.Dec()
	defer func() {
		e.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	for {
		// taken before draining so a push in between still wakes us
		wake := sig.C()

		if events := e.queue.Drain(npid); len(events) > 0 {
			e.metrics.EventsDelivered.Add(float64(len(events)))
			e.metrics.Polls.WithLabelValues("data").Inc()
			e.logger.Debug("Poll delivered events", zap.String("npid", npid), zap.Int("count", len(events)))
			return classify(events), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			e.metrics.Polls.WithLabelValues("timeout").Inc()
			return &domain.PollResult{}, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			e.metrics.Polls.WithLabelValues("cancelled").Inc()
			return nil, ctx.Err()
		}
	}
}

// classify turns drained events into a poll result. Status changes are
// listed one by one, repeated requests from the same sender collapse into
// the first one and everything else is passed through in order.
func classify(events []domain.Event) *domain.PollResult {
	res := &domain.PollResult{FriendStatus: []domain.FriendStatus{}}
	requests := make(map[string]struct{})

	for _, ev := range events {
		switch ev.Type {
		case domain.EventStatusChanged:
			res.FriendStatus = append(res.FriendStatus, domain.FriendStatus{Npid: ev.Npid, Status: ev.Status})
		case domain.EventFriendRequestReceived:
			if _, seen := requests[ev.Npid]; seen {
				continue
			}
			requests[ev.Npid] = struct{}{}
			res.Events = append(res.Events, ev)
		default:
			res.Events = append(res.Events, ev)
		}
	}
	return res
}
