// Package friends ties presence, event queues and long polls together and
// carries out relationship changes.
package friends

import (
	"context"
	"time"

	"github.com/deemkeen/kinship/domain"
	"github.com/deemkeen/kinship/metrics"
	"github.com/deemkeen/kinship/notify"
	"github.com/deemkeen/kinship/presence"
	"github.com/deemkeen/kinship/util"
	"go.uber.org/zap"
)

// Oracle answers who is whose friend. It is read-only from the engine's side.
type Oracle interface {
	FriendsOf(ctx context.Context, npid string) ([]string, error)
	Relationship(ctx context.Context, a, b string) (domain.Relationship, error)
}

type Settings struct {
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
	PollTimeout      time.Duration
	Retention        time.Duration
}

// MaxPollTimeout caps how long a poll may block.
const MaxPollTimeout = 30 * time.Second

func DefaultSettings() Settings {
	return Settings{
		HeartbeatTimeout: 30 * time.Second,
		SweepInterval:    30 * time.Second,
		PollTimeout:      30 * time.Second,
		Retention:        7 * 24 * time.Hour,
	}
}

// SettingsFromConf fills unset values with the defaults.
func SettingsFromConf(conf util.PresenceConf) Settings {
	s := DefaultSettings()
	if conf.HeartbeatTimeout > 0 {
		s.HeartbeatTimeout = conf.HeartbeatTimeout
	}
	if conf.SweepInterval > 0 {
		s.SweepInterval = conf.SweepInterval
	}
	if conf.PollTimeout > 0 {
		s.PollTimeout = min(conf.PollTimeout, MaxPollTimeout)
	}
	if conf.Retention > 0 {
		s.Retention = conf.Retention
	}
	return s
}

// Engine owns the presence store, the event queue and the poll signals.
// The presence lock is never held while the queue or registry locks are taken.
type Engine struct {
	presence *presence.Store
	queue    *notify.Queue
	signals  *notify.Registry
	oracle   Oracle
	settings Settings
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewEngine(oracle Oracle, queue *notify.Queue, settings Settings, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if m == nil {
		m = metrics.New()
	}
	if settings.PollTimeout > MaxPollTimeout {
		settings.PollTimeout = MaxPollTimeout
	}
	return &Engine{
		presence: presence.NewStore(),
		queue:    queue,
		signals:  notify.NewRegistry(),
		oracle:   oracle,
		settings: settings,
		metrics:  m,
		logger:   logger,
	}
}

func (e *Engine) Presence() *presence.Store { return e.presence }
func (e *Engine) Queue() *notify.Queue       { return e.queue }
func (e *Engine) Signals() *notify.Registry  { return e.signals }
func (e *Engine) Settings() Settings         { return e.settings }

// UpdatePresence records a heartbeat and fans out a visible status change
// to online friends.
func (e *Engine) UpdatePresence(ctx context.Context, npid string, status string, nowPlaying string) (domain.Transition, error) {
	t, err := e.presence.Update(npid, domain.Status(status), nowPlaying)
	if err != nil {
		return t, err
	}
	e.metrics.PresenceUpdates.WithLabelValues(string(t.New)).Inc()
	e.metrics.OnlineUsers.Set(float64(e.presence.Len()))

	switch {
	case t.CameOnline:
		e.logger.Info("User came online", zap.String("npid", npid), zap.String("now_playing", nowPlaying))
		e.fanOut(ctx, npid, domain.StatusOnline)
	case t.WentOffline:
		e.logger.Info("User went offline", zap.String("npid", npid))
		e.fanOut(ctx, npid, domain.StatusOffline)
	case t.StatusChanged:
		e.logger.Debug("Status changed", zap.String("npid", npid),
			zap.String("from", string(t.Old)), zap.String("to", string(t.New)))
	case t.NowPlayingChanged:
		e.logger.Debug("Now playing updated", zap.String("npid", npid), zap.String("now_playing", nowPlaying))
	}

	return t, nil
}

// Snapshot is the non-blocking presence view used for rendering.
func (e *Engine) Snapshot(npid string) domain.Snapshot {
	return e.presence.Query(npid)
}

func (e *Engine) IsOnline(npid string) bool {
	return e.presence.IsOnline(npid)
}

// fanOut tells every online friend of npid about its new status.
// Friends that are offline get nothing.
func (e *Engine) fanOut(ctx context.Context, npid string, status domain.Status) int {
	friends, err := e.oracle.FriendsOf(ctx, npid)
	if err != nil {
		e.logger.Error("Failed to load friends for fan-out", zap.String("npid", npid), zap.Error(err))
		return 0
	}

	targets := e.presence.OnlineOf(friends)
	now := time.Now()
	for _, friend := range targets {
		e.deliver(friend, domain.NewStatusEvent(npid, status, now))
	}

	if len(targets) > 0 {
		e.logger.Debug("Fanned out status change",
			zap.String("npid", npid),
			zap.String("status", string(status)),
			zap.Int("recipients", len(targets)))
	}
	return len(targets)
}

// deliver enqueues ev for recipient and wakes its pollers.
func (e *Engine) deliver(recipient string, ev domain.Event) {
	e.queue.Push(recipient, ev)
	e.metrics.EventsQueued.WithLabelValues(string(ev.Type)).Inc()
	e.signals.Notify(recipient)
}

// NotifyFriendRequest queues a friend_request_received event for recipient.
func (e *Engine) NotifyFriendRequest(recipient, sender string) {
	e.deliver(recipient, domain.NewEvent(domain.EventFriendRequestReceived, sender, time.Now()))
}

// CancelFriendRequest drops an undelivered request event. Already delivered
// events are not recalled.
func (e *Engine) CancelFriendRequest(recipient, sender string) int {
	return e.queue.Remove(recipient, domain.EventFriendRequestReceived, sender)
}

// NotifyFriendAdded tells recipient that friend accepted.
func (e *Engine) NotifyFriendAdded(recipient, friend string) {
	e.deliver(recipient, domain.NewEvent(domain.EventFriendAdded, friend, time.Now()))
}

// Online lists the users with a presence record.
func (e *Engine) Online() []domain.Presence {
	return e.presence.List()
}

// PendingQueues lists recipients with undelivered events.
func (e *Engine) PendingQueues() []notify.QueueSize {
	return e.queue.Sizes()
}

// Polling returns the number of npids with a blocked long poll.
func (e *Engine) Polling() int {
	return e.signals.Len()
}
