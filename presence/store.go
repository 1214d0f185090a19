// Package presence holds the in-memory record of who is connected.
package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/deemkeen/kinship/domain"
)

// Store is the authoritative map of users that are online or not available.
// A record exists iff its status is present; going offline removes it.
type Store struct {
	mu         sync.Mutex
	records    map[string]*domain.Presence
	lastChange map[string]time.Time
	// users that went not_available straight from offline; their friends
	// have not been told they are online yet
	pendingOnline map[string]struct{}
	wake          chan struct{}
	now           func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		records:       make(map[string]*domain.Presence),
		lastChange:    make(map[string]time.Time),
		pendingOnline: make(map[string]struct{}),
		wake:          make(chan struct{}, 1),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update applies a heartbeat and reports what changed.
func (s *Store) Update(npid string, status domain.Status, nowPlaying string) (domain.Transition, error) {
	status, err := domain.ParseStatus(string(status))
	if err != nil {
		return domain.Transition{}, err
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[npid]
	old := domain.StatusOffline
	oldPlaying := ""
	if rec != nil {
		old = rec.Status
		oldPlaying = rec.NowPlaying
	}
	_, pendingBefore := s.pendingOnline[npid]

	t := domain.Transition{
		Npid:          npid,
		Old:           old,
		New:           status,
		StatusChanged: old != status,
	}

	if status == domain.StatusOffline {
		delete(s.records, npid)
		delete(s.pendingOnline, npid)
		t.WentOffline = old != domain.StatusOffline && !pendingBefore
		if t.StatusChanged {
			s.lastChange[npid] = now
		}
		return t, nil
	}

	t.NowPlayingChanged = old != domain.StatusOffline && oldPlaying != nowPlaying

	if rec == nil {
		if len(s.records) == 0 {
			s.signalLocked()
		}
		rec = &domain.Presence{Npid: npid}
		s.records[npid] = rec
	}
	rec.Status = status
	rec.NowPlaying = nowPlaying
	rec.LastHeartbeat = now

	switch {
	case status == domain.StatusOnline:
		delete(s.pendingOnline, npid)
	case old == domain.StatusOffline:
		s.pendingOnline[npid] = struct{}{}
	case old == domain.StatusOnline:
		delete(s.pendingOnline, npid)
	}

	t.CameOnline = t.StatusChanged && status == domain.StatusOnline &&
		(old == domain.StatusOffline || pendingBefore)

	if t.StatusChanged || t.NowPlayingChanged {
		s.lastChange[npid] = now
	}

	return t, nil
}

func (s *Store) signalLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Wake fires when the store goes from empty to non-empty.
func (s *Store) Wake() <-chan struct{} {
	return s.wake
}

// Query never blocks on anything but the store lock; unknown users read as offline.
func (s *Store) Query(npid string) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{Status: domain.StatusOffline}
	if at, ok := s.lastChange[npid]; ok {
		snap.LastActivity = at.Unix()
	}
	if rec, ok := s.records[npid]; ok {
		snap.Status = rec.Status
		snap.NowPlaying = rec.NowPlaying
		if snap.LastActivity == 0 {
			snap.LastActivity = rec.LastHeartbeat.Unix()
		}
	}
	return snap
}

// IsOnline reports whether npid has a record, i.e. is online or not available.
func (s *Store) IsOnline(npid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[npid]
	return ok
}

// OnlineOf filters npids down to those with a record, keeping their order.
func (s *Store) OnlineOf(npids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	online := make([]string, 0, len(npids))
	for _, npid := range npids {
		if _, ok := s.records[npid]; ok {
			online = append(online, npid)
		}
	}
	return online
}

// Evict removes every record whose last heartbeat is more than timeout
// before now and returns the resulting transitions to offline.
func (s *Store) Evict(now time.Time, timeout time.Duration) []domain.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []domain.Transition
	for npid, rec := range s.records {
		if now.Sub(rec.LastHeartbeat) <= timeout {
			continue
		}
		_, pending := s.pendingOnline[npid]
		evicted = append(evicted, domain.Transition{
			Npid:          npid,
			Old:           rec.Status,
			New:           domain.StatusOffline,
			StatusChanged: true,
			WentOffline:   !pending,
		})
		delete(s.records, npid)
		delete(s.pendingOnline, npid)
		s.lastChange[npid] = now
	}

	sort.Slice(evicted, func(i, j int) bool { return evicted[i].Npid < evicted[j].Npid })
	return evicted
}

// PruneLastChange forgets last-seen times older than maxAge and returns how many went.
func (s *Store) PruneLastChange(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for npid, at := range s.lastChange {
		if _, online := s.records[npid]; online {
			continue
		}
		if now.Sub(at) > maxAge {
			delete(s.lastChange, npid)
			pruned++
		}
	}
	return pruned
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// List returns a copy of all records ordered by npid.
func (s *Store) List() []domain.Presence {
	s.mu.Lock()
	list := make([]domain.Presence, 0, len(s.records))
	for _, rec := range s.records {
		list = append(list, *rec)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Npid < list[j].Npid })
	return list
}
