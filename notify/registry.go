package notify

import "sync"

// Signal wakes every poller blocked on one npid.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}

	// guarded by Registry.mu
	waiters int
}

func newSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// C returns the channel closed by the next Broadcast. Grab it before
// checking for work so a broadcast in between is not missed.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Broadcast wakes all current waiters.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// Registry maps npids to signals. An entry exists iff it has waiters.
type Registry struct {
	mu      sync.Mutex
	signals map[string]*Signal
}

func NewRegistry() *Registry {
	return &Registry{signals: make(map[string]*Signal)}
}

// Acquire registers a waiter for npid. Every Acquire must be paired with Release.
func (r *Registry) Acquire(npid string) *Signal {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.signals[npid]
	if !ok {
		s = newSignal()
		r.signals[npid] = s
	}
	s.waiters++
	return s
}

// Release deregisters a waiter and drops the signal when it was the last.
func (r *Registry) Release(npid string, s *Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.waiters--
	if s.waiters <= 0 && r.signals[npid] == s {
		delete(r.signals, npid)
	}
}

// Notify wakes pollers of npid, if any, and reports whether there were some.
func (r *Registry) Notify(npid string) bool {
	r.mu.Lock()
	s, ok := r.signals[npid]
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Broadcast()
	return true
}

// Len returns the number of npids currently being polled.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

// Waiters returns how many polls are blocked on npid.
func (r *Registry) Waiters(npid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.signals[npid]; ok {
		return s.waiters
	}
	return 0
}
