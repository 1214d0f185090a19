package domain

import (
	"testing"
	"time"
)

func TestNewStatusEvent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	e := NewStatusEvent("alice", StatusOffline, now)

	if e.Type != EventStatusChanged {
		t.Errorf("Expected type %s, got %s", EventStatusChanged, e.Type)
	}
	if e.Npid != "alice" || e.Status != StatusOffline {
		t.Errorf("Unexpected payload: %+v", e)
	}
	if e.At != now.Unix() {
		t.Errorf("Expected At %d, got %d", now.Unix(), e.At)
	}
	if e.Id == "" {
		t.Error("Event should get an id")
	}
	if other := NewStatusEvent("alice", StatusOffline, now); other.Id == e.Id {
		t.Error("Event ids should be unique")
	}
}

func TestEventOlder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	week := 7 * 24 * time.Hour

	tests := []struct {
		name     string
		at       time.Time
		expected bool
	}{
		{name: "fresh", at: now, expected: false},
		{name: "exactly a week", at: now.Add(-week), expected: false},
		{name: "a week and a second", at: now.Add(-week - time.Second), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvent(EventFriendRequestReceived, "bob", tt.at)
			if got := e.Older(now, week); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPollResultEmpty(t *testing.T) {
	var nilResult *PollResult
	if !nilResult.Empty() {
		t.Error("nil result should be empty")
	}
	if !(&PollResult{}).Empty() {
		t.Error("zero result should be empty")
	}
	r := &PollResult{FriendStatus: []FriendStatus{{Npid: "a", Status: StatusOnline}}}
	if r.Empty() {
		t.Error("result with a status should not be empty")
	}
}
