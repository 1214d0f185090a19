package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStatusChanged         EventType = "status_changed"
	EventFriendRequestReceived EventType = "friend_request_received"
	EventFriendAdded           EventType = "friend_added"
)

// Event is one pending notification for a recipient. The recipient is the
// key of the queue holding it.
type Event struct {
	Id     string    `json:"id"`
	Type   EventType `json:"type"`
	Npid   string    `json:"npid"`
	Status Status    `json:"status,omitempty"`
	At     int64     `json:"at"`
}

func NewEvent(t EventType, npid string, at time.Time) Event {
	return Event{
		Id:   uuid.NewString(),
		Type: t,
		Npid: npid,
		At:   at.Unix(),
	}
}

func NewStatusEvent(npid string, status Status, at time.Time) Event {
	e := NewEvent(EventStatusChanged, npid, at)
	e.Status = status
	return e
}

// Older reports whether the event is older than maxAge at now.
func (e Event) Older(now time.Time, maxAge time.Duration) bool {
	return now.Unix()-e.At > int64(maxAge/time.Second)
}

// FriendStatus is a surfaced status change in a poll response.
type FriendStatus struct {
	Npid   string `json:"npid"`
	Status Status `json:"status"`
}

// PollResult is what a successful poll hands back to the client.
type PollResult struct {
	FriendStatus []FriendStatus `json:"friend_status"`
	Events       []Event        `json:"events,omitempty"`
}

func (r *PollResult) Empty() bool {
	return r == nil || (len(r.FriendStatus) == 0 && len(r.Events) == 0)
}
