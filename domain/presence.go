package domain

import "time"

type Status string

const (
	StatusOnline       Status = "online"
	StatusNotAvailable Status = "not_available"
	StatusOffline      Status = "offline"
)

// ParseStatus validates a status reported by a client.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOnline, StatusNotAvailable, StatusOffline:
		return Status(s), nil
	case "":
		return "", ErrMissingStatus
	default:
		return "", ErrInvalidStatus
	}
}

// Presence is the record held for a user that is online or not available.
type Presence struct {
	Npid          string
	Status        Status
	NowPlaying    string
	LastHeartbeat time.Time
}

// Snapshot is the non-blocking view of a user's presence used for rendering.
type Snapshot struct {
	Status       Status `json:"status"`
	NowPlaying   string `json:"now_playing"`
	LastActivity int64  `json:"last_activity"`
}

// Transition describes what a presence update (or an eviction) changed.
type Transition struct {
	Npid              string
	Old               Status
	New               Status
	StatusChanged     bool
	NowPlayingChanged bool
	// CameOnline is set when friends should be told the user is now online:
	// offline -> online, or online after a not_available stint that began offline.
	CameOnline bool
	// WentOffline is set when a user friends had seen online left.
	WentOffline bool
}
