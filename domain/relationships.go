package domain

import "time"

type Relationship string

const (
	RelationshipNone            Relationship = "none"
	RelationshipRequestSent     Relationship = "request_sent"
	RelationshipRequestReceived Relationship = "request_received"
	RelationshipFriends         Relationship = "friends"
	RelationshipBlocked         Relationship = "blocked"
	RelationshipSelf            Relationship = "self"
)

// RelationKind is one row of a user's side of the graph.
type RelationKind string

const (
	KindFriend          RelationKind = "friend"
	KindRequestSent     RelationKind = "request_sent"
	KindRequestReceived RelationKind = "request_received"
	KindBlocked         RelationKind = "blocked"
)

// Relation is an entry in one of a user's relationship lists.
type Relation struct {
	Npid string
	At   time.Time
}

// FriendsData is one user's view of the relationship graph.
type FriendsData struct {
	Npid     string
	Friends  []Relation
	Sent     []Relation
	Received []Relation
	Blocked  []Relation
}

func (d *FriendsData) list(kind RelationKind) []Relation {
	switch kind {
	case KindFriend:
		return d.Friends
	case KindRequestSent:
		return d.Sent
	case KindRequestReceived:
		return d.Received
	case KindBlocked:
		return d.Blocked
	}
	return nil
}

// Has reports whether npid is in the list of the given kind.
func (d *FriendsData) Has(kind RelationKind, npid string) bool {
	for _, r := range d.list(kind) {
		if r.Npid == npid {
			return true
		}
	}
	return false
}

// RelationshipTo classifies target from d's point of view.
func (d *FriendsData) RelationshipTo(target string) Relationship {
	switch {
	case d.Has(KindBlocked, target):
		return RelationshipBlocked
	case d.Has(KindFriend, target):
		return RelationshipFriends
	case d.Has(KindRequestSent, target):
		return RelationshipRequestSent
	case d.Has(KindRequestReceived, target):
		return RelationshipRequestReceived
	case d.Npid == target:
		return RelationshipSelf
	default:
		return RelationshipNone
	}
}

type ChangeOp int

const (
	OpInsert ChangeOp = iota
	OpDelete
)

// RelationChange is one row mutation applied inside a single transaction.
type RelationChange struct {
	Op      ChangeOp
	Account string
	Target  string
	Kind    RelationKind
	At      time.Time
}

func Insert(account, target string, kind RelationKind, at time.Time) RelationChange {
	return RelationChange{Op: OpInsert, Account: account, Target: target, Kind: kind, At: at}
}

func Delete(account, target string, kind RelationKind) RelationChange {
	return RelationChange{Op: OpDelete, Account: account, Target: target, Kind: kind}
}
