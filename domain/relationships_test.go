package domain

import (
	"testing"
	"time"
)

func TestRelationshipTo(t *testing.T) {
	now := time.Now()
	data := &FriendsData{
		Npid:     "alice",
		Friends:  []Relation{{Npid: "bob", At: now}},
		Sent:     []Relation{{Npid: "carol", At: now}},
		Received: []Relation{{Npid: "dave", At: now}},
		Blocked:  []Relation{{Npid: "eve", At: now}, {Npid: "bob", At: now}},
	}

	tests := []struct {
		target   string
		expected Relationship
	}{
		{target: "bob", expected: RelationshipBlocked},
		{target: "carol", expected: RelationshipRequestSent},
		{target: "dave", expected: RelationshipRequestReceived},
		{target: "eve", expected: RelationshipBlocked},
		{target: "alice", expected: RelationshipSelf},
		{target: "frank", expected: RelationshipNone},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := data.RelationshipTo(tt.target); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFriendsDataHas(t *testing.T) {
	data := &FriendsData{Friends: []Relation{{Npid: "bob"}}}
	if !data.Has(KindFriend, "bob") {
		t.Error("bob should be a friend")
	}
	if data.Has(KindBlocked, "bob") {
		t.Error("bob should not be blocked")
	}
	if data.Has(RelationKind("unknown"), "bob") {
		t.Error("unknown kinds never match")
	}
}
