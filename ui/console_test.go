package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/kinship/domain"
	"github.com/deemkeen/kinship/notify"
)

type fakeSource struct {
	online  []domain.Presence
	queues  []notify.QueueSize
	polling int
}

func (f *fakeSource) Online() []domain.Presence          { return f.online }
func (f *fakeSource) PendingQueues() []notify.QueueSize { return f.queues }
func (f *fakeSource) Polling() int                      { return f.polling }

func TestNewModelLoadsRows(t *testing.T) {
	src := &fakeSource{
		online: []domain.Presence{
			{Npid: "alice", Status: domain.StatusOnline, NowPlaying: "Game1", LastHeartbeat: time.Now()},
			{Npid: "bob", Status: domain.StatusNotAvailable, LastHeartbeat: time.Now()},
		},
		queues:  []notify.QueueSize{{Npid: "carol", Count: 3}},
		polling: 1,
	}

	m := NewModel(src, "admin", 120, 40)

	if got := len(m.online.Rows()); got != 2 {
		t.Errorf("Expected 2 online rows, got %d", got)
	}
	if got := len(m.queues.Rows()); got != 1 {
		t.Errorf("Expected 1 queue row, got %d", got)
	}
	if m.polling != 1 {
		t.Errorf("Expected 1 polling, got %d", m.polling)
	}

	view := m.View()
	if !strings.Contains(view, "alice") || !strings.Contains(view, "Game1") {
		t.Errorf("Expected alice in view, got:\n%s", view)
	}
}

func TestTabSwitchesView(t *testing.T) {
	src := &fakeSource{}
	m := NewModel(src, "admin", 120, 40)

	if !strings.Contains(m.View(), "Nobody is online.") {
		t.Error("Expected empty online view")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.state != queuesView {
		t.Fatalf("Expected queues view, got %v", m.state)
	}
	if !strings.Contains(m.View(), "No pending events.") {
		t.Error("Expected empty queues view")
	}
}

func TestRefreshPicksUpChanges(t *testing.T) {
	src := &fakeSource{}
	m := NewModel(src, "admin", 120, 40)

	src.online = []domain.Presence{{Npid: "alice", Status: domain.StatusOnline, LastHeartbeat: time.Now()}}
	updated, cmd := m.Update(refreshMsg(time.Now()))
	m = updated.(Model)

	if len(m.online.Rows()) != 1 {
		t.Error("Expected refresh to load the new row")
	}
	if cmd == nil {
		t.Error("Expected refresh to schedule the next tick")
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(&fakeSource{}, "admin", 120, 40)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}
