// Package notify holds pending events per recipient and the wake-up
// signals that long polls block on.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/deemkeen/kinship/domain"
	"go.uber.org/zap"
)

// Queue is a FIFO of events per recipient, mirrored to a JSON side file.
// Lock order is mu before fileMu.
type Queue struct {
	mu     sync.Mutex
	events map[string][]domain.Event

	fileMu sync.Mutex
	path   string
	logger *zap.Logger
}

// NewQueue returns an empty queue. An empty path keeps it in memory only.
func NewQueue(path string, logger *zap.Logger) *Queue {
	return &Queue{
		events: make(map[string][]domain.Event),
		path:   path,
		logger: logger,
	}
}

// Load replaces the queue contents with the side file. A missing file is not an error.
func (q *Queue) Load() error {
	if q.path == "" {
		return nil
	}

	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read events file: %w", err)
	}

	loaded := make(map[string][]domain.Event)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("failed to parse events file %s: %w", q.path, err)
		}
	}
	for npid, list := range loaded {
		if len(list) == 0 {
			delete(loaded, npid)
		}
	}

	q.mu.Lock()
	q.events = loaded
	q.mu.Unlock()

	q.logger.Info("Loaded pending events", zap.String("file", q.path), zap.Int("recipients", len(loaded)))
	return nil
}

// Push appends e to recipient's queue.
func (q *Queue) Push(recipient string, e domain.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events[recipient] = append(q.events[recipient], e)
	q.persistLocked()
}

// Drain removes and returns everything queued for recipient in one step.
func (q *Queue) Drain(recipient string) []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, ok := q.events[recipient]
	if !ok {
		return nil
	}
	delete(q.events, recipient)
	q.persistLocked()
	return list
}

// Remove drops undelivered events of type t about npid from recipient's queue.
func (q *Queue) Remove(recipient string, t domain.EventType, npid string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, ok := q.events[recipient]
	if !ok {
		return 0
	}

	kept := list[:0]
	for _, e := range list {
		if e.Type == t && e.Npid == npid {
			continue
		}
		kept = append(kept, e)
	}
	removed := len(list) - len(kept)
	if removed == 0 {
		return 0
	}

	if len(kept) == 0 {
		delete(q.events, recipient)
	} else {
		q.events[recipient] = kept
	}
	q.persistLocked()
	return removed
}

// Prune drops events older than maxAge and deletes queues left empty.
func (q *Queue) Prune(now time.Time, maxAge time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	pruned := 0
	dirty := false
	for npid, list := range q.events {
		kept := list[:0]
		for _, e := range list {
			if e.Older(now, maxAge) {
				continue
			}
			kept = append(kept, e)
		}
		pruned += len(list) - len(kept)
		if len(kept) == 0 {
			delete(q.events, npid)
			dirty = true
		} else if len(kept) != len(list) {
			q.events[npid] = kept
			dirty = true
		}
	}

	if dirty {
		q.persistLocked()
	}
	return pruned
}

// Len returns the number of events waiting for recipient.
func (q *Queue) Len(recipient string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events[recipient])
}

type QueueSize struct {
	Npid  string
	Count int
}

// Sizes lists every non-empty queue, largest first.
func (q *Queue) Sizes() []QueueSize {
	q.mu.Lock()
	sizes := make([]QueueSize, 0, len(q.events))
	for npid, list := range q.events {
		sizes = append(sizes, QueueSize{Npid: npid, Count: len(list)})
	}
	q.mu.Unlock()

	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].Count != sizes[j].Count {
			return sizes[i].Count > sizes[j].Count
		}
		return sizes[i].Npid < sizes[j].Npid
	})
	return sizes
}

// persistLocked rewrites the side file. Caller holds q.mu.
func (q *Queue) persistLocked() {
	if q.path == "" {
		return
	}

	q.fileMu.Lock()
	defer q.fileMu.Unlock()

	data, err := json.MarshalIndent(q.events, "", "  ")
	if err != nil {
		q.logger.Warn("Failed to encode pending events", zap.Error(err))
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(q.path), filepath.Base(q.path)+".*.tmp")
	if err != nil {
		q.logger.Warn("Failed to write events file", zap.String("file", q.path), zap.Error(err))
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		q.logger.Warn("Failed to write events file", zap.String("file", q.path), zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		q.logger.Warn("Failed to write events file", zap.String("file", q.path), zap.Error(err))
		return
	}
	if err := os.Rename(tmpName, q.path); err != nil {
		os.Remove(tmpName)
		q.logger.Warn("Failed to replace events file", zap.String("file", q.path), zap.Error(err))
	}
}
