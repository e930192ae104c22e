// Package entrant implements the persistent FIFO of pending race entries.
// The queue outlives individual races; entries leave it only by being
// consumed into a lineup, withdrawn, or invalidated. Cancelled-race
// participants re-enter at the front, not the back.
package entrant

import (
	"errors"
	"fmt"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/kvstore"
)

// MaxQueueSize bounds the queue; a full scan of it is the most expensive
// queue operation, so the cap doubles as a cost bound.
const MaxQueueSize = 128

var (
	ErrAlreadyQueued  = errors.New("entrant: participant already queued")
	ErrNotQueued      = errors.New("entrant: participant not queued")
	ErrQueueFull      = errors.New("entrant: queue is full")
	ErrForbiddenAsset = errors.New("entrant: house roster assets cannot be entered")
)

const entriesKey = "queue/entries"

// Queue keeps the authoritative order in memory and persists the whole
// list on every mutation. One write per mutation keeps each operation
// all-or-nothing in the store.
type Queue struct {
	kv      kvstore.Store
	roster  map[string]bool
	entries []model.QueueEntry
}

// Load restores the queue from the store. roster lists house-owned racer
// ids, which are rejected at enqueue.
func Load(kv kvstore.Store, roster []string) (*Queue, error) {
	q := &Queue{kv: kv, roster: make(map[string]bool, len(roster))}
	for _, id := range roster {
		q.roster[id] = true
	}
	found, err := kv.GetAny(entriesKey, &q.entries)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	if !found {
		q.entries = nil
	}
	return q, nil
}

func (q *Queue) persist() error {
	if err := q.kv.SetAny(entriesKey, q.entries); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}
	return nil
}

func (q *Queue) indexOf(participant string) int {
	for i, e := range q.entries {
		if e.Participant == participant {
			return i
		}
	}
	return -1
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns the queue in FIFO order.
func (q *Queue) Entries() []model.QueueEntry {
	out := make([]model.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Position(participant string) (int, bool) {
	i := q.indexOf(participant)
	if i < 0 {
		return 0, false
	}
	return i, true
}

func (q *Queue) Enqueue(participant, racerID string, round uint64) error {
	if q.roster[racerID] {
		return ErrForbiddenAsset
	}
	if q.indexOf(participant) >= 0 {
		return ErrAlreadyQueued
	}
	if len(q.entries) >= MaxQueueSize {
		return ErrQueueFull
	}
	q.entries = append(q.entries, model.QueueEntry{
		Participant: participant,
		RacerID:     racerID,
		EnqueuedAt:  round,
	})
	return q.persist()
}

func (q *Queue) Withdraw(participant string) error {
	i := q.indexOf(participant)
	if i < 0 {
		return ErrNotQueued
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return q.persist()
}

// Remove drops a participant without the NotQueued error; used by lineup
// assembly when consuming or invalidating entries.
func (q *Queue) Remove(participant string) error {
	i := q.indexOf(participant)
	if i < 0 {
		return nil
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return q.persist()
}

// PushFront reinserts entries at the head of the FIFO, preserving their
// relative order. Used when a race is cancelled so its participants are
// served first next time. Entries whose participant is meanwhile queued
// again are skipped; capacity overflow drops the tail-most reinsertions.
func (q *Queue) PushFront(entries []model.QueueEntry) error {
	var add []model.QueueEntry
	for _, e := range entries {
		if q.indexOf(e.Participant) >= 0 {
			continue
		}
		if len(add)+len(q.entries) >= MaxQueueSize {
			break
		}
		add = append(add, e)
	}
	if len(add) == 0 {
		return nil
	}
	q.entries = append(add, q.entries...)
	return q.persist()
}
