// Package lineup assembles exactly six lanes from the entrant queue,
// topping up from the house roster when the queue runs short.
package lineup

import (
	"errors"
	"fmt"

	"github.com/fairlane/derby/internal/dice"
	"github.com/fairlane/derby/internal/entrant"
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/odds"
	"github.com/fairlane/derby/internal/registry"
	"github.com/fairlane/derby/internal/sim"
)

var ErrRosterTooSmall = errors.New("lineup: house roster smaller than lane count")

type Result struct {
	Lanes         [sim.LaneCount]model.Lane
	Scores        [sim.LaneCount]int
	AssignedCount int // lanes filled from the queue
}

// Assemble consumes queue entries into lanes. Ownership is revalidated
// against the registry entry by entry; stale entries are dropped from the
// queue without taking a lane. Selected participants leave the queue as
// part of this call, so nobody is ever both queued and racing.
func Assemble(
	q *entrant.Queue,
	reg registry.Registry,
	roster []string,
	houseOwner string,
	d dice.State,
) (*Result, error) {
	if len(roster) < sim.LaneCount {
		return nil, ErrRosterTooSmall
	}

	var valid []model.QueueEntry
	for _, e := range q.Entries() {
		owner, err := reg.OwnerOf(e.RacerID)
		if err != nil || owner != e.Participant {
			// Entry went stale since enqueue; drop its bookkeeping.
			if rmErr := q.Remove(e.Participant); rmErr != nil {
				return nil, rmErr
			}
			continue
		}
		valid = append(valid, e)
	}

	selected := valid
	if len(valid) > sim.LaneCount {
		// Unbiased partial Fisher-Yates: each entry has equal odds of a
		// lane regardless of queue position.
		picked := make([]model.QueueEntry, len(valid))
		copy(picked, valid)
		for i := 0; i < sim.LaneCount; i++ {
			var j uint64
			j, d = d.Roll(uint64(len(picked) - i))
			picked[i], picked[i+int(j)] = picked[i+int(j)], picked[i]
		}
		selected = picked[:sim.LaneCount]
	}

	res := &Result{AssignedCount: len(selected)}
	for i, e := range selected {
		res.Lanes[i] = model.Lane{RacerID: e.RacerID, OriginalOwner: e.Participant}
		if err := q.Remove(e.Participant); err != nil {
			return nil, err
		}
	}

	// Fill the rest from the house roster, sampling without replacement.
	remaining := append([]string(nil), roster...)
	for lane := len(selected); lane < sim.LaneCount; lane++ {
		var j uint64
		j, d = d.Roll(uint64(len(remaining)))
		id := remaining[j]
		remaining = append(remaining[:j], remaining[j+1:]...)
		res.Lanes[lane] = model.Lane{RacerID: id, OriginalOwner: houseOwner}
	}

	for lane := 0; lane < sim.LaneCount; lane++ {
		attrs, err := reg.AttributesOf(res.Lanes[lane].RacerID)
		if err != nil {
			return nil, fmt.Errorf("lineup: attributes of %s: %w", res.Lanes[lane].RacerID, err)
		}
		res.Scores[lane] = odds.EffectiveScore(attrs.A, attrs.B, attrs.C)
	}

	return res, nil
}
