// Package sim runs the deterministic lane race. Given one 256-bit entropy
// value and six lane scores it produces the finish distances, the winning
// lane set and the full finish order. Integer math only, so results are
// bit-identical on every platform.
package sim

import (
	"errors"
	"sort"

	"github.com/fairlane/derby/internal/dice"
)

const (
	// LaneCount is the fixed number of race positions.
	LaneCount = 6
	// TrackLength is the distance a lane must reach to finish.
	TrackLength = 1000
	// MaxTicks bounds the tick loop. With a guaranteed minimum increment of
	// 1 per lane per tick, any race finishes well inside the budget.
	MaxTicks = 500
	// SpeedRange is the width of the per-tick speed roll; speeds are 1..10.
	SpeedRange = 10

	scale = 10000
)

// ErrTickBudgetExhausted indicates the loop ran MaxTicks without a finisher.
// Given the configured constants this cannot happen on valid input; callers
// must treat it as a fatal invariant violation, never retry the same seed.
var ErrTickBudgetExhausted = errors.New("sim: tick budget exhausted without a finisher")

type Result struct {
	// Distances holds each lane's final distance after the finishing tick.
	Distances [LaneCount]uint64
	// Winner is the canonical single winning lane. On a dead heat it is
	// drawn from the tied set; the draw decides only this field.
	Winner int
	// Winners lists every lane tied at the maximum distance, canonical
	// winner first, the rest in ascending lane order.
	Winners []int
	// DeadHeatCount is len(Winners), >= 1.
	DeadHeatCount int
	// Order ranks all six lanes by final distance, ties broken by draw.
	Order [LaneCount]int
	// Ticks is the number of ticks the race ran.
	Ticks int
}

// effectiveScoreBps maps a 1..10 score to a speed multiplier in bps.
// Monotonic, topping out at exactly 1.0 for a perfect score.
func effectiveScoreBps(score int) uint64 {
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return uint64(scale - (10-score)*100)
}

// Run simulates a race. The dice counter advances in a fixed pattern: one
// speed roll per lane per tick, plus one extra roll only when the scaled
// move leaves a fractional remainder. That data-dependent consumption is
// part of the outcome contract; reordering or eliding draws changes results.
func Run(seed [32]byte, scores [LaneCount]int) (*Result, error) {
	d := dice.New(seed)

	var distances [LaneCount]uint64
	finished := false
	ticks := 0

	for tick := 0; tick < MaxTicks && !finished; tick++ {
		for lane := 0; lane < LaneCount; lane++ {
			var roll uint64
			roll, d = d.Roll(SpeedRange)
			speed := roll + 1 // 1..10

			scaled := speed * effectiveScoreBps(scores[lane])
			move := scaled / scale
			if rem := scaled % scale; rem != 0 {
				var r uint64
				r, d = d.Roll(scale)
				if r < rem {
					move++
				}
			}
			if move == 0 {
				move = 1
			}
			distances[lane] += move
		}
		ticks++
		for lane := 0; lane < LaneCount; lane++ {
			if distances[lane] >= TrackLength {
				finished = true
				break
			}
		}
	}
	if !finished {
		return nil, ErrTickBudgetExhausted
	}

	res := &Result{Distances: distances, Ticks: ticks}
	res.resolveFinish(&d)
	return res, nil
}

// resolveFinish computes the winning set, the canonical winner and the full
// finish order. All lanes at the maximum distance are co-winners; the draw
// picks only which of them is the canonical "winner" field.
func (r *Result) resolveFinish(d *dice.State) {
	maxDist := r.Distances[0]
	for _, dist := range r.Distances[1:] {
		if dist > maxDist {
			maxDist = dist
		}
	}

	var tied []int
	for lane := 0; lane < LaneCount; lane++ {
		if r.Distances[lane] == maxDist {
			tied = append(tied, lane)
		}
	}

	winner := tied[0]
	if len(tied) > 1 {
		var pick uint64
		pick, *d = d.Roll(uint64(len(tied)))
		winner = tied[int(pick)]
	}

	r.Winner = winner
	r.DeadHeatCount = len(tied)
	r.Winners = append(r.Winners, winner)
	for _, lane := range tied {
		if lane != winner {
			r.Winners = append(r.Winners, lane)
		}
	}

	r.resolveOrder(d)
}

// resolveOrder ranks lanes strictly by distance; inside each tied group the
// order is drawn via dice. The first group reuses the canonical winner as
// its head so Order[0] always equals Winner.
func (r *Result) resolveOrder(d *dice.State) {
	lanes := make([]int, LaneCount)
	for i := range lanes {
		lanes[i] = i
	}
	sort.SliceStable(lanes, func(a, b int) bool {
		return r.Distances[lanes[a]] > r.Distances[lanes[b]]
	})

	pos := 0
	first := true
	for pos < LaneCount {
		end := pos
		for end < LaneCount && r.Distances[lanes[end]] == r.Distances[lanes[pos]] {
			end++
		}
		group := lanes[pos:end]
		if first && len(group) > 1 {
			// Move the already-drawn canonical winner to the front, then
			// draw the rest.
			for i, lane := range group {
				if lane == r.Winner {
					group[0], group[i] = group[i], group[0]
					break
				}
			}
			*d = d.Shuffle(group[1:])
		} else if len(group) > 1 {
			*d = d.Shuffle(group)
		}
		first = false
		pos = end
	}
	copy(r.Order[:], lanes)
}
