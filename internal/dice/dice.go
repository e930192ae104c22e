// Package dice implements a counter-based deterministic random source.
// Every draw is a pure function of (seed, counter): the same seed always
// replays the exact same sequence, which is what makes race outcomes
// reproducible from a single entropy value.
package dice

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// State is an immutable generator position. Roll returns the advanced
// state; callers must thread it through, no draw ever reuses a counter.
type State struct {
	seed    [32]byte
	counter uint64
}

func New(seed [32]byte) State {
	return State{seed: seed}
}

// Counter reports how many 64-bit words have been consumed so far.
func (s State) Counter() uint64 {
	return s.counter
}

func (s State) next() (uint64, State) {
	var buf [40]byte
	copy(buf[:32], s.seed[:])
	binary.BigEndian.PutUint64(buf[32:], s.counter)
	sum := sha256.Sum256(buf[:])
	s.counter++
	return binary.BigEndian.Uint64(sum[:8]), s
}

// Roll returns an unbiased value in [0, n) and the advanced state.
// Rejection sampling: raw words in the biased tail above the largest
// multiple of n are discarded (each discard still consumes a counter).
// n must be > 0.
func (s State) Roll(n uint64) (uint64, State) {
	if n == 0 {
		panic("dice: roll with n == 0")
	}
	// Largest v such that [0, v] covers an exact multiple of n.
	max := math.MaxUint64 - (math.MaxUint64-n+1)%n
	for {
		var v uint64
		v, s = s.next()
		if v <= max {
			return v % n, s
		}
	}
}

// Shuffle performs an in-place Fisher-Yates shuffle of idx and returns
// the advanced state.
func (s State) Shuffle(idx []int) State {
	for i := len(idx) - 1; i > 0; i-- {
		var j uint64
		j, s = s.Roll(uint64(i + 1))
		idx[i], idx[j] = idx[j], idx[i]
	}
	return s
}
