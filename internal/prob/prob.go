// Package prob supplies per-lane win probability estimates for odds
// setting. The engine treats the estimator as an external collaborator; the
// fixed estimator is the mandated fallback when no service is configured.
package prob

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/fairlane/derby/internal/sim"
)

type Estimator interface {
	// Estimate returns per-lane win probabilities in bps. Implementations
	// need not sum to exactly 10000; the odds engine's symmetry adjustment
	// and overround validation absorb estimator noise.
	Estimate(scores [sim.LaneCount]int) ([sim.LaneCount]int64, error)
}

// Fixed prices every lane at the same configured probability.
type Fixed struct {
	Bps int64
}

func (f Fixed) Estimate(_ [sim.LaneCount]int) ([sim.LaneCount]int64, error) {
	var out [sim.LaneCount]int64
	for i := range out {
		out[i] = f.Bps
	}
	return out, nil
}

// MonteCarlo estimates win probability by replaying the actual simulator
// over derived seeds and counting wins. Dead heats credit every co-winner,
// so the totals can exceed one race per trial; the symmetry adjustment
// downstream keeps equal scores priced equally regardless.
type MonteCarlo struct {
	Trials int
	// Salt decorrelates estimation seeds from settlement seeds.
	Salt [32]byte
}

func (m MonteCarlo) Estimate(scores [sim.LaneCount]int) ([sim.LaneCount]int64, error) {
	trials := m.Trials
	if trials <= 0 {
		trials = 256
	}

	var wins [sim.LaneCount]int64
	var total int64
	for t := 0; t < trials; t++ {
		var buf [40]byte
		copy(buf[:32], m.Salt[:])
		binary.BigEndian.PutUint64(buf[32:], uint64(t))
		seed := sha256.Sum256(buf[:])

		res, err := sim.Run(seed, scores)
		if err != nil {
			return [sim.LaneCount]int64{}, fmt.Errorf("estimation trial %d: %w", t, err)
		}
		for _, lane := range res.Winners {
			wins[lane]++
			total++
		}
	}

	var out [sim.LaneCount]int64
	for i := range out {
		out[i] = wins[i] * 10000 / total
		if out[i] == 0 {
			out[i] = 1
		}
	}
	return out, nil
}
