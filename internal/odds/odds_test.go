package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveScore(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c int
		want    int
	}{
		{"all equal", 5, 5, 5, 5},
		{"rounds up", 5, 5, 6, 5},      // 16/3 = 5.33
		{"rounds nearest up", 5, 6, 6, 6}, // 17/3 = 5.67
		{"minimum", 1, 1, 1, 1},
		{"maximum", 10, 10, 10, 10},
		{"zero means missing, treated as max", 0, 1, 1, 4}, // (10+1+1)/3 = 4
		{"overflow treated as max", 99, 1, 1, 4},
		{"all missing", 0, 0, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveScore(tt.a, tt.b, tt.c))
		})
	}
}

func TestProbabilityToOdds(t *testing.T) {
	// Even chance, no edge: exactly 2.0000x.
	assert.Equal(t, int64(20000), ProbabilityToOdds(5000, 0))

	// Even chance with 5% edge: 1.9000x.
	assert.Equal(t, int64(19000), ProbabilityToOdds(5000, 500))

	// No edge: odds are exactly 1/probability.
	assert.Equal(t, int64(60024), ProbabilityToOdds(1666, 0))

	// Zero probability is priced as 1 bps, not a division failure.
	assert.Equal(t, ProbabilityToOdds(1, 500), ProbabilityToOdds(0, 500))
}

func TestProbabilityToOdds_Floor(t *testing.T) {
	// A near-certain lane would price below 1.01x; the floor binds even
	// when it costs the house part of its configured edge.
	assert.Equal(t, int64(MinDecimalOddsBps), ProbabilityToOdds(9990, 0))
	assert.Equal(t, int64(MinDecimalOddsBps), ProbabilityToOdds(9999, 500))

	// Above the floor the formula value is returned untouched.
	assert.Greater(t, ProbabilityToOdds(5000, 500), int64(MinDecimalOddsBps))
}

func TestAdjustForSymmetry(t *testing.T) {
	probs := [6]int64{1000, 1200, 3000, 3000, 500, 700}
	scores := [6]int{4, 4, 8, 8, 2, 3}

	AdjustForSymmetry(&probs, &scores)

	// Lanes 0 and 1 share score 4: both become the 1100 average.
	assert.Equal(t, int64(1100), probs[0])
	assert.Equal(t, int64(1100), probs[1])
	// Equal inputs stay equal.
	assert.Equal(t, int64(3000), probs[2])
	assert.Equal(t, int64(3000), probs[3])
	// Singleton groups untouched.
	assert.Equal(t, int64(500), probs[4])
	assert.Equal(t, int64(700), probs[5])
}

func TestAdjustForSymmetry_HalfRoundsUp(t *testing.T) {
	probs := [6]int64{1000, 1001, 0, 0, 0, 0}
	scores := [6]int{5, 5, 1, 2, 3, 4}

	AdjustForSymmetry(&probs, &scores)

	// Mean 1000.5 rounds up.
	assert.Equal(t, int64(1001), probs[0])
	assert.Equal(t, int64(1001), probs[1])
}

func TestValidateOverround(t *testing.T) {
	edge := int64(500)

	// A probability book summing to just over one realizes the edge.
	probs := [6]int64{1666, 1666, 1666, 1666, 1666, 1670}
	assert.True(t, ValidateOverround(&probs, edge))

	// One summing to slightly under one cannot also carry a 5% margin.
	under := [6]int64{1666, 1666, 1666, 1666, 1666, 1666}
	assert.False(t, ValidateOverround(&under, edge))

	// Degenerate inputs are rejected.
	var zero [6]int64
	assert.False(t, ValidateOverround(&zero, edge))
	assert.False(t, ValidateOverround(&probs, Scale))
	assert.False(t, ValidateOverround(&probs, -1))
}

func TestValidateOverround_FlooredLaneAccepted(t *testing.T) {
	// A near-certain lane converts below the 1.01x floor. The pre-floor
	// book carries the full overround, so validation passes even though
	// the posted (floored) lane gives part of the edge back.
	probs := [6]int64{9990, 2, 2, 2, 2, 2}
	assert.True(t, ValidateOverround(&probs, 0))
	assert.Equal(t, int64(MinDecimalOddsBps), ProbabilityToOdds(9990, 0))

	assert.True(t, ValidateOverround(&probs, 500))
	assert.Equal(t, int64(MinDecimalOddsBps), ProbabilityToOdds(9990, 500))
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "1.9800", Decimal(19800).StringFixed(4))
	assert.Equal(t, "1.0100", Decimal(MinDecimalOddsBps).StringFixed(4))
}
