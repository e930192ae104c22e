package operator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlane/derby/internal/bankroll"
	"github.com/fairlane/derby/internal/beacon"
	"github.com/fairlane/derby/internal/entrant"
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/prob"
	"github.com/fairlane/derby/internal/race"
	"github.com/fairlane/derby/internal/registry"
	"github.com/fairlane/derby/internal/sim"
	"github.com/fairlane/derby/internal/store/betstore"
	"github.com/fairlane/derby/internal/store/historystore"
	"github.com/fairlane/derby/internal/store/racestore"
	"github.com/fairlane/derby/pkg/kvstore"
)

var testRoster = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

type failingEstimator struct{}

func (failingEstimator) Estimate([sim.LaneCount]int) ([sim.LaneCount]int64, error) {
	return [sim.LaneCount]int64{}, errors.New("estimation service down")
}

func newOperator(t *testing.T, oddsWindow uint64, est prob.Estimator) (*Operator, *race.Engine) {
	t.Helper()

	kv, err := kvstore.NewBadgerStore(t.TempDir(), "", kvstore.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	queue, err := entrant.Load(kv, testRoster)
	require.NoError(t, err)

	reg := registry.NewInMemory()
	for _, id := range testRoster {
		reg.Put(&registry.Racer{ID: id, Owner: "house", Attributes: model.Attributes{A: 5, B: 5, C: 5}})
	}

	clock, err := LoadClock(kv)
	require.NoError(t, err)

	var secret [32]byte
	secret[0] = 0x0B

	eng := race.NewEngine(race.Config{
		HouseEdgeBps:  500,
		MinBet:        1,
		MaxBet:        100000,
		OddsWindow:    oddsWindow,
		BettingWindow: 3,
		SettleDelay:   1,
		Cooldown:      2,
		HouseRoster:   testRoster,
		HouseOwner:    "house",
		Operator:      "ops",
	}, race.Deps{
		Races:     racestore.New(kv),
		Bets:      betstore.New(kv),
		Histories: historystore.New(kv),
		Queue:     queue,
		Registry:  reg,
		Bankroll:  bankroll.NewLedger(kv),
		Beacon:    beacon.NewHashBeacon(secret, clock),
		Clock:     clock,
		Estimator: est,
	})

	return New(eng, clock, "ops"), eng
}

func stateOfCurrent(t *testing.T, eng *race.Engine) model.State {
	t.Helper()
	cur, err := eng.CurrentRace()
	require.NoError(t, err)
	if cur == nil {
		return ""
	}
	return cur.StateOf()
}

func TestTick_FullLifecycle(t *testing.T) {
	op, eng := newOperator(t, 10, prob.Fixed{Bps: 1667})

	// Round 1: nothing exists, a race opens.
	require.NoError(t, op.Tick())
	assert.Equal(t, model.StateAwaitingOdds, stateOfCurrent(t, eng))

	// Round 2: the race gets priced.
	require.NoError(t, op.Tick())
	assert.Equal(t, model.StateBettingOpen, stateOfCurrent(t, eng))

	cur, err := eng.CurrentRace()
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, uint64(5), cur.BettingClose)
	assert.Equal(t, uint64(6), cur.SettleCheckpoint)

	// Rounds 3..6: betting open, settlement not yet due.
	for round := 3; round <= 6; round++ {
		require.NoError(t, op.Tick())
		assert.Equal(t, model.StateBettingOpen, stateOfCurrent(t, eng), "round %d", round)
	}

	// Round 7: the checkpoint entropy exists, the race settles.
	require.NoError(t, op.Tick())
	assert.Equal(t, model.State(""), stateOfCurrent(t, eng))

	settled, err := eng.Race(0)
	require.NoError(t, err)
	assert.Equal(t, model.StateSettled, settled.StateOf())
	assert.Equal(t, uint64(7), settled.SettledAt)

	// Round 8: cooldown holds the next race back.
	require.NoError(t, op.Tick())
	assert.Equal(t, model.State(""), stateOfCurrent(t, eng))

	// Round 9: cooldown over, race 1 opens.
	require.NoError(t, op.Tick())
	cur, err = eng.CurrentRace()
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, uint64(1), cur.ID)
}

func TestTick_CancelsWhenEstimationNeverArrives(t *testing.T) {
	op, eng := newOperator(t, 2, failingEstimator{})

	require.NoError(t, op.Tick()) // round 1: race opens, deadline round 3

	// Rounds 2 and 3: estimation keeps failing, the operator waits.
	require.NoError(t, op.Tick())
	require.NoError(t, op.Tick())
	assert.Equal(t, model.StateAwaitingOdds, stateOfCurrent(t, eng))

	// Round 4: deadline passed, the race is cancelled for refunds.
	require.NoError(t, op.Tick())
	assert.Equal(t, model.State(""), stateOfCurrent(t, eng))

	cancelled, err := eng.Race(0)
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelled, cancelled.StateOf())
}

func TestPersistentClock(t *testing.T) {
	kv, err := kvstore.NewBadgerStore(t.TempDir(), "", kvstore.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	clock, err := LoadClock(kv)
	require.NoError(t, err)
	assert.Zero(t, clock.Now())

	for i := uint64(1); i <= 5; i++ {
		round, err := clock.Advance()
		require.NoError(t, err)
		assert.Equal(t, i, round)
	}
	assert.Equal(t, uint64(5), clock.Now())

	// A restart picks up where the counter left off.
	reloaded, err := LoadClock(kv)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), reloaded.Now())
}

func TestManualClock(t *testing.T) {
	c := &ManualClock{}
	assert.Zero(t, c.Now())
	c.Set(42)
	assert.Equal(t, uint64(42), c.Now())
}
