package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlane/derby/internal/bankroll"
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/sim"
)

func TestPlaceBet(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bank.FundPool(1000000))
	require.NoError(t, f.bank.Fund("alice", 10000))

	race := openBettable(t, f)
	require.NoError(t, f.eng.PlaceBet("alice", race.ID, 2, 100))

	bal, err := f.bank.AccountBalance("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(9900), bal)

	pool, err := f.bank.Balance()
	require.NoError(t, err)
	assert.Equal(t, int64(1000100), pool)

	updated, err := f.eng.Race(race.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.TotalPot)
	assert.Equal(t, int64(100), updated.TotalOnLane[2])

	bet, err := f.eng.BetOf(race.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, bet)
	assert.Equal(t, int64(100), bet.Amount)
	assert.Equal(t, 2, bet.Lane)
	assert.False(t, bet.Claimed)

	h, err := f.eng.HistoryOf("alice")
	require.NoError(t, err)
	assert.Equal(t, []uint64{race.ID}, h.Races)
}

func TestPlaceBet_Guards(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bank.FundPool(1000000))
	require.NoError(t, f.bank.Fund("alice", 10000))
	require.NoError(t, f.bank.Fund("bob", 10000))

	race, err := f.eng.CreateRace()
	require.NoError(t, err)

	assert.ErrorIs(t, f.eng.PlaceBet("alice", 99, 0, 100), ErrRaceNotFound)
	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, 0, 100), ErrBettingNotOpen)

	require.NoError(t, f.eng.SetOdds(race.ID, evenProbs))

	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, -1, 100), ErrInvalidLane)
	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, sim.LaneCount, 100), ErrInvalidLane)
	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, 0, 0), ErrZeroBet)
	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, 0, -5), ErrZeroBet)
	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, 0, 100001), ErrBetTooLarge)

	require.NoError(t, f.eng.PlaceBet("alice", race.ID, 0, 100))
	assert.ErrorIs(t, f.eng.PlaceBet("alice", race.ID, 1, 100), ErrAlreadyBet,
		"one bet per bettor per race, regardless of lane")

	// Collection happens after every guard; a broke bettor fails there.
	assert.ErrorIs(t, f.eng.PlaceBet("carol", race.ID, 0, 100), bankroll.ErrInsufficientFunds)

	race, err = f.eng.Race(race.ID)
	require.NoError(t, err)
	f.clock.round = race.BettingClose + 1
	assert.ErrorIs(t, f.eng.PlaceBet("bob", race.ID, 0, 100), ErrBettingClosed)

	f.clock.round = race.SettleCheckpoint + 1
	require.NoError(t, f.eng.SettleRace(race.ID))
	assert.ErrorIs(t, f.eng.PlaceBet("bob", race.ID, 0, 100), ErrBettingClosed)
}

func TestPlaceBet_ReserveCheck(t *testing.T) {
	f := newFixture(t)

	// Pool of 100 against 80 of settled liability leaves 20 of headroom.
	race := &model.Race{
		ID:               0,
		OddsSet:          true,
		OddsDeadline:     f.clock.round + 10,
		BettingClose:     f.clock.round + 10,
		SettleCheckpoint: f.clock.round + 11,
	}
	for i := range race.Odds {
		race.Odds[i] = 25000 // 2.5000x
	}
	require.NoError(t, f.races.Save(race))
	require.NoError(t, f.races.SaveSettledLiability(80))
	require.NoError(t, f.bank.FundPool(100))
	require.NoError(t, f.bank.Fund("alice", 1000))
	require.NoError(t, f.bank.Fund("bob", 1000))

	// 10 at 2.5x projects a 25 payout; 80 + 25 > 100.
	assert.ErrorIs(t, f.eng.PlaceBet("alice", 0, 3, 10), ErrInsufficientReserve)

	// 8 at 2.5x projects exactly the remaining 20.
	require.NoError(t, f.eng.PlaceBet("bob", 0, 3, 8))

	// The accepted bet raised the worst case; alice still does not fit.
	assert.ErrorIs(t, f.eng.PlaceBet("alice", 0, 3, 10), ErrInsufficientReserve)
}

func TestProjectedMaxPayout(t *testing.T) {
	race := &model.Race{}
	for i := range race.Odds {
		race.Odds[i] = 20000
	}
	race.TotalOnLane = [sim.LaneCount]int64{100, 300, 0, 0, 0, 0}

	// Candidate on lane 0 overtakes lane 1's standing total.
	assert.Equal(t, int64(800), projectedMaxPayout(race, 0, 300))
	// Candidate on an empty lane; lane 1 stays the worst case.
	assert.Equal(t, int64(600), projectedMaxPayout(race, 2, 100))
}
