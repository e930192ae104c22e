package race

import (
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/odds"
	"github.com/fairlane/derby/internal/sim"
	"github.com/fairlane/derby/pkg/logger"
)

// PlaceBet validates and records a wager. Before accepting, the worst-case
// payout across all six lanes is recomputed as if this bet were included;
// the bet is rejected unless the bankroll covers existing settled liability
// plus that projection. Only the current race is inspected; exactly one
// race is ever open for betting.
func (e *Engine) PlaceBet(bettor string, raceID uint64, lane int, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	race, err := e.getRace(raceID)
	if err != nil {
		return err
	}
	if lane < 0 || lane >= sim.LaneCount {
		return ErrInvalidLane
	}

	now := e.clock.Now()
	switch {
	case race.Settled:
		return ErrBettingClosed
	case !race.OddsSet:
		return ErrBettingNotOpen
	case now > race.BettingClose:
		return ErrBettingClosed
	}
	// Unreachable given the state machine, kept as a cheap guard.
	if race.Odds[lane] == 0 {
		return ErrOddsNotSet
	}

	if amount <= 0 || amount < e.cfg.MinBet {
		return ErrZeroBet
	}
	if amount > e.cfg.MaxBet {
		return ErrBetTooLarge
	}

	has, err := e.bets.Has(raceID, bettor)
	if err != nil {
		return err
	}
	if has {
		return ErrAlreadyBet
	}

	projected := projectedMaxPayout(race, lane, amount)
	settledLiab, err := e.races.SettledLiability()
	if err != nil {
		return err
	}
	balance, err := e.bank.Balance()
	if err != nil {
		return err
	}
	if balance < settledLiab+projected {
		return ErrInsufficientReserve
	}

	// All guards passed; collect first, then record.
	if err := e.bank.Collect(bettor, amount); err != nil {
		return err
	}

	race.TotalPot += amount
	race.TotalOnLane[lane] += amount
	if err := e.races.Save(race); err != nil {
		return err
	}
	if err := e.bets.Save(raceID, bettor, &model.Bet{Amount: amount, Lane: lane}); err != nil {
		return err
	}

	h, err := e.histories.Get(bettor)
	if err != nil {
		return err
	}
	h.Races = append(h.Races, raceID)
	if err := e.histories.Save(bettor, h); err != nil {
		return err
	}

	logger.Debug("Bet placed", "race", raceID, "bettor", bettor, "lane", lane, "amount", amount)
	e.emit.EmitBetPlaced(raceID, bettor, lane, amount)
	return nil
}

// projectedMaxPayout is the worst case over lanes with the candidate bet
// applied: max(laneTotal * laneOdds / Scale).
func projectedMaxPayout(race *model.Race, lane int, amount int64) int64 {
	var worst int64
	for l := 0; l < sim.LaneCount; l++ {
		total := race.TotalOnLane[l]
		if l == lane {
			total += amount
		}
		payout := total * race.Odds[l] / odds.Scale
		if payout > worst {
			worst = payout
		}
	}
	return worst
}
