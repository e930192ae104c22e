package race

import (
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/odds"
	"github.com/fairlane/derby/pkg/logger"
)

// ClaimResult reports what one claim call resolved. A default-mode loss
// comes back with Won=false and Payout=0 so the caller explicitly learns
// the bet lost; that is distinct from ErrNoClaimableBets, which means the
// history is exhausted.
type ClaimResult struct {
	RaceID   uint64
	Lane     int
	Amount   int64
	Payout   int64
	Won      bool
	Refunded bool
}

// Claim resolves the bettor's next unresolved bet in placement order,
// settling its race on demand if needed. It stops on the first win or loss.
func (e *Engine) Claim(bettor string) (*ClaimResult, error) {
	return e.claim(bettor, false)
}

// ClaimNextWinningPayout walks past losses silently and returns the next
// win (or refund). Losses it passes are still marked claimed.
func (e *Engine) ClaimNextWinningPayout(bettor string) (*ClaimResult, error) {
	return e.claim(bettor, true)
}

func (e *Engine) claim(bettor string, skipLosses bool) (*ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.histories.Get(bettor)
	if err != nil {
		return nil, err
	}
	if h.NextClaimIndex >= len(h.Races) {
		return nil, ErrNoClaimableBets
	}

	for h.NextClaimIndex < len(h.Races) {
		raceID := h.Races[h.NextClaimIndex]
		race, err := e.getRace(raceID)
		if err != nil {
			return nil, err
		}

		// On-demand settlement: an old race settles as a side effect of
		// this claim. Entropy expiry propagates up; the cursor must not
		// move past an unresolvable race.
		if !race.Settled {
			if err := e.settleLocked(race); err != nil {
				if saveErr := e.histories.Save(bettor, h); saveErr != nil {
					return nil, saveErr
				}
				return nil, err
			}
		}

		bet, err := e.bets.Get(raceID, bettor)
		if err != nil {
			return nil, err
		}
		if bet == nil || bet.Amount == 0 || bet.Claimed {
			h.NextClaimIndex++
			continue
		}

		won, refunded, payout := resolveBet(race, bet)

		if won {
			// Pay before persisting the claim: a failed transfer leaves the
			// bet unclaimed and retryable. The reserve check at bet time
			// makes failure here a broken bankroll invariant.
			if err := e.bank.Pay(bettor, payout); err != nil {
				logger.Error("Payout failed", "race", raceID, "bettor", bettor, "payout", payout, "err", err)
				return nil, err
			}
		}

		bet.Claimed = true
		h.NextClaimIndex++
		if err := e.bets.Save(raceID, bettor, bet); err != nil {
			return nil, err
		}
		if err := e.histories.Save(bettor, h); err != nil {
			return nil, err
		}

		res := &ClaimResult{
			RaceID:   raceID,
			Lane:     bet.Lane,
			Amount:   bet.Amount,
			Payout:   payout,
			Won:      won,
			Refunded: refunded,
		}

		if !won {
			if skipLosses {
				continue
			}
			return res, nil
		}

		if err := e.reduceLiability(race, payout); err != nil {
			return nil, err
		}

		logger.Info("Payout claimed", "race", raceID, "bettor", bettor, "payout", payout, "refund", refunded)
		e.emit.EmitPayout(raceID, bettor, payout)
		return res, nil
	}

	if err := e.histories.Save(bettor, h); err != nil {
		return nil, err
	}
	return nil, ErrNoClaimableBets
}

// resolveBet decides win/loss and the payout. Cancelled races refund every
// unresolved bet at 1.0000x, bypassing odds. Dead heats split the payout
// rate (not the pot): each co-winning bettor staked independently, so each
// gets odds/deadHeatCount on their own amount.
func resolveBet(race *model.Race, bet *model.Bet) (won, refunded bool, payout int64) {
	if race.Cancelled {
		return true, true, bet.Amount
	}
	for _, w := range race.Winners {
		if bet.Lane == w {
			payout = bet.Amount * race.Odds[bet.Lane] / odds.Scale
			if race.DeadHeatCount > 1 {
				payout /= int64(race.DeadHeatCount)
			}
			return true, false, payout
		}
	}
	return false, false, 0
}

func (e *Engine) reduceLiability(race *model.Race, payout int64) error {
	outstanding := payout
	if outstanding > race.OutstandingLiability {
		outstanding = race.OutstandingLiability
	}
	race.OutstandingLiability -= outstanding
	if err := e.races.Save(race); err != nil {
		return err
	}

	liab, err := e.races.SettledLiability()
	if err != nil {
		return err
	}
	liab -= outstanding
	if liab < 0 {
		liab = 0
	}
	return e.races.SaveSettledLiability(liab)
}
