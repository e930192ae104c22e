package race

import "errors"

// Validation errors: bad input, no state change, caller must correct.
var (
	ErrInvalidLane  = errors.New("race: lane out of range")
	ErrZeroBet      = errors.New("race: bet amount must be positive")
	ErrBetTooLarge  = errors.New("race: bet exceeds configured maximum")
	ErrAlreadyBet   = errors.New("race: bettor already wagered on this race")
	ErrNotOperator  = errors.New("race: operator-only operation")
	ErrRaceNotFound = errors.New("race: no such race")
)

// Timing/state errors: wrong lifecycle phase, caller waits or takes the
// alternate path.
var (
	ErrPreviousRaceUnsettled = errors.New("race: previous race not settled or cooldown active")
	ErrRaceTerminal          = errors.New("race: race already settled or cancelled")
	ErrOddsAlreadySet        = errors.New("race: odds already set")
	ErrOddsNotSet            = errors.New("race: odds not set")
	ErrDeadlinePassed        = errors.New("race: odds deadline passed")
	ErrDeadlineNotReached    = errors.New("race: odds deadline not reached yet")
	ErrBettingNotOpen        = errors.New("race: betting window not open")
	ErrBettingClosed         = errors.New("race: betting window closed")
	ErrSettlementNotDue      = errors.New("race: settlement checkpoint not reached yet")
	ErrNoClaimableBets       = errors.New("race: no claimable bets")
)

// Resource errors: transient, may succeed later.
var (
	ErrInsufficientReserve = errors.New("race: bankroll cannot cover worst-case payout")
)

// ErrEntropyUnavailable is permanent for the race instance: the checkpoint
// value expired before settlement. The only escape hatch is administrative
// cancellation for refunds; retrying settlement can never succeed.
var ErrEntropyUnavailable = errors.New("race: entropy unavailable, race can only be cancelled")

// ErrOverroundNotRealized means the converted odds do not realize the
// configured edge; the probabilities are rejected before any state change.
var ErrOverroundNotRealized = errors.New("race: posted odds do not realize configured overround")

// ErrSimulationFailed wraps a simulator invariant violation. It indicates a
// configuration bug, not bad input, and is surfaced distinctly so callers
// never treat it as an ordinary settlement failure.
var ErrSimulationFailed = errors.New("race: simulation invariant violation")
