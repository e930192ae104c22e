// Package model holds the persistent entities of the derby core.
package model

import "github.com/fairlane/derby/internal/sim"

const LaneCount = sim.LaneCount

// State is the lifecycle phase of a race. Settled and Cancelled are
// terminal; a cancelled race is also marked settled so its slot can never
// be reused and refund claims unlock.
type State string

const (
	StateOpen         State = "open"
	StateAwaitingOdds State = "awaiting_odds"
	StateBettingOpen  State = "betting_open"
	StateSettled      State = "settled"
	StateCancelled    State = "cancelled"
)

// QueueEntry is one participant's pending entry. At most one active entry
// per participant at a time.
type QueueEntry struct {
	Participant string `json:"participant"`
	RacerID     string `json:"racer_id"`
	EnqueuedAt  uint64 `json:"enqueued_at"` // round counter, not wall clock
}

// Lane is a single filled race slot. OriginalOwner is snapshotted at
// assembly time; later asset transfers do not affect a live race.
type Lane struct {
	RacerID       string `json:"racer_id"`
	OriginalOwner string `json:"original_owner"`
}

// Race is the central aggregate. All schedule fields are positions in the
// external monotonic round counter, the same unit the entropy source keys
// its checkpoints by.
type Race struct {
	ID uint64 `json:"id"`

	OddsDeadline     uint64 `json:"odds_deadline"`
	BettingClose     uint64 `json:"betting_close"`
	SettleCheckpoint uint64 `json:"settle_checkpoint"`

	Lanes         [LaneCount]Lane  `json:"lanes"`
	AssignedCount int              `json:"assigned_count"` // lanes filled from the queue
	Scores        [LaneCount]int   `json:"scores"`         // snapshotted at assembly, never recomputed
	Odds          [LaneCount]int64 `json:"odds"`           // bps, 10000 = 1.0000x
	OddsSet       bool             `json:"odds_set"`

	Settled       bool     `json:"settled"`
	Cancelled     bool     `json:"cancelled"`
	Winner        int      `json:"winner"`
	DeadHeatCount int      `json:"dead_heat_count"`
	Winners       []int    `json:"winners"`
	Seed          [32]byte `json:"seed"`
	SettledAt     uint64   `json:"settled_at"`

	TotalPot             int64            `json:"total_pot"`
	TotalOnLane          [LaneCount]int64 `json:"total_on_lane"`
	OutstandingLiability int64            `json:"outstanding_liability"`
}

// StateOf derives the lifecycle phase from the flag set and the current
// round. Guards are always evaluated freshly against this, never cached.
func (r *Race) StateOf() State {
	switch {
	case r.Cancelled:
		return StateCancelled
	case r.Settled:
		return StateSettled
	case r.OddsSet:
		return StateBettingOpen
	default:
		return StateAwaitingOdds
	}
}

// Terminal reports whether the race can never change outcome again.
func (r *Race) Terminal() bool {
	return r.Settled
}

// Bet is a single wager. At most one per (race, bettor); Claimed flips once
// during claim processing and never resets.
type Bet struct {
	Amount  int64 `json:"amount"`
	Lane    int   `json:"lane"`
	Claimed bool  `json:"claimed"`
}

// History is a bettor's append-only chronological bet record with the
// claim cursor. NextClaimIndex only ever advances.
type History struct {
	Races          []uint64 `json:"races"`
	NextClaimIndex int      `json:"next_claim_index"`
}

// Racer attributes as read from the asset registry.
type Attributes struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}
