// Package race is the core engine: the lifecycle state machine, betting
// with bankroll risk control, settlement and the claims protocol. All
// operations are serialized behind one mutex, the in-process equivalent of
// the single global sequencer the design assumes, and every guard is
// re-evaluated at operation start, never cached.
package race

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/fairlane/derby/internal/bankroll"
	"github.com/fairlane/derby/internal/beacon"
	"github.com/fairlane/derby/internal/dice"
	"github.com/fairlane/derby/internal/entrant"
	"github.com/fairlane/derby/internal/events"
	"github.com/fairlane/derby/internal/lineup"
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/odds"
	"github.com/fairlane/derby/internal/prob"
	"github.com/fairlane/derby/internal/registry"
	"github.com/fairlane/derby/internal/sim"
	"github.com/fairlane/derby/internal/store/betstore"
	"github.com/fairlane/derby/internal/store/historystore"
	"github.com/fairlane/derby/internal/store/racestore"
	"github.com/fairlane/derby/pkg/logger"
)

type Config struct {
	HouseEdgeBps int64
	MinBet       int64
	MaxBet       int64

	// Windows and cooldown in rounds of the external monotonic counter.
	OddsWindow    uint64
	BettingWindow uint64
	// SettleDelay separates the betting close from the entropy checkpoint
	// so no bet can be placed at or after the round whose entropy decides
	// the race.
	SettleDelay uint64
	Cooldown    uint64

	HouseRoster []string
	HouseOwner  string
	Operator    string
}

type Engine struct {
	mu  sync.Mutex
	cfg Config

	races     racestore.Store
	bets      betstore.Store
	histories historystore.Store
	queue     *entrant.Queue

	reg    registry.Registry
	bank   bankroll.Bankroll
	source beacon.Source
	clock  beacon.Clock
	est    prob.Estimator
	emit   events.Emitter
}

type Deps struct {
	Races     racestore.Store
	Bets      betstore.Store
	Histories historystore.Store
	Queue     *entrant.Queue
	Registry  registry.Registry
	Bankroll  bankroll.Bankroll
	Beacon    beacon.Source
	Clock     beacon.Clock
	Estimator prob.Estimator
	Emitter   events.Emitter
}

func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 1
	}
	emit := deps.Emitter
	if emit == nil {
		emit = events.Noop{}
	}
	est := deps.Estimator
	if est == nil {
		est = prob.Fixed{Bps: odds.Scale / sim.LaneCount}
	}
	return &Engine{
		cfg:       cfg,
		races:     deps.Races,
		bets:      deps.Bets,
		histories: deps.Histories,
		queue:     deps.Queue,
		reg:       deps.Registry,
		bank:      deps.Bankroll,
		source:    deps.Beacon,
		clock:     deps.Clock,
		est:       est,
		emit:      emit,
	}
}

// Estimator exposes the configured probability source so operators can
// drive SetOdds with it.
func (e *Engine) Estimator() prob.Estimator {
	return e.est
}

// --- Queue operations --- //

func (e *Engine) Enqueue(participant, racerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Ownership is checked here as well as at assembly; enqueueing someone
	// else's racer is rejected up front.
	owner, err := e.reg.OwnerOf(racerID)
	if err != nil {
		return err
	}
	if owner != participant {
		return fmt.Errorf("%w: %s does not own %s", entrant.ErrForbiddenAsset, participant, racerID)
	}
	return e.queue.Enqueue(participant, racerID, e.clock.Now())
}

func (e *Engine) Withdraw(participant string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Withdraw(participant)
}

func (e *Engine) QueueEntries() []model.QueueEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Entries()
}

func (e *Engine) QueuePosition(participant string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Position(participant)
}

// --- Lifecycle --- //

// lineupSeed derives the dice seed for lineup assembly. It depends only on
// the race id, so assembly is replayable and every candidate has the same
// selection odds.
func lineupSeed(raceID uint64) [32]byte {
	var buf [14]byte
	copy(buf[:6], "lineup")
	binary.BigEndian.PutUint64(buf[6:], raceID)
	return sha256.Sum256(buf[:])
}

// CreateRace opens the next race: it enforces the single-flight invariant
// and cooldown, auto-cancels a predecessor stuck past its odds deadline,
// assembles the lineup from the queue and snapshots lane scores.
func (e *Engine) CreateRace() (*model.Race, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()

	count, err := e.races.Count()
	if err != nil {
		return nil, err
	}
	if count > 0 {
		prev, err := e.races.Get(count - 1)
		if err != nil {
			return nil, err
		}
		switch {
		case !prev.Settled && !prev.OddsSet && now > prev.OddsDeadline:
			// Predecessor sat in AwaitingOdds past its deadline: cancel it
			// now, restoring its entrants, and proceed without cooldown.
			if err := e.cancelLocked(prev, now); err != nil {
				return nil, err
			}
		case !prev.Settled:
			return nil, ErrPreviousRaceUnsettled
		case now < prev.SettledAt+e.cfg.Cooldown:
			return nil, ErrPreviousRaceUnsettled
		}
	}

	asm, err := lineup.Assemble(e.queue, e.reg, e.cfg.HouseRoster, e.cfg.HouseOwner, dice.New(lineupSeed(count)))
	if err != nil {
		return nil, err
	}

	race := &model.Race{
		ID:            count,
		OddsDeadline:  now + e.cfg.OddsWindow,
		Lanes:         asm.Lanes,
		AssignedCount: asm.AssignedCount,
		Scores:        asm.Scores,
	}
	if err := e.races.Save(race); err != nil {
		return nil, err
	}
	if err := e.races.SetCurrent(race.ID); err != nil {
		return nil, err
	}

	logger.Info("Race created", "race", race.ID, "entrants", race.AssignedCount, "odds_deadline", race.OddsDeadline)
	e.emit.EmitRaceCreated(race)
	return race, nil
}

// SetOdds prices the race from estimated probabilities and opens the
// betting window. Valid only in AwaitingOdds before the odds deadline.
func (e *Engine) SetOdds(raceID uint64, probs [sim.LaneCount]int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	race, err := e.getRace(raceID)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	switch {
	case race.Settled:
		return ErrRaceTerminal
	case race.OddsSet:
		return ErrOddsAlreadySet
	case now > race.OddsDeadline:
		return ErrDeadlinePassed
	}

	adjusted := probs
	odds.AdjustForSymmetry(&adjusted, &race.Scores)

	// Validated before the floor is applied: a floor-clamped lane costs the
	// house edge but must not reject the book.
	if !odds.ValidateOverround(&adjusted, e.cfg.HouseEdgeBps) {
		return ErrOverroundNotRealized
	}

	var posted [sim.LaneCount]int64
	for i, p := range adjusted {
		posted[i] = odds.ProbabilityToOdds(p, e.cfg.HouseEdgeBps)
	}

	race.Odds = posted
	race.OddsSet = true
	race.BettingClose = now + e.cfg.BettingWindow
	race.SettleCheckpoint = race.BettingClose + e.cfg.SettleDelay
	if err := e.races.Save(race); err != nil {
		return err
	}

	logger.Info("Odds set", "race", race.ID, "betting_close", race.BettingClose)
	e.emit.EmitOddsSet(race)
	return nil
}

// CancelRaceNoOdds cancels a race whose odds deadline lapsed without odds.
func (e *Engine) CancelRaceNoOdds(raceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	race, err := e.getRace(raceID)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	switch {
	case race.Settled:
		return ErrRaceTerminal
	case race.OddsSet:
		return ErrOddsAlreadySet
	case now <= race.OddsDeadline:
		return ErrDeadlineNotReached
	}
	return e.cancelLocked(race, now)
}

// AdminCancel is the operator's emergency exit, valid any time before
// settlement. Claims then pay full refunds instead of odds-based winnings.
func (e *Engine) AdminCancel(operator string, raceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if operator != e.cfg.Operator {
		return ErrNotOperator
	}
	race, err := e.getRace(raceID)
	if err != nil {
		return err
	}
	if race.Settled {
		return ErrRaceTerminal
	}
	return e.cancelLocked(race, e.clock.Now())
}

// cancelLocked marks a race cancelled+settled, books refund liability and
// restores the consumed queue entries to the front of the FIFO.
func (e *Engine) cancelLocked(race *model.Race, now uint64) error {
	race.Cancelled = true
	race.Settled = true
	race.SettledAt = now

	if race.TotalPot != 0 {
		race.OutstandingLiability = race.TotalPot
		liab, err := e.races.SettledLiability()
		if err != nil {
			return err
		}
		if err := e.races.SaveSettledLiability(liab + race.TotalPot); err != nil {
			return err
		}
	}

	var restore []model.QueueEntry
	for _, lane := range race.Lanes[:race.AssignedCount] {
		if lane.OriginalOwner == e.cfg.HouseOwner {
			continue
		}
		restore = append(restore, model.QueueEntry{
			Participant: lane.OriginalOwner,
			RacerID:     lane.RacerID,
			EnqueuedAt:  now,
		})
	}
	if err := e.queue.PushFront(restore); err != nil {
		return err
	}

	if err := e.races.Save(race); err != nil {
		return err
	}
	if err := e.races.ClearCurrent(); err != nil {
		return err
	}

	logger.Warn("Race cancelled", "race", race.ID, "pot", race.TotalPot, "restored", len(restore))
	e.emit.EmitRaceCancelled(race)
	return nil
}

// --- Settlement --- //

// SettleRace resolves a race from its checkpoint entropy. Also invoked
// lazily from the claims walk.
func (e *Engine) SettleRace(raceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	race, err := e.getRace(raceID)
	if err != nil {
		return err
	}
	if race.Settled {
		return ErrRaceTerminal
	}
	return e.settleLocked(race)
}

func (e *Engine) settleLocked(race *model.Race) error {
	now := e.clock.Now()
	switch {
	case !race.OddsSet:
		return ErrOddsNotSet
	case now <= race.BettingClose:
		return ErrSettlementNotDue
	case now <= race.SettleCheckpoint:
		return ErrSettlementNotDue
	}

	if !e.source.IsAvailable(race.SettleCheckpoint) {
		return fmt.Errorf("%w: race %d checkpoint %d", ErrEntropyUnavailable, race.ID, race.SettleCheckpoint)
	}
	seed, err := e.source.ValueAt(race.SettleCheckpoint)
	if err != nil {
		if errors.Is(err, beacon.ErrUnavailable) {
			return fmt.Errorf("%w: race %d checkpoint %d", ErrEntropyUnavailable, race.ID, race.SettleCheckpoint)
		}
		return err
	}

	res, err := sim.Run(seed, race.Scores)
	if err != nil {
		logger.Error("Simulation failed", "race", race.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}

	race.Settled = true
	race.Winner = res.Winner
	race.Winners = res.Winners
	race.DeadHeatCount = res.DeadHeatCount
	race.Seed = seed
	race.SettledAt = now

	// An odds-set race nobody bet on carries zero liability whatever the
	// outcome.
	if race.TotalPot != 0 {
		var contribution int64
		for _, w := range race.Winners {
			payoutRate := race.TotalOnLane[w] * race.Odds[w] / odds.Scale
			contribution += payoutRate / int64(race.DeadHeatCount)
		}
		race.OutstandingLiability = contribution
		liab, err := e.races.SettledLiability()
		if err != nil {
			return err
		}
		if err := e.races.SaveSettledLiability(liab + contribution); err != nil {
			return err
		}
	}

	if err := e.races.Save(race); err != nil {
		return err
	}
	if err := e.races.ClearCurrent(); err != nil {
		return err
	}

	logger.Info("Race settled", "race", race.ID,
		"winner", race.Winner, "dead_heat", race.DeadHeatCount, "ticks", res.Ticks)
	e.emit.EmitRaceSettled(race)
	return nil
}

// --- Accessors --- //

func (e *Engine) getRace(raceID uint64) (*model.Race, error) {
	race, err := e.races.Get(raceID)
	if err != nil {
		return nil, err
	}
	if race == nil {
		return nil, fmt.Errorf("%w: %d", ErrRaceNotFound, raceID)
	}
	return race, nil
}

func (e *Engine) Race(raceID uint64) (*model.Race, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getRace(raceID)
}

// CurrentRace returns the single non-terminal race, if any.
func (e *Engine) CurrentRace() (*model.Race, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok, err := e.races.Current()
	if err != nil || !ok {
		return nil, err
	}
	return e.getRace(id)
}

func (e *Engine) BetOf(raceID uint64, bettor string) (*model.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bets.Get(raceID, bettor)
}

func (e *Engine) HistoryOf(bettor string) (*model.History, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.histories.Get(bettor)
}

func (e *Engine) SettledLiability() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.races.SettledLiability()
}
