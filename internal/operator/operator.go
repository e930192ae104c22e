// Package operator drives the race engine through its lifecycle: it
// advances the round counter, opens races, prices them, and settles them
// once their entropy checkpoint is reachable. It is the only writer of the
// clock; the engine itself never advances time.
package operator

import (
	"errors"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/race"
	"github.com/fairlane/derby/pkg/logger"
)

type Operator struct {
	engine *race.Engine
	clock  *PersistentClock
	admin  string

	stop chan struct{}
	done chan struct{}
}

func New(engine *race.Engine, clock *PersistentClock, admin string) *Operator {
	return &Operator{
		engine: engine,
		clock:  clock,
		admin:  admin,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Tick advances one round and performs whatever lifecycle work is due.
// Exposed so tests and the daemon loop share the exact same step.
func (o *Operator) Tick() error {
	round, err := o.clock.Advance()
	if err != nil {
		return err
	}

	cur, err := o.engine.CurrentRace()
	if err != nil {
		return err
	}
	if cur == nil {
		return o.openRace(round)
	}

	switch cur.StateOf() {
	case model.StateAwaitingOdds:
		return o.priceRace(cur, round)
	case model.StateBettingOpen:
		return o.maybeSettle(cur, round)
	}
	return nil
}

func (o *Operator) openRace(round uint64) error {
	_, err := o.engine.CreateRace()
	if errors.Is(err, race.ErrPreviousRaceUnsettled) {
		return nil // cooldown still running
	}
	if err != nil {
		logger.Error("Create race failed", "round", round, "err", err)
		return err
	}
	return nil
}

func (o *Operator) priceRace(cur *model.Race, round uint64) error {
	if round > cur.OddsDeadline {
		// Estimation never arrived in the window; cancel for refunds.
		err := o.engine.CancelRaceNoOdds(cur.ID)
		if err != nil && !errors.Is(err, race.ErrRaceTerminal) {
			return err
		}
		return nil
	}

	probs, err := o.engine.Estimator().Estimate(cur.Scores)
	if err != nil {
		logger.Warn("Probability estimation failed, retrying next round", "race", cur.ID, "err", err)
		return nil
	}
	err = o.engine.SetOdds(cur.ID, probs)
	switch {
	case errors.Is(err, race.ErrOddsAlreadySet), errors.Is(err, race.ErrDeadlinePassed):
		return nil
	default:
		return err
	}
}

func (o *Operator) maybeSettle(cur *model.Race, round uint64) error {
	err := o.engine.SettleRace(cur.ID)
	switch {
	case err == nil, errors.Is(err, race.ErrSettlementNotDue), errors.Is(err, race.ErrRaceTerminal):
		return nil
	case errors.Is(err, race.ErrEntropyUnavailable):
		// Permanent for this race; the refund cancellation is the only exit.
		logger.Error("Entropy expired, cancelling race for refunds", "race", cur.ID, "round", round)
		return o.engine.AdminCancel(o.admin, cur.ID)
	default:
		return err
	}
}

// Run loops Tick until Stop is called. tick is provided by the caller so
// the daemon controls pacing (and tests can drive Tick directly).
func (o *Operator) Run(tick <-chan struct{}) {
	defer close(o.done)
	for {
		select {
		case <-o.stop:
			return
		case <-tick:
			if err := o.Tick(); err != nil {
				logger.Error("Operator tick failed", "err", err)
			}
		}
	}
}

func (o *Operator) Stop() {
	close(o.stop)
	<-o.done
}
