// Package events publishes engine lifecycle events to NATS as JSON. The
// engine treats emission as best-effort telemetry: a failed publish is
// logged and retried, never allowed to fail the operation that caused it.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/logger"
	"github.com/fairlane/derby/pkg/retry"
)

const (
	TypeRaceCreated   = "race_created"
	TypeOddsSet       = "odds_set"
	TypeBetPlaced     = "bet_placed"
	TypeRaceSettled   = "race_settled"
	TypeRaceCancelled = "race_cancelled"
	TypePayout        = "payout"
)

type Event struct {
	Type      string `json:"type"`
	RaceID    uint64 `json:"race_id"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type Emitter interface {
	EmitRaceCreated(race *model.Race)
	EmitOddsSet(race *model.Race)
	EmitBetPlaced(raceID uint64, bettor string, lane int, amount int64)
	EmitRaceSettled(race *model.Race)
	EmitRaceCancelled(race *model.Race)
	EmitPayout(raceID uint64, bettor string, payout int64)
	Close()
}

type natsEmitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSEmitter(natsURL, subjectPrefix string) (Emitter, error) {
	conn, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			logger.Warn("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return &natsEmitter{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (e *natsEmitter) emit(event Event) {
	event.Timestamp = time.Now().UTC().Unix()
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Marshal event failed", "type", event.Type, "err", err)
		return
	}
	subject := e.subjectPrefix + "." + event.Type
	err = retry.Exponential(func() error {
		return e.conn.Publish(subject, data)
	}, retry.ExponentialConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxElapsedTime:  5 * time.Second,
	})
	if err != nil {
		logger.Error("Publish event failed", "subject", subject, "err", err)
	}
}

func oddsStrings(race *model.Race) []string {
	out := make([]string, len(race.Odds))
	for i, o := range race.Odds {
		out[i] = decimal.New(o, -4).StringFixed(4)
	}
	return out
}

func (e *natsEmitter) EmitRaceCreated(race *model.Race) {
	e.emit(Event{Type: TypeRaceCreated, RaceID: race.ID, Data: map[string]any{
		"lanes":          race.Lanes,
		"scores":         race.Scores,
		"assigned_count": race.AssignedCount,
		"odds_deadline":  race.OddsDeadline,
	}})
}

func (e *natsEmitter) EmitOddsSet(race *model.Race) {
	e.emit(Event{Type: TypeOddsSet, RaceID: race.ID, Data: map[string]any{
		"odds":          oddsStrings(race),
		"betting_close": race.BettingClose,
	}})
}

func (e *natsEmitter) EmitBetPlaced(raceID uint64, bettor string, lane int, amount int64) {
	e.emit(Event{Type: TypeBetPlaced, RaceID: raceID, Data: map[string]any{
		"bettor": bettor,
		"lane":   lane,
		"amount": amount,
	}})
}

func (e *natsEmitter) EmitRaceSettled(race *model.Race) {
	e.emit(Event{Type: TypeRaceSettled, RaceID: race.ID, Data: map[string]any{
		"winner":          race.Winner,
		"winners":         race.Winners,
		"dead_heat_count": race.DeadHeatCount,
		"settled_at":      race.SettledAt,
	}})
}

func (e *natsEmitter) EmitRaceCancelled(race *model.Race) {
	e.emit(Event{Type: TypeRaceCancelled, RaceID: race.ID, Data: map[string]any{
		"total_pot": race.TotalPot,
	}})
}

func (e *natsEmitter) EmitPayout(raceID uint64, bettor string, payout int64) {
	e.emit(Event{Type: TypePayout, RaceID: raceID, Data: map[string]any{
		"bettor": bettor,
		"payout": payout,
	}})
}

func (e *natsEmitter) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}

// Noop drops every event; used when NATS is not configured and in tests.
type Noop struct{}

func (Noop) EmitRaceCreated(*model.Race)             {}
func (Noop) EmitOddsSet(*model.Race)                 {}
func (Noop) EmitBetPlaced(uint64, string, int, int64) {}
func (Noop) EmitRaceSettled(*model.Race)             {}
func (Noop) EmitRaceCancelled(*model.Race)           {}
func (Noop) EmitPayout(uint64, string, int64)        {}
func (Noop) Close()                                  {}
