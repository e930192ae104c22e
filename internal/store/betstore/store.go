// Package betstore persists wagers keyed by (race, bettor).
package betstore

import (
	"fmt"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/kvstore"
)

const betPrefix = "bets/"

type Store interface {
	Get(raceID uint64, bettor string) (*model.Bet, error)
	Save(raceID uint64, bettor string, bet *model.Bet) error
	Has(raceID uint64, bettor string) (bool, error)
}

type store struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) Store {
	return &store{kv: kv}
}

func betKey(raceID uint64, bettor string) string {
	return fmt.Sprintf("%s%020d/%s", betPrefix, raceID, bettor)
}

func (s *store) Get(raceID uint64, bettor string) (*model.Bet, error) {
	var bet model.Bet
	found, err := s.kv.GetAny(betKey(raceID, bettor), &bet)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d/%s: %w", raceID, bettor, err)
	}
	if !found {
		return nil, nil
	}
	return &bet, nil
}

func (s *store) Save(raceID uint64, bettor string, bet *model.Bet) error {
	if err := s.kv.SetAny(betKey(raceID, bettor), bet); err != nil {
		return fmt.Errorf("failed to save bet %d/%s: %w", raceID, bettor, err)
	}
	return nil
}

func (s *store) Has(raceID uint64, bettor string) (bool, error) {
	bet, err := s.Get(raceID, bettor)
	if err != nil {
		return false, err
	}
	return bet != nil, nil
}
