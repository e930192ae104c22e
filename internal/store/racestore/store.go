// Package racestore persists races plus the two pieces of engine-level
// bookkeeping that belong with them: the current (non-terminal) race
// pointer and the aggregate settled liability.
package racestore

import (
	"fmt"
	"strconv"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/kvstore"
)

const (
	racePrefix   = "races/by-id/"
	currentKey   = "races/current"
	liabilityKey = "races/settled_liability"
)

type Store interface {
	Get(id uint64) (*model.Race, error)
	Save(race *model.Race) error

	// Current returns the id of the single non-terminal race, or false.
	Current() (uint64, bool, error)
	SetCurrent(id uint64) error
	ClearCurrent() error

	SettledLiability() (int64, error)
	SaveSettledLiability(v int64) error

	Count() (uint64, error)
}

type store struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) Store {
	return &store{kv: kv}
}

func raceKey(id uint64) string {
	return fmt.Sprintf("%s%020d", racePrefix, id)
}

func (s *store) Get(id uint64) (*model.Race, error) {
	var race model.Race
	found, err := s.kv.GetAny(raceKey(id), &race)
	if err != nil {
		return nil, fmt.Errorf("failed to get race %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &race, nil
}

func (s *store) Save(race *model.Race) error {
	if err := s.kv.SetAny(raceKey(race.ID), race); err != nil {
		return fmt.Errorf("failed to save race %d: %w", race.ID, err)
	}
	return nil
}

func (s *store) Current() (uint64, bool, error) {
	v, err := s.kv.Get(currentKey)
	if err != nil {
		if err == kvstore.ErrKeyNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt current race pointer: %w", err)
	}
	return id, true, nil
}

func (s *store) SetCurrent(id uint64) error {
	return s.kv.Set(currentKey, strconv.FormatUint(id, 10))
}

func (s *store) ClearCurrent() error {
	if err := s.kv.Delete(currentKey); err != nil && err != kvstore.ErrKeyNotFound {
		return err
	}
	return nil
}

func (s *store) SettledLiability() (int64, error) {
	v, err := s.kv.Get(liabilityKey)
	if err != nil {
		if err == kvstore.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *store) SaveSettledLiability(v int64) error {
	return s.kv.Set(liabilityKey, strconv.FormatInt(v, 10))
}

// Count returns the number of races created so far; race ids are dense
// starting at 0, so this doubles as the next id.
func (s *store) Count() (uint64, error) {
	pairs, err := s.kv.List(racePrefix)
	if err != nil {
		return 0, err
	}
	return uint64(len(pairs)), nil
}
