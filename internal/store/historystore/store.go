// Package historystore persists each bettor's chronological bet record and
// claim cursor.
package historystore

import (
	"fmt"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/kvstore"
)

const historyPrefix = "history/"

type Store interface {
	Get(bettor string) (*model.History, error)
	Save(bettor string, h *model.History) error
}

type store struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) Store {
	return &store{kv: kv}
}

func (s *store) Get(bettor string) (*model.History, error) {
	var h model.History
	found, err := s.kv.GetAny(historyPrefix+bettor, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", bettor, err)
	}
	if !found {
		return &model.History{}, nil
	}
	return &h, nil
}

func (s *store) Save(bettor string, h *model.History) error {
	if err := s.kv.SetAny(historyPrefix+bettor, h); err != nil {
		return fmt.Errorf("failed to save history for %s: %w", bettor, err)
	}
	return nil
}
