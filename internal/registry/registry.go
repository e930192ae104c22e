// Package registry is the asset-ownership collaborator. The core reads
// current owners (queue validation at assembly time) and racer attributes
// (score snapshots); everything else about assets lives outside the core.
package registry

import (
	"errors"
	"fmt"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/kvstore"
)

var ErrUnknownAsset = errors.New("registry: unknown asset")

type Registry interface {
	OwnerOf(assetID string) (string, error)
	AttributesOf(assetID string) (model.Attributes, error)
}

type Racer struct {
	ID         string           `json:"id"`
	Owner      string           `json:"owner"`
	Attributes model.Attributes `json:"attributes"`
}

const racerPrefix = "registry/racers/"

// Store is a badger-backed registry. Writes happen outside the race core
// (seeding, transfers); the core itself only reads.
type Store struct {
	kv kvstore.Store
}

func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func (s *Store) Put(r *Racer) error {
	if err := s.kv.SetAny(racerPrefix+r.ID, r); err != nil {
		return fmt.Errorf("failed to save racer %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) get(assetID string) (*Racer, error) {
	var r Racer
	found, err := s.kv.GetAny(racerPrefix+assetID, &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return &r, nil
}

func (s *Store) OwnerOf(assetID string) (string, error) {
	r, err := s.get(assetID)
	if err != nil {
		return "", err
	}
	return r.Owner, nil
}

func (s *Store) AttributesOf(assetID string) (model.Attributes, error) {
	r, err := s.get(assetID)
	if err != nil {
		return model.Attributes{}, err
	}
	return r.Attributes, nil
}

// Transfer reassigns ownership; used by tooling and tests to exercise the
// assembly-time ownership revalidation.
func (s *Store) Transfer(assetID, newOwner string) error {
	r, err := s.get(assetID)
	if err != nil {
		return err
	}
	r.Owner = newOwner
	return s.Put(r)
}

// InMemory is a map-backed registry for tests.
type InMemory struct {
	Racers map[string]*Racer
}

func NewInMemory() *InMemory {
	return &InMemory{Racers: make(map[string]*Racer)}
}

func (m *InMemory) Put(r *Racer) { m.Racers[r.ID] = r }

func (m *InMemory) OwnerOf(assetID string) (string, error) {
	r, ok := m.Racers[assetID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return r.Owner, nil
}

func (m *InMemory) AttributesOf(assetID string) (model.Attributes, error) {
	r, ok := m.Racers[assetID]
	if !ok {
		return model.Attributes{}, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return r.Attributes, nil
}
