// Package beacon abstracts the external entropy source. A checkpoint's
// value becomes defined once the round counter has passed it and expires
// permanently after the retention window; expiry is not retryable.
package beacon

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// Retention is how many subsequent rounds a checkpoint's value stays
// retrievable for.
const Retention = 256

// ErrUnavailable means the checkpoint value is not (or no longer)
// retrievable. Once a checkpoint has expired this is permanent: a race
// waiting on it can only be cancelled for refunds, never settled.
var ErrUnavailable = errors.New("beacon: entropy unavailable for checkpoint")

type Source interface {
	IsAvailable(checkpoint uint64) bool
	ValueAt(checkpoint uint64) ([32]byte, error)
}

// Clock reports the current position in the external monotonic counter.
// All deadlines in the engine compare against this, never wall time.
type Clock interface {
	Now() uint64
}

// HashBeacon derives checkpoint values from a fixed secret by hashing the
// checkpoint number. It mimics a blockhash-style oracle: a value exists
// only once the counter passes the checkpoint and expires Retention rounds
// later.
type HashBeacon struct {
	secret [32]byte
	clock  Clock
}

func NewHashBeacon(secret [32]byte, clock Clock) *HashBeacon {
	return &HashBeacon{secret: secret, clock: clock}
}

func (b *HashBeacon) IsAvailable(checkpoint uint64) bool {
	now := b.clock.Now()
	return checkpoint < now && now-checkpoint <= Retention
}

func (b *HashBeacon) ValueAt(checkpoint uint64) ([32]byte, error) {
	if !b.IsAvailable(checkpoint) {
		return [32]byte{}, ErrUnavailable
	}
	var buf [40]byte
	copy(buf[:32], b.secret[:])
	binary.BigEndian.PutUint64(buf[32:], checkpoint)
	return sha256.Sum256(buf[:]), nil
}

// Manual is a test beacon with explicitly planted values.
type Manual struct {
	Values map[uint64][32]byte
}

func NewManual() *Manual {
	return &Manual{Values: make(map[uint64][32]byte)}
}

func (m *Manual) Plant(checkpoint uint64, value [32]byte) {
	m.Values[checkpoint] = value
}

func (m *Manual) Expire(checkpoint uint64) {
	delete(m.Values, checkpoint)
}

func (m *Manual) IsAvailable(checkpoint uint64) bool {
	_, ok := m.Values[checkpoint]
	return ok
}

func (m *Manual) ValueAt(checkpoint uint64) ([32]byte, error) {
	v, ok := m.Values[checkpoint]
	if !ok {
		return [32]byte{}, ErrUnavailable
	}
	return v, nil
}
