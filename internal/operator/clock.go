package operator

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/fairlane/derby/pkg/kvstore"
)

const roundKey = "clock/round"

// PersistentClock is the daemon's monotonic round counter. It survives
// restarts through the store, so deadlines and entropy checkpoints keep
// their meaning across process lifetimes.
type PersistentClock struct {
	kv    kvstore.Store
	round atomic.Uint64
}

func LoadClock(kv kvstore.Store) (*PersistentClock, error) {
	c := &PersistentClock{kv: kv}
	v, err := kv.Get(roundKey)
	if err != nil {
		if err == kvstore.ErrKeyNotFound {
			return c, nil
		}
		return nil, err
	}
	round, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt round counter: %w", err)
	}
	c.round.Store(round)
	return c, nil
}

func (c *PersistentClock) Now() uint64 {
	return c.round.Load()
}

func (c *PersistentClock) Advance() (uint64, error) {
	round := c.round.Add(1)
	if err := c.kv.Set(roundKey, strconv.FormatUint(round, 10)); err != nil {
		return round, err
	}
	return round, nil
}

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	Round uint64
}

func (c *ManualClock) Now() uint64 { return c.Round }

func (c *ManualClock) Set(round uint64) { c.Round = round }
