package bankroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlane/derby/pkg/kvstore"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	kv, err := kvstore.NewBadgerStore(t.TempDir(), "", kvstore.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewLedger(kv)
}

func TestLedger_CollectAndPay(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Fund("alice", 500))
	require.NoError(t, l.FundPool(1000))

	require.NoError(t, l.Collect("alice", 200))

	bal, err := l.AccountBalance("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal)

	pool, err := l.Balance()
	require.NoError(t, err)
	assert.Equal(t, int64(1200), pool)

	require.NoError(t, l.Pay("alice", 450))

	bal, err = l.AccountBalance("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(750), bal)

	pool, err = l.Balance()
	require.NoError(t, err)
	assert.Equal(t, int64(750), pool)
}

func TestLedger_InsufficientFunds(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Fund("alice", 100))
	assert.ErrorIs(t, l.Collect("alice", 101), ErrInsufficientFunds)

	require.NoError(t, l.FundPool(50))
	assert.ErrorIs(t, l.Pay("alice", 51), ErrInsufficientFunds)

	// Failed moves leave balances untouched.
	bal, err := l.AccountBalance("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal)
	pool, err := l.Balance()
	require.NoError(t, err)
	assert.Equal(t, int64(50), pool)
}

func TestLedger_UnknownAccountIsZero(t *testing.T) {
	l := newLedger(t)

	bal, err := l.AccountBalance("nobody")
	require.NoError(t, err)
	assert.Zero(t, bal)

	assert.ErrorIs(t, l.Collect("nobody", 1), ErrInsufficientFunds)
}
