// Package bankroll is the funds-custody collaborator: it holds the shared
// house pool that wagers flow into and payouts flow out of. The core only
// ever calls Balance, Collect and Pay; the ledger internals stay here.
package bankroll

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/fairlane/derby/pkg/kvstore"
)

var ErrInsufficientFunds = errors.New("bankroll: insufficient funds")

type Bankroll interface {
	// Balance is the house pool available to cover payouts.
	Balance() (int64, error)
	// Collect moves amount from payer into the house pool.
	Collect(payer string, amount int64) error
	// Pay moves amount from the house pool to payee.
	Pay(payee string, amount int64) error
}

// Ledger is a badger-backed account ledger. Per-account balances plus a
// dedicated house pool account, each stored under its own key.
type Ledger struct {
	mu sync.Mutex
	kv kvstore.Store
}

const (
	accountPrefix = "bankroll/accounts/"
	poolKey       = "bankroll/pool"
)

func NewLedger(kv kvstore.Store) *Ledger {
	return &Ledger{kv: kv}
}

func (l *Ledger) balanceOf(key string) (int64, error) {
	v, err := l.kv.Get(key)
	if err != nil {
		if err == kvstore.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (l *Ledger) setBalance(key string, v int64) error {
	return l.kv.Set(key, strconv.FormatInt(v, 10))
}

func (l *Ledger) Balance() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(poolKey)
}

// Fund credits an account, e.g. a deposit arriving from outside.
func (l *Ledger) Fund(account string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, err := l.balanceOf(accountPrefix + account)
	if err != nil {
		return err
	}
	return l.setBalance(accountPrefix+account, bal+amount)
}

// FundPool credits the house pool directly (operator capitalization).
func (l *Ledger) FundPool(amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, err := l.balanceOf(poolKey)
	if err != nil {
		return err
	}
	return l.setBalance(poolKey, bal+amount)
}

// AccountBalance reads a participant's balance.
func (l *Ledger) AccountBalance(account string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(accountPrefix + account)
}

func (l *Ledger) Collect(payer string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := accountPrefix + payer
	bal, err := l.balanceOf(key)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: account %s has %d, needs %d", ErrInsufficientFunds, payer, bal, amount)
	}
	pool, err := l.balanceOf(poolKey)
	if err != nil {
		return err
	}
	if err := l.setBalance(key, bal-amount); err != nil {
		return err
	}
	return l.setBalance(poolKey, pool+amount)
}

func (l *Ledger) Pay(payee string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool, err := l.balanceOf(poolKey)
	if err != nil {
		return err
	}
	if pool < amount {
		return fmt.Errorf("%w: pool has %d, needs %d", ErrInsufficientFunds, pool, amount)
	}
	key := accountPrefix + payee
	bal, err := l.balanceOf(key)
	if err != nil {
		return err
	}
	if err := l.setBalance(poolKey, pool-amount); err != nil {
		return err
	}
	return l.setBalance(key, bal+amount)
}
