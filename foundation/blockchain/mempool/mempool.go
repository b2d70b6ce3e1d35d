// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// RejectError is returned when a transaction is not accepted into the pool.
type RejectError struct {
	Tx  database.Tx
	Err error
}

// Error implements the error interface.
func (re *RejectError) Error() string {
	return fmt.Sprintf("transaction rejected: %s", re.Err)
}

// Unwrap returns the reason the transaction was rejected.
func (re *RejectError) Unwrap() error {
	return re.Err
}

// IsRejected checks if an error of type RejectError exists.
func IsRejected(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}

// =============================================================================

// Mempool represents a cache of pending transactions kept in the order they
// were received.
type Mempool struct {
	pool []database.Tx
	mu   sync.RWMutex
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Ingest validates the transaction and adds it to the back of the pool. It
// returns the size of the pool after the transaction is added.
func (mp *Mempool) Ingest(tx database.Tx) (int, error) {
	if err := tx.Validate(); err != nil {
		return 0, &RejectError{Tx: tx, Err: err}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool), nil
}

// Drain removes and returns up to howMany of the oldest transactions in the
// order they were received. A value of zero or less drains the whole pool.
func (mp *Mempool) Drain(howMany int) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if howMany <= 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	trans := make([]database.Tx, howMany)
	copy(trans, mp.pool[:howMany])

	rest := make([]database.Tx, len(mp.pool)-howMany)
	copy(rest, mp.pool[howMany:])
	mp.pool = rest

	return trans
}

// Requeue puts transactions back at the front of the pool keeping their
// relative order. It is used when a mining attempt fails after a Drain.
func (mp *Mempool) Requeue(trans []database.Tx) {
	if len(trans) == 0 {
		return
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool := make([]database.Tx, 0, len(trans)+len(mp.pool))
	pool = append(pool, trans...)
	pool = append(pool, mp.pool...)
	mp.pool = pool
}

// Copy returns a snapshot of the transactions in the pool in order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
