package database

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Set of reasons a transaction is not accepted.
var (
	ErrMissingFrom   = errors.New("from account is required")
	ErrMissingTo     = errors.New("to account is required")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrSelfTransfer  = errors.New("sending money to yourself")
)

// =============================================================================

// Tx is the transactional information between two parties. The ledger
// records transactions as given and does not check spend authority or
// balances.
//
// The JSON encoding of a Tx is its canonical byte form. The field order must
// not change since it feeds the merkle root of every block.
type Tx struct {
	From      string `json:"from"`      // Account sending the amount.
	To        string `json:"to"`        // Account receiving the amount.
	Amount    uint64 `json:"amount"`    // Amount transferred.
	TimeStamp uint64 `json:"timestamp"` // Unix seconds when the tx was received.
}

// NewTx constructs a new transaction stamped with the current time.
func NewTx(from string, to string, amount uint64) Tx {
	return Tx{
		From:      from,
		To:        to,
		Amount:    amount,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}
}

// Validate checks the transaction can be accepted into the mempool.
func (tx Tx) Validate() error {
	switch {
	case tx.From == "":
		return ErrMissingFrom
	case tx.To == "":
		return ErrMissingTo
	case tx.Amount == 0:
		return ErrInvalidAmount
	case tx.From == tx.To:
		return fmt.Errorf("%w, from %s, to %s", ErrSelfTransfer, tx.From, tx.To)
	}

	return nil
}

// Encode returns the canonical byte encoding of the transaction.
func (tx Tx) Encode() ([]byte, error) {
	return json.Marshal(tx)
}

// Hash implements the merkle Hashable interface for providing a hash
// of a transaction.
func (tx Tx) Hash() ([]byte, error) {
	data, err := tx.Encode()
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return hash[:], nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx == otherTx
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%d@%d", tx.From, tx.To, tx.Amount, tx.TimeStamp)
}
