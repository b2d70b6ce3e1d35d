package state

import "github.com/ardanlabs/ledger/foundation/blockchain/database"

// SubmitTransaction stamps the transaction with the current time and adds
// it to the mempool. Invalid transactions are returned as a
// mempool.RejectError.
func (s *State) SubmitTransaction(from string, to string, amount uint64) (database.Tx, error) {
	tx := database.NewTx(from, to, amount)

	n, err := s.mempool.Ingest(tx)
	if err != nil {
		s.evHandler("state: SubmitTransaction: rejected: tx[%s]: %s", tx, err)
		return database.Tx{}, err
	}

	s.evHandler("state: SubmitTransaction: accepted: tx[%s]: mempool[%d]", tx, n)

	return tx, nil
}
