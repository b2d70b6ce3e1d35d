package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	// A nil channel blocks forever so the case is never selected when
	// interval mining is off.
	var tick <-chan time.Time
	if w.ticker != nil {
		tick = w.ticker.C
	}

	for {
		select {
		case j := <-w.jobs:
			block, err := w.runMiningOperation(j.ctx, j.args)
			j.result <- result{block: block, err: err}

		case <-tick:
			w.runIntervalMining()

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runIntervalMining mines the pending transactions using the genesis
// difficulty when the interval fires.
func (w *Worker) runIntervalMining() {
	length := w.state.QueryMempoolLength()
	if length == 0 {
		return
	}

	w.evHandler("worker: runIntervalMining: MINING: pending txs[%d]", length)

	ctx := context.Background()
	if w.mineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.mineTimeout)
		defer cancel()
	}

	args := state.MineArgs{
		Target: w.state.Genesis().Difficulty,
	}

	if _, err := w.runMiningOperation(ctx, args); err != nil {
		w.evHandler("worker: runIntervalMining: MINING: ERROR: %s", err)
	}
}

// runMiningOperation mines the next block. A shutdown cancels the mining.
func (w *Worker) runMiningOperation(ctx context.Context, args state.MineArgs) (database.Block, error) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Can't return from this function until this G is complete.
	var wg sync.WaitGroup
	wg.Add(1)

	// This G exists to cancel the mining operation.
	go func() {
		defer wg.Done()

		select {
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.state.MinePending(ctx, args)
	duration := time.Since(t)

	cancel()
	wg.Wait()

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if w.observer != nil {
		w.observer(len(block.Transactions()), err, duration)
	}

	if err != nil {
		return database.Block{}, err
	}

	w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%d]: hash[%s]", block.Header.Index, block.Hash())

	return block, nil
}
