// Package worker implements the mining workflow for the blockchain. A single
// goroutine owns all mining so only one block is ever being appended at a
// time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// ErrShutdown is returned when mining is requested after shutdown.
var ErrShutdown = errors.New("worker is shut down")

// Config represents the settings for the worker.
type Config struct {
	MineInterval time.Duration // How often pending transactions are mined, zero turns it off.
	MineTimeout  time.Duration // Deadline for a mining operation started by the interval.
	Observer     Observer      // Optional, told about every mining operation.
}

// Observer is called after every mining operation with the number of
// transactions in the block, the error if mining failed and how long it took.
type Observer func(trans int, err error, duration time.Duration)

// =============================================================================

// job represents a request to mine the next block.
type job struct {
	ctx    context.Context
	args   state.MineArgs
	result chan result
}

// result represents the outcome of a job.
type result struct {
	block database.Block
	err   error
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	ticker      *time.Ticker
	shut        chan struct{}
	shutOnce    sync.Once
	jobs        chan job
	mineTimeout time.Duration
	observer    Observer
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config, evHandler state.EventHandler) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		state:       st,
		shut:        make(chan struct{}),
		jobs:        make(chan job),
		mineTimeout: cfg.MineTimeout,
		observer:    cfg.Observer,
		evHandler:   ev,
	}

	if cfg.MineInterval > 0 {
		w.ticker = time.NewTicker(cfg.MineInterval)
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work. A mining operation in
// progress is cancelled.
func (w *Worker) Shutdown() {
	w.shutOnce.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		if w.ticker != nil {
			w.evHandler("worker: shutdown: stop ticker")
			w.ticker.Stop()
		}

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.wg.Wait()
	})
}

// Mine asks the worker to mine the next block and waits for the result. If
// another block is being mined, the request waits its turn until the
// context is done.
func (w *Worker) Mine(ctx context.Context, args state.MineArgs) (database.Block, error) {
	j := job{
		ctx:    ctx,
		args:   args,
		result: make(chan result, 1),
	}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return database.Block{}, waitError(ctx.Err())
	case <-w.shut:
		return database.Block{}, ErrShutdown
	}

	r := <-j.result
	return r.block, r.err
}

// =============================================================================

// waitError maps a context error that happened while waiting for the
// worker into the mining errors.
func waitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: waiting for worker: %w", pow.ErrTimeout, err)
	}
	return fmt.Errorf("%w: waiting for worker: %w", pow.ErrCancelled, err)
}
