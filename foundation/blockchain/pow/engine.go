package pow

import (
	"context"
	"runtime"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// EventHandler defines a function that is called when events occur in the
// processing of mining.
type EventHandler func(v string, args ...any)

// Engine runs the search for a configured number of workers.
type Engine struct {
	workers   int
	evHandler EventHandler
}

// New constructs an engine. A worker count of zero or less uses one worker
// per available CPU.
func New(workers int, evHandler EventHandler) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Engine{
		workers:   workers,
		evHandler: ev,
	}
}

// Workers returns the number of workers used by the engine.
func (e *Engine) Workers() int {
	return e.workers
}

// Solve searches for a nonce that solves the header. A single worker engine
// runs the sequential search.
func (e *Engine) Solve(ctx context.Context, header database.BlockHeader) (Result, error) {
	e.evHandler("pow: Solve: MINING: started: blk[%d]: target[%d]: workers[%d]", header.Index, header.Difficulty, e.workers)

	start := time.Now()

	var res Result
	var err error
	switch e.workers {
	case 1:
		res, err = Sequential(ctx, header)
	default:
		res, err = Parallel(ctx, header, e.workers)
	}

	if err != nil {
		e.evHandler("pow: Solve: MINING: ERROR: blk[%d]: %s", header.Index, err)
		return Result{}, err
	}

	e.evHandler("pow: Solve: MINING: SOLVED: blk[%d]: hash[%s]: nonce[%d]: worker[%d]: attempts[%d]: took[%s]", header.Index, res.Hash, res.Header.Nonce, res.Worker, res.Attempts, time.Since(start))

	return res, nil
}
