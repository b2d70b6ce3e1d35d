// Package pow implements the proof of work search used to mine blocks. A
// block is solved when the hash of its header has at least the header's
// difficulty worth of leading zero bits.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Set of errors the search can return. All of them leave the caller free to
// retry with a different target or deadline.
var (
	ErrInvalidTarget = errors.New("target exceeds hash length")
	ErrExhausted     = errors.New("nonce space exhausted")
	ErrTimeout       = errors.New("mining timed out")
	ErrCancelled     = errors.New("mining cancelled")
)

// MaxTarget is the largest target that can be satisfied by a hash.
const MaxTarget = database.HashSize * 8

// Result represents a solved header.
type Result struct {
	Header   database.BlockHeader
	Hash     database.Hash
	Attempts uint64 // Number of hashes computed across all workers.
	Worker   int    // Worker that found the nonce.
}

// =============================================================================

// LeadingZeroBits counts the zero bits from the most significant bit of the
// hash, byte by byte, stopping at the first non-zero byte.
func LeadingZeroBits(hash database.Hash) uint {
	var n uint
	for _, b := range hash {
		if b != 0 {
			return n + uint(bits.LeadingZeros8(b))
		}
		n += 8
	}

	return n
}

// Solved reports whether the hash meets the specified target.
func Solved(hash database.Hash, target uint32) bool {
	if target > MaxTarget {
		return false
	}
	return LeadingZeroBits(hash) >= uint(target)
}

// CheckTarget validates a target can be searched for.
func CheckTarget(target uint32) error {
	if target > MaxTarget {
		return fmt.Errorf("%w: got %d, max %d", ErrInvalidTarget, target, MaxTarget)
	}
	return nil
}

// =============================================================================

// Sequential searches for a nonce that solves the header, trying 0, 1, 2, ...
// in order. The header's difficulty is the target. The search stops when the
// context is done.
func Sequential(ctx context.Context, header database.BlockHeader) (Result, error) {
	return Parallel(ctx, header, 1)
}

// Parallel searches for a nonce that solves the header using the specified
// number of workers. Worker k tries k, k+W, k+2W, ... so no nonce is tried
// twice. The first worker to install its result wins and stops the others.
// Parallel does not return until every worker has stopped.
func Parallel(ctx context.Context, header database.BlockHeader, workers int) (Result, error) {
	if err := CheckTarget(header.Difficulty); err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, contextError(err)
	}

	if workers < 1 {
		workers = 1
	}

	// Every nonce satisfies a zero target.
	if header.Difficulty == 0 {
		header.Nonce = 0
		return Result{Header: header, Hash: header.Hash(), Attempts: 1}, nil
	}

	var stop atomic.Bool
	var slot atomic.Pointer[Result]
	var attempts atomic.Uint64

	// The context signal and a winning worker share the same stop flag.
	stopWatch := context.AfterFunc(ctx, func() {
		stop.Store(true)
	})
	defer stopWatch()

	var wg sync.WaitGroup
	wg.Add(workers)

	for k := 0; k < workers; k++ {
		go func(k int) {
			defer wg.Done()
			n := search(&stop, &slot, header, k, uint64(workers))
			attempts.Add(n)
		}(k)
	}

	wg.Wait()

	if res := slot.Load(); res != nil {
		result := *res
		result.Attempts = attempts.Load()
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, contextError(err)
	}

	return Result{}, ErrExhausted
}

// search is run by a single worker. It owns a private copy of the header
// bytes and rewrites the nonce in place on every attempt. It returns the
// number of hashes computed.
func search(stop *atomic.Bool, slot *atomic.Pointer[Result], header database.BlockHeader, worker int, stride uint64) uint64 {
	buf := header.Bytes()
	target := header.Difficulty

	var attempts uint64
	for nonce := uint64(worker); ; nonce += stride {
		if stop.Load() {
			return attempts
		}

		binary.LittleEndian.PutUint64(buf[database.NonceOffset:], nonce)
		hash := database.Hash(sha256.Sum256(buf))
		attempts++

		if Solved(hash, target) {
			solved := header
			solved.Nonce = nonce

			res := Result{
				Header: solved,
				Hash:   hash,
				Worker: worker,
			}

			if slot.CompareAndSwap(nil, &res) {
				stop.Store(true)
			}
			return attempts
		}

		if nonce > math.MaxUint64-stride {
			return attempts
		}
	}
}

// contextError maps a context error into the search errors.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
