package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// MineArgs represents the set of arguments for mining the next block.
type MineArgs struct {
	MaxTxs int    // Maximum transactions to drain, zero uses the genesis setting.
	Target uint32 // Leading zero bits the block hash must have.
	Data   string // Optional payload, empty means none.
}

// MinePending drains transactions from the mempool, mines them into the next
// block and appends it to the chain. If anything fails the drained
// transactions are put back at the front of the mempool in the same order.
//
// Only one MinePending may run at a time. The worker package provides that.
func (s *State) MinePending(ctx context.Context, args MineArgs) (database.Block, error) {
	if err := pow.CheckTarget(args.Target); err != nil {
		return database.Block{}, err
	}

	maxTxs := args.MaxTxs
	if maxTxs <= 0 {
		maxTxs = int(s.genesis.TransPerBlock)
	}

	trans := s.mempool.Drain(maxTxs)

	s.evHandler("state: MinePending: MINING: drained: txs[%d]: target[%d]", len(trans), args.Target)

	block, err := s.mineBlock(ctx, trans, args)
	if err != nil {
		s.mempool.Requeue(trans)
		s.evHandler("state: MinePending: MINING: requeued: txs[%d]: ERROR: %s", len(trans), err)
		return database.Block{}, err
	}

	return block, nil
}

// mineBlock builds the next block on top of the tip, solves it and appends
// it to the chain.
func (s *State) mineBlock(ctx context.Context, trans []database.Tx, args MineArgs) (database.Block, error) {
	tipHeight, err := s.storage.TipHeight()
	if err != nil {
		return database.Block{}, fmt.Errorf("mine: tip height: %w", err)
	}

	tipHash, err := s.storage.TipHash()
	if err != nil {
		return database.Block{}, fmt.Errorf("mine: tip hash: %w", err)
	}

	block, err := database.NewBlock(database.BlockArgs{
		Index:      tipHeight + 1,
		PrevHash:   tipHash,
		TimeStamp:  uint64(time.Now().UTC().Unix()),
		Difficulty: args.Target,
		Trans:      trans,
		Data:       database.NormalizeData(args.Data),
	})
	if err != nil {
		return database.Block{}, fmt.Errorf("mine: build: %w", err)
	}

	for _, tx := range trans {
		s.evHandler("state: MinePending: MINING: tx[%s]", tx)
	}

	// Perform the proof of work. This can be cancelled through the context.
	res, err := s.engine.Solve(ctx, block.Header)
	if err != nil {
		return database.Block{}, err
	}
	block.Header = res.Header

	if err := s.AppendBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}
