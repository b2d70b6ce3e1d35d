package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Tip represents the latest block in the chain.
type Tip struct {
	Height uint64
	Hash   database.Hash
}

// QueryTip returns the height and hash of the latest block.
func (s *State) QueryTip() (Tip, error) {
	height, err := s.storage.TipHeight()
	if err != nil {
		return Tip{}, err
	}

	hash, err := s.storage.TipHash()
	if err != nil {
		return Tip{}, err
	}

	return Tip{Height: height, Hash: hash}, nil
}

// QueryHeight returns the number of the latest block.
func (s *State) QueryHeight() (uint64, error) {
	return s.storage.TipHeight()
}

// QueryBlock returns the block with the specified number.
func (s *State) QueryBlock(num uint64) (database.Block, error) {
	blockData, err := s.storage.GetBlock(num)
	if err != nil {
		return database.Block{}, err
	}

	return database.ToBlock(blockData)
}

// QueryBlocks returns up to limit blocks starting at the specified number in
// the specified direction. A nil start begins at the tip.
func (s *State) QueryBlocks(start *uint64, limit int, dir database.Direction) ([]database.Block, error) {
	var from uint64
	if start != nil {
		from = *start
	} else {
		height, err := s.storage.TipHeight()
		if err != nil {
			return nil, err
		}
		from = height
	}

	blocks, err := s.storage.ListBlocks(from, limit, dir)
	if err != nil {
		return nil, err
	}

	out := make([]database.Block, 0, len(blocks))
	for _, blockData := range blocks {
		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, fmt.Errorf("query blocks: %w", err)
		}
		out = append(out, block)
	}

	return out, nil
}

// QueryMempool returns a copy of the pending transactions in order.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
