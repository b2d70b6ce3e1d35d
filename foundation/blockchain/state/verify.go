package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// verifyBatch is the number of blocks read from storage at a time.
const verifyBatch = 250

// VerifyChain walks every block in storage from genesis to the tip and
// checks the links, proofs and commitments. It returns the height that was
// verified.
func VerifyChain(strg database.Storage) (uint64, error) {
	tipHeight, err := strg.TipHeight()
	if err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}

	var prev database.Hash
	for next := uint64(0); next <= tipHeight; {
		blocks, err := strg.ListBlocks(next, verifyBatch, database.Ascending)
		if err != nil {
			return 0, fmt.Errorf("verify: list from %d: %w", next, err)
		}
		if len(blocks) == 0 {
			return 0, fmt.Errorf("verify: block %d: %w", next, database.ErrBlockNotFound)
		}

		for _, blockData := range blocks {
			block, err := database.ToBlock(blockData)
			if err != nil {
				return 0, fmt.Errorf("verify: %w", err)
			}

			if block.Header.Index != next {
				return 0, fmt.Errorf("verify: got block %d, exp %d", block.Header.Index, next)
			}

			if block.Header.PrevHash != prev {
				le := LinkageError{
					Index:    block.Header.Index,
					PrevHash: block.Header.PrevHash,
					TipHash:  prev,
				}
				if next > 0 {
					le.TipHeight = next - 1
				}
				return 0, &le
			}

			if block.Header.Index == 0 && len(block.Transactions()) != 0 {
				return 0, errors.New("verify: genesis block has transactions")
			}

			if err := validateBlock(block); err != nil {
				return 0, fmt.Errorf("verify: block %d: %w", block.Header.Index, err)
			}

			prev = block.Hash()
			next++
		}
	}

	return tipHeight, nil
}
