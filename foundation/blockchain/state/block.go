package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// Set of errors for blocks that can't be appended.
var (
	ErrChainLinkage = errors.New("chain linkage broken")
	ErrInvalidProof = errors.New("block hash does not meet its difficulty")
)

// LinkageError is returned when a block does not extend the current tip.
// It means more than one writer is appending to the chain.
type LinkageError struct {
	Index      uint64
	PrevHash   database.Hash
	TipHeight  uint64
	TipHash    database.Hash
	EmptyStore bool
}

// Error implements the error interface.
func (le *LinkageError) Error() string {
	if le.EmptyStore {
		return fmt.Sprintf("%s: block %d has no genesis to extend", ErrChainLinkage, le.Index)
	}
	return fmt.Sprintf("%s: block %d prev[%s] does not extend tip %d hash[%s]", ErrChainLinkage, le.Index, le.PrevHash, le.TipHeight, le.TipHash)
}

// Is allows errors.Is to match a LinkageError against ErrChainLinkage.
func (le *LinkageError) Is(target error) bool {
	return target == ErrChainLinkage
}

// =============================================================================

// AppendBlock validates the block extends the current tip and writes it to
// storage. A block that does not link to the tip is never written.
func (s *State) AppendBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendBlock(block)
}

// appendBlock does the work of AppendBlock. The lock must be held.
func (s *State) appendBlock(block database.Block) error {
	s.evHandler("state: AppendBlock: validate block: blk[%d]", block.Header.Index)

	tipHeight, err := s.storage.TipHeight()
	if err != nil {
		if errors.Is(err, database.ErrEmptyChain) {
			return &LinkageError{Index: block.Header.Index, PrevHash: block.Header.PrevHash, EmptyStore: true}
		}
		return fmt.Errorf("append block %d: tip height: %w", block.Header.Index, err)
	}

	tipHash, err := s.storage.TipHash()
	if err != nil {
		return fmt.Errorf("append block %d: tip hash: %w", block.Header.Index, err)
	}

	if block.Header.PrevHash != tipHash || block.Header.Index != tipHeight+1 {
		return &LinkageError{
			Index:     block.Header.Index,
			PrevHash:  block.Header.PrevHash,
			TipHeight: tipHeight,
			TipHash:   tipHash,
		}
	}

	if err := validateBlock(block); err != nil {
		return fmt.Errorf("append block %d: %w", block.Header.Index, err)
	}

	s.evHandler("state: AppendBlock: write to storage: blk[%d]", block.Header.Index)

	if err := s.storage.Write(database.NewBlockData(block)); err != nil {
		return fmt.Errorf("append block %d: %w", block.Header.Index, err)
	}

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// validateBlock checks the block carries a valid proof of work and that the
// header commits to its transactions and payload.
func validateBlock(block database.Block) error {
	if err := pow.CheckTarget(block.Header.Difficulty); err != nil {
		return err
	}

	hash := block.Hash()
	if !pow.Solved(hash, block.Header.Difficulty) {
		return fmt.Errorf("%w: hash[%s] difficulty[%d]", ErrInvalidProof, hash, block.Header.Difficulty)
	}

	if err := block.ValidateMerkleRoot(); err != nil {
		return err
	}

	if dataHash := database.DataHash(block.Data); dataHash != block.Header.DataHash {
		return fmt.Errorf("data hash does not match payload, got %s, exp %s", dataHash, block.Header.DataHash)
	}

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support. The header is rendered the way queries show
// it, so a block without a payload reports a zero data hash.
func (s *State) blockEvent(block database.Block) {
	header := block.Header
	header.DataHash = block.DisplayDataHash()

	blockHeaderJSON, err := json.Marshal(header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Transactions())
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
