// Package memory implements the ability to read and write blocks to memory
// using a slice.
package memory

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory using a slice. The block number is the index into the
// slice. This implements the database.Storage interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified database block and stores it in memory.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := uint64(len(m.blocks))

	write, err := database.CheckWrite(blockData, l == 0, l-1, m.hash)
	if err != nil {
		return fmt.Errorf("write block %d: %w", blockData.Header.Index, err)
	}

	if write {
		m.blocks = append(m.blocks, blockData)
	}

	return nil
}

// GetBlock searches the blockchain to locate and return the contents of
// the specified block by number.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if num >= uint64(len(m.blocks)) {
		return database.BlockData{}, fmt.Errorf("get block %d: %w", num, database.ErrBlockNotFound)
	}

	return m.blocks[num], nil
}

// TipHeight returns the number of the latest block.
func (m *Memory) TipHeight() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return 0, database.ErrEmptyChain
	}

	return uint64(len(m.blocks) - 1), nil
}

// TipHash returns the hash of the latest block.
func (m *Memory) TipHash() (database.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return database.Hash{}, database.ErrEmptyChain
	}

	return m.blocks[len(m.blocks)-1].Hash, nil
}

// ListBlocks returns up to limit blocks starting at the specified number in
// the specified direction.
func (m *Memory) ListBlocks(start uint64, limit int, dir database.Direction) ([]database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return nil, nil
	}

	nums := database.Range(start, uint64(len(m.blocks)-1), limit, dir)

	blocks := make([]database.BlockData, 0, len(nums))
	for _, num := range nums {
		blocks = append(blocks, m.blocks[num])
	}

	return blocks, nil
}

// hash returns the hash of a stored block. The lock must be held.
func (m *Memory) hash(num uint64) (database.Hash, error) {
	if num >= uint64(len(m.blocks)) {
		return database.Hash{}, database.ErrBlockNotFound
	}
	return m.blocks[num].Hash, nil
}
