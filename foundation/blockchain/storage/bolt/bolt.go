// Package bolt implements the ability to read and write blocks to a bbolt
// key value file. Blocks are keyed by their big endian number so a cursor
// walks them in chain order.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"go.etcd.io/bbolt"
)

// Set of buckets and keys used in the file.
var (
	blocksBucket = []byte("blocks")
	metaBucket   = []byte("meta")
	tipHeightKey = []byte("tip_height")
	tipHashKey   = []byte("tip_hash")
)

// Bolt represents the serialization implementation for reading and storing
// blocks in a bbolt database file. This implements the database.Storage
// interface.
type Bolt struct {
	db *bbolt.DB
}

// New opens or creates the database file at the specified path.
func New(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block and advances the tip inside a single transaction.
// Either both are committed or neither is.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return fmt.Errorf("write block %d: marshal: %w", blockData.Header.Index, err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		meta := tx.Bucket(metaBucket)

		tipHeight, err := readTipHeight(meta)
		empty := errors.Is(err, database.ErrEmptyChain)
		if err != nil && !empty {
			return err
		}

		existing := func(num uint64) (database.Hash, error) {
			bd, err := readBlock(blocks, num)
			if err != nil {
				return database.Hash{}, err
			}
			return bd.Hash, nil
		}

		write, err := database.CheckWrite(blockData, empty, tipHeight, existing)
		if err != nil || !write {
			return err
		}

		num := blockData.Header.Index
		if err := blocks.Put(key(num), data); err != nil {
			return err
		}
		if err := meta.Put(tipHeightKey, key(num)); err != nil {
			return err
		}
		return meta.Put(tipHashKey, blockData.Hash[:])
	})

	if err != nil {
		return fmt.Errorf("write block %d: %w", blockData.Header.Index, err)
	}

	return nil
}

// GetBlock returns the block with the specified number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		blockData, err = readBlock(tx.Bucket(blocksBucket), num)
		return err
	})

	if err != nil {
		return database.BlockData{}, fmt.Errorf("get block %d: %w", num, err)
	}

	return blockData, nil
}

// TipHeight returns the number of the latest block.
func (b *Bolt) TipHeight() (uint64, error) {
	var height uint64
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		height, err = readTipHeight(tx.Bucket(metaBucket))
		return err
	})

	return height, err
}

// TipHash returns the hash of the latest block.
func (b *Bolt) TipHash() (database.Hash, error) {
	var hash database.Hash
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(tipHashKey)
		if v == nil {
			return database.ErrEmptyChain
		}
		copy(hash[:], v)
		return nil
	})

	return hash, err
}

// ListBlocks returns up to limit blocks starting at the specified number in
// the specified direction. A cursor is used to walk the keys in order.
func (b *Bolt) ListBlocks(start uint64, limit int, dir database.Direction) ([]database.BlockData, error) {
	var blocks []database.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		tipHeight, err := readTipHeight(tx.Bucket(metaBucket))
		if err != nil {
			if errors.Is(err, database.ErrEmptyChain) {
				return nil
			}
			return err
		}

		nums := database.Range(start, tipHeight, limit, dir)
		if len(nums) == 0 {
			return nil
		}

		c := tx.Bucket(blocksBucket).Cursor()
		next := c.Next
		if dir == database.Descending {
			next = c.Prev
		}

		k, v := c.Seek(key(nums[0]))
		for _, num := range nums {
			if k == nil || binary.BigEndian.Uint64(k) != num {
				return fmt.Errorf("block %d: %w", num, database.ErrBlockNotFound)
			}

			var blockData database.BlockData
			if err := json.Unmarshal(v, &blockData); err != nil {
				return fmt.Errorf("block %d: unmarshal: %w", num, err)
			}
			blocks = append(blocks, blockData)

			k, v = next()
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	return blocks, nil
}

// =============================================================================

// key returns the big endian form of a block number.
func key(num uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, num)
	return k
}

// readTipHeight reads the tip height from the meta bucket.
func readTipHeight(meta *bbolt.Bucket) (uint64, error) {
	v := meta.Get(tipHeightKey)
	if v == nil {
		return 0, database.ErrEmptyChain
	}
	return binary.BigEndian.Uint64(v), nil
}

// readBlock reads and decodes a block from the blocks bucket.
func readBlock(blocks *bbolt.Bucket, num uint64) (database.BlockData, error) {
	v := blocks.Get(key(num))
	if v == nil {
		return database.BlockData{}, database.ErrBlockNotFound
	}

	var blockData database.BlockData
	if err := json.Unmarshal(v, &blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("unmarshal: %w", err)
	}

	return blockData, nil
}
