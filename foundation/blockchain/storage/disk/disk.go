// Package disk implements the ability to read and write blocks to disk
// writing each block to a separate block numbered file.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// tipFile is the name of the file holding the tip pointer.
const tipFile = "tip.json"

// tip represents what is written to the tip file.
type tip struct {
	Height uint64        `json:"height"`
	Hash   database.Hash `json:"hash"`
}

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
//
// A block file is made durable before the tip file is replaced so the tip
// never references a block that is not on disk.
type Disk struct {
	dbPath string
	mu     sync.RWMutex
	tip    *tip
}

// New constructs a Disk value for use, loading the tip if the chain already
// exists on disk.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("create %q: %w", dbPath, err)
	}

	d := Disk{dbPath: dbPath}

	data, err := os.ReadFile(filepath.Join(dbPath, tipFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read tip: %w", err)
	default:
		var t tip
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode tip: %w", err)
		}
		d.tip = &t
	}

	return &d, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified database block and stores it on disk in a
// file labeled with the block number, then advances the tip.
func (d *Disk) Write(blockData database.BlockData) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	num := blockData.Header.Index

	var tipHeight uint64
	if d.tip != nil {
		tipHeight = d.tip.Height
	}

	write, err := database.CheckWrite(blockData, d.tip == nil, tipHeight, d.hash)
	if err != nil {
		return fmt.Errorf("write block %d: %w", num, err)
	}
	if !write {
		return nil
	}

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blockData, "", "  ")
	if err != nil {
		return fmt.Errorf("write block %d: marshal: %w", num, err)
	}

	if err := d.writeFile(d.getPath(num), data); err != nil {
		return fmt.Errorf("write block %d: %w", num, err)
	}

	t := tip{Height: num, Hash: blockData.Hash}

	data, err = json.Marshal(t)
	if err != nil {
		return fmt.Errorf("write tip %d: marshal: %w", num, err)
	}

	if err := d.writeFile(filepath.Join(d.dbPath, tipFile), data); err != nil {
		return fmt.Errorf("write tip %d: %w", num, err)
	}

	d.tip = &t

	return nil
}

// GetBlock searches the blockchain on disk to locate and return the
// contents of the specified block by number.
func (d *Disk) GetBlock(num uint64) (database.BlockData, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	blockData, err := d.readBlock(num)
	if err != nil {
		return database.BlockData{}, fmt.Errorf("get block %d: %w", num, err)
	}

	return blockData, nil
}

// TipHeight returns the number of the latest block.
func (d *Disk) TipHeight() (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.tip == nil {
		return 0, database.ErrEmptyChain
	}

	return d.tip.Height, nil
}

// TipHash returns the hash of the latest block.
func (d *Disk) TipHash() (database.Hash, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.tip == nil {
		return database.Hash{}, database.ErrEmptyChain
	}

	return d.tip.Hash, nil
}

// ListBlocks returns up to limit blocks starting at the specified number in
// the specified direction.
func (d *Disk) ListBlocks(start uint64, limit int, dir database.Direction) ([]database.BlockData, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.tip == nil {
		return nil, nil
	}

	nums := database.Range(start, d.tip.Height, limit, dir)

	blocks := make([]database.BlockData, 0, len(nums))
	for _, num := range nums {
		blockData, err := d.readBlock(num)
		if err != nil {
			return nil, fmt.Errorf("list blocks: block %d: %w", num, err)
		}
		blocks = append(blocks, blockData)
	}

	return blocks, nil
}

// =============================================================================

// readBlock opens and decodes the block file. Blocks past the tip are not
// visible even if a file exists for them.
func (d *Disk) readBlock(num uint64) (database.BlockData, error) {
	if d.tip == nil || num > d.tip.Height {
		return database.BlockData{}, database.ErrBlockNotFound
	}

	f, err := os.Open(d.getPath(num))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.BlockData{}, database.ErrBlockNotFound
		}
		return database.BlockData{}, err
	}
	defer f.Close()

	var blockData database.BlockData
	if err := json.NewDecoder(f).Decode(&blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decode: %w", err)
	}

	return blockData, nil
}

// hash returns the hash of a block already on disk. The lock must be held.
func (d *Disk) hash(num uint64) (database.Hash, error) {
	blockData, err := d.readBlock(num)
	if err != nil {
		return database.Hash{}, err
	}
	return blockData.Hash, nil
}

// writeFile replaces the named file so readers either see the old contents
// or the complete new contents. The data is synced before the rename and
// the directory is synced after it.
func (d *Disk) writeFile(name string, data []byte) error {
	f, err := os.CreateTemp(d.dbPath, filepath.Base(name)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return err
	}

	dir, err := os.Open(d.dbPath)
	if err != nil {
		return err
	}
	defer dir.Close()

	return dir.Sync()
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(blockNum uint64) string {
	name := strconv.FormatUint(blockNum, 10)
	return filepath.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}
