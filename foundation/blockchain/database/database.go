// Package database handles all the lower level support for maintaining the
// blockchain: the transaction and block data model, their hashing rules and
// the storage contract any persistence backend must satisfy.
package database

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Set of errors a storage implementation reports for the chain.
var (
	ErrEmptyChain    = errors.New("chain is empty")
	ErrBlockNotFound = errors.New("block not found")
	ErrOutOfOrder    = errors.New("block is out of order")
	ErrBlockExists   = errors.New("a different block exists at this number")
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
//
// Write must persist the block and advance the tip as one unit from the
// caller's perspective. A crash must never leave the storage reporting a tip
// that references a block that was not durably written. Writing the block at
// the current tip a second time is a no-op so a failed write can be retried.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	TipHeight() (uint64, error)
	TipHash() (Hash, error)
	ListBlocks(start uint64, limit int, dir Direction) ([]BlockData, error)
	Close() error
}

// =============================================================================

// Direction represents the order blocks are returned by a range query.
type Direction int

// Set of supported directions.
const (
	Ascending Direction = iota
	Descending
)

// ParseDirection converts the string form used by the api into a Direction.
// An empty string defaults to descending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "", "desc", "descending":
		return Descending, nil
	}

	return Descending, fmt.Errorf("invalid direction %q", s)
}

// String implements the fmt.Stringer interface.
func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Range returns the block numbers a range query starting at start should
// visit for a chain whose tip is at height tip. A descending range starting
// past the tip starts at the tip instead.
func Range(start uint64, tip uint64, limit int, dir Direction) []uint64 {
	if limit <= 0 {
		return nil
	}

	var nums []uint64

	switch dir {
	case Ascending:
		for n := start; n <= tip && len(nums) < limit; n++ {
			nums = append(nums, n)
			if n == math.MaxUint64 {
				break
			}
		}

	default:
		if start > tip {
			start = tip
		}
		for n := start; len(nums) < limit; n-- {
			nums = append(nums, n)
			if n == 0 {
				break
			}
		}
	}

	return nums
}

// CheckWrite applies the write rules shared by every storage implementation.
// It reports whether the block still needs to be written. A block at an
// existing number is accepted only when it is the same block.
func CheckWrite(blockData BlockData, empty bool, tipHeight uint64, existing func(num uint64) (Hash, error)) (bool, error) {
	num := blockData.Header.Index

	switch {
	case empty:
		if num != 0 {
			return false, fmt.Errorf("%w: got %d, exp 0", ErrOutOfOrder, num)
		}
		return true, nil

	case num == tipHeight+1:
		return true, nil

	case num <= tipHeight:
		hash, err := existing(num)
		if err != nil {
			return false, err
		}
		if hash != blockData.Hash {
			return false, fmt.Errorf("%w: number %d, got %s, exp %s", ErrBlockExists, num, blockData.Hash, hash)
		}
		return false, nil
	}

	return false, fmt.Errorf("%w: got %d, exp %d", ErrOutOfOrder, num, tipHeight+1)
}
