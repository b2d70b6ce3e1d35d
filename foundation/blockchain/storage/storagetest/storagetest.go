// Package storagetest provides the behavior every database.Storage
// implementation is tested against.
package storagetest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Chain constructs a linked chain of the specified number of blocks starting
// with a genesis block. The blocks are not mined.
func Chain(t *testing.T, n int) []database.BlockData {
	t.Helper()

	blocks := make([]database.BlockData, 0, n)
	prev := database.ZeroHash

	for i := 0; i < n; i++ {
		var trans []database.Tx
		if i > 0 {
			trans = []database.Tx{
				{From: fmt.Sprintf("user%d", i), To: "sink", Amount: uint64(i), TimeStamp: uint64(1700000000 + i)},
			}
		}

		block, err := database.NewBlock(database.BlockArgs{
			Index:      uint64(i),
			PrevHash:   prev,
			TimeStamp:  uint64(1700000000 + i),
			Difficulty: 1,
			Trans:      trans,
		})
		if err != nil {
			t.Fatalf("building block %d: %v", i, err)
		}

		blockData := database.NewBlockData(block)
		blocks = append(blocks, blockData)
		prev = blockData.Hash
	}

	return blocks
}

// Run executes the storage contract against a fresh storage produced by the
// open function.
func Run(t *testing.T, open func(t *testing.T) database.Storage) {
	t.Log("Given the need to store and read the blockchain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the storage is empty.", testID)
		{
			strg := open(t)
			defer strg.Close()

			if _, err := strg.TipHeight(); !errors.Is(err, database.ErrEmptyChain) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrEmptyChain for the height, got %v.", failed, testID, err)
			}
			if _, err := strg.TipHash(); !errors.Is(err, database.ErrEmptyChain) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrEmptyChain for the hash, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report an empty chain.", success, testID)

			if _, err := strg.GetBlock(0); !errors.Is(err, database.ErrBlockNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrBlockNotFound, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not find any block.", success, testID)

			blocks, err := strg.ListBlocks(0, 10, database.Descending)
			if err != nil || len(blocks) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould list no blocks: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould list no blocks.", success, testID)

			chain := Chain(t, 2)
			if err := strg.Write(chain[1]); !errors.Is(err, database.ErrOutOfOrder) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a first block that is not genesis, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a first block that is not genesis.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen writing a chain of five blocks.", testID)
		{
			strg := open(t)
			defer strg.Close()

			chain := Chain(t, 5)
			for _, blockData := range chain {
				if err := strg.Write(blockData); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %v", failed, testID, blockData.Header.Index, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write the blocks.", success, testID)

			height, err := strg.TipHeight()
			if err != nil || height != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould have height 4, got %d: %v", failed, testID, height, err)
			}
			hash, err := strg.TipHash()
			if err != nil || hash != chain[4].Hash {
				t.Fatalf("\t%s\tTest %d:\tShould have the last block as tip: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould advance the tip.", success, testID)

			for _, exp := range chain {
				got, err := strg.GetBlock(exp.Header.Index)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to get block %d: %v", failed, testID, exp.Header.Index, err)
				}
				if got.Hash != exp.Hash || len(got.Trans) != len(exp.Trans) {
					t.Fatalf("\t%s\tTest %d:\tShould get back block %d as written.", failed, testID, exp.Header.Index)
				}
				if _, err := database.ToBlock(got); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to rebuild block %d: %v", failed, testID, exp.Header.Index, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get back every block as written.", success, testID)

			if _, err := strg.GetBlock(5); !errors.Is(err, database.ErrBlockNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrBlockNotFound past the tip, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not find a block past the tip.", success, testID)

			if err := strg.Write(chain[4]); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept a retried write: %v", failed, testID, err)
			}
			if height, _ := strg.TipHeight(); height != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the tip alone on a retry.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould accept a retried write.", success, testID)

			other := Chain(t, 3)[2]
			other.Hash = database.Hash{0xFF}
			if err := strg.Write(other); !errors.Is(err, database.ErrBlockExists) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a different block at a used number, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a different block at a used number.", success, testID)

			gap := chain[4]
			gap.Header.Index = 9
			if err := strg.Write(gap); !errors.Is(err, database.ErrOutOfOrder) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a gap, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a gap.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen listing ranges of blocks.", testID)
		{
			strg := open(t)
			defer strg.Close()

			for _, blockData := range Chain(t, 6) {
				if err := strg.Write(blockData); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %v", failed, testID, blockData.Header.Index, err)
				}
			}

			type rng struct {
				start uint64
				limit int
				dir   database.Direction
				exp   []uint64
			}

			for _, r := range []rng{
				{start: 1, limit: 3, dir: database.Ascending, exp: []uint64{1, 2, 3}},
				{start: 4, limit: 10, dir: database.Ascending, exp: []uint64{4, 5}},
				{start: 5, limit: 2, dir: database.Descending, exp: []uint64{5, 4}},
				{start: 100, limit: 3, dir: database.Descending, exp: []uint64{5, 4, 3}},
				{start: 1, limit: 10, dir: database.Descending, exp: []uint64{1, 0}},
				{start: 9, limit: 3, dir: database.Ascending, exp: nil},
			} {
				blocks, err := strg.ListBlocks(r.start, r.limit, r.dir)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to list blocks: %v", failed, testID, err)
				}

				var got []uint64
				for _, blockData := range blocks {
					got = append(got, blockData.Header.Index)
				}

				if fmt.Sprint(got) != fmt.Sprint(r.exp) {
					t.Fatalf("\t%s\tTest %d:\tShould list %v from %d %s, got %v.", failed, testID, r.exp, r.start, r.dir, got)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould list blocks in both directions.", success, testID)
		}
	}
}
