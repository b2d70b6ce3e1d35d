package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
)

func Test_VerifyChain(t *testing.T) {
	t.Log("Given the need to audit a stored chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain was built by the node.", testID)
		{
			strg := memory.New()
			st, _ := newState(t, strg)
			if err := st.EnsureGenesis(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write genesis: %v", failed, testID, err)
			}

			for i := 0; i < 3; i++ {
				if _, err := st.SubmitTransaction("alice", "bob", uint64(i+1)); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
				}
				if _, err := st.MinePending(context.Background(), state.MineArgs{Target: 4}); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
				}
			}

			height, err := state.VerifyChain(strg)
			if err != nil || height != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould verify to height 3, got %d: %v", failed, testID, height, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify to height 3.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a stored block does not link.", testID)
		{
			strg := memory.New()
			st, _ := newState(t, strg)
			if err := st.EnsureGenesis(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write genesis: %v", failed, testID, err)
			}

			// Write around the state so the linkage check is skipped.
			block := mustBlock(t, 1, database.Hash{0x01}, 0)
			if err := strg.Write(database.NewBlockData(block)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the block: %v", failed, testID, err)
			}

			if _, err := state.VerifyChain(strg); !errors.Is(err, state.ErrChainLinkage) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrChainLinkage, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrChainLinkage.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the chain is empty.", testID)
		{
			if _, err := state.VerifyChain(memory.New()); !errors.Is(err, database.ErrEmptyChain) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrEmptyChain, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrEmptyChain.", success, testID)
		}
	}
}
