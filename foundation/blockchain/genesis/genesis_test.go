package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing genesis file: %v", err)
	}
	return path
}

func Test_Load(t *testing.T) {
	t.Log("Given the need to load the genesis settings.")
	{
		def := genesis.Default()

		tests := []struct {
			name    string
			content string
			exp     genesis.Genesis
		}{
			{"partial", `{"difficulty":8}`, genesis.Genesis{Date: def.Date, Data: def.Data, Difficulty: 8, TransPerBlock: def.TransPerBlock}},
			{"zero block size", `{"trans_per_block":0}`, def},
			{"block size", `{"data":"hello","trans_per_block":5}`, genesis.Genesis{Date: def.Date, Data: "hello", Difficulty: def.Difficulty, TransPerBlock: 5}},
		}

		for testID, tt := range tests {
			t.Logf("\tTest %d:\tWhen loading a %s file.", testID, tt.name)
			{
				gen, err := genesis.Load(writeFile(t, tt.content))
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to load the file: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to load the file.", success, testID)

				if !gen.Date.Equal(tt.exp.Date) || gen.Data != tt.exp.Data || gen.Difficulty != tt.exp.Difficulty || gen.TransPerBlock != tt.exp.TransPerBlock {
					t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, gen)
					t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, tt.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get the expected settings.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected settings.", success, testID)
			}
		}

		testID := len(tests)
		t.Logf("\tTest %d:\tWhen no path is provided.", testID)
		{
			gen, err := genesis.Load("")
			if err != nil || gen != def {
				t.Fatalf("\t%s\tTest %d:\tShould get the defaults: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get the defaults.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the file is not valid json.", testID)
		{
			if _, err := genesis.Load(writeFile(t, `{`)); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to decode.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail to decode.", success, testID)
		}
	}
}
