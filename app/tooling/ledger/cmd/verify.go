package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage"
	"github.com/spf13/cobra"
)

var (
	storageKind string
	dbPath      string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Audit a stored chain offline, the node must be stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		strg, err := storage.Open(storageKind, dbPath)
		if err != nil {
			return err
		}
		defer strg.Close()

		height, err := state.VerifyChain(strg)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "chain verified: height %d\n", height)
		return err
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&storageKind, "storage", "s", storage.KindBolt, "Storage kind, bolt or disk.")
	verifyCmd.Flags().StringVarP(&dbPath, "db", "p", "zblock/blocks.db", "Path to the storage.")
}
