package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var (
	target uint32
	data   string
	maxTxs int
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the pending transactions into the next block",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := struct {
			Target *uint32 `json:"target,omitempty"`
			Data   string  `json:"data,omitempty"`
			MaxTxs int     `json:"max_txs,omitempty"`
		}{
			Data:   data,
			MaxTxs: maxTxs,
		}

		// Leave the target out so the node uses its genesis difficulty.
		if cmd.Flags().Changed("target") {
			req.Target = &target
		}

		content, err := call(http.MethodPost, "/v1/mine", req)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), content)
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().Uint32VarP(&target, "target", "t", 0, "Leading zero bits the block hash must have.")
	mineCmd.Flags().StringVarP(&data, "data", "d", "", "Payload to record in the block.")
	mineCmd.Flags().IntVarP(&maxTxs, "max", "m", 0, "Maximum transactions to include.")
}
