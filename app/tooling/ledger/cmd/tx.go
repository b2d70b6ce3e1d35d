package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount uint64
)

// txCmd represents the tx command
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Submit a transaction to the mempool",
	RunE: func(cmd *cobra.Command, args []string) error {
		tx := struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Amount uint64 `json:"amount"`
		}{
			From:   from,
			To:     to,
			Amount: amount,
		}

		content, err := call(http.MethodPost, "/v1/tx", tx)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), content)
	},
}

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.Flags().StringVarP(&from, "from", "f", "", "Account sending the amount.")
	txCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the amount.")
	txCmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "Amount to send.")
}
