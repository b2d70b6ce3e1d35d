package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	start int64
	limit int
	dir   string
)

// tipCmd represents the tip command
var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Show the height and hash of the latest block",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := call(http.MethodGet, "/v1/chain/tip", nil)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), content)
	},
}

// blocksCmd represents the blocks command
var blocksCmd = &cobra.Command{
	Use:   "blocks [index]",
	Short: "List blocks or show a single block",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/v1/chain/blocks"

		switch len(args) {
		case 1:
			if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			path += "/" + args[0]

		default:
			qs := url.Values{}
			if start >= 0 {
				qs.Set("start", strconv.FormatInt(start, 10))
			}
			if limit > 0 {
				qs.Set("limit", strconv.Itoa(limit))
			}
			if dir != "" {
				qs.Set("dir", dir)
			}
			if len(qs) > 0 {
				path += "?" + qs.Encode()
			}
		}

		content, err := call(http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), content)
	},
}

// mempoolCmd represents the mempool command
var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "List the pending transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := call(http.MethodGet, "/v1/mempool", nil)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), content)
	},
}

func init() {
	rootCmd.AddCommand(tipCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(mempoolCmd)
	blocksCmd.Flags().Int64VarP(&start, "start", "s", -1, "Block number to start from, the tip by default.")
	blocksCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of blocks to return.")
	blocksCmd.Flags().StringVarP(&dir, "dir", "d", "", "Direction to walk, asc or desc.")
}
