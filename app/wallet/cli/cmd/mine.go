package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine the next block.",
	Run: func(cmd *cobra.Command, args []string) {
		var blk struct {
			Number       uint64 `json:"number"`
			Hash         string `json:"hash"`
			Transactions []struct {
				TxHash       string `json:"tx_hash"`
				Status       string `json:"status"`
				ErrorMessage string `json:"error_message"`
			} `json:"transactions"`
		}

		if err := call(http.MethodPost, fmt.Sprintf("%s/v1/blocks/mine", nodeURL), nil, &blk); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("block %d %s\n", blk.Number, blk.Hash)
		for _, tx := range blk.Transactions {
			fmt.Printf("  %s %s %s\n", tx.TxHash, tx.Status, tx.ErrorMessage)
		}
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
}
