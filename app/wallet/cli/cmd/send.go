package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value to another account",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		tx, err := send(nodeURL, privateKey, to, amount)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%s %s\n", tx.TxHash, tx.Status)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

type submitted struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

// send submits the transfer to the node which signs it with the key.
func send(url string, privateKey *ecdsa.PrivateKey, to string, amount string) (submitted, error) {
	req := struct {
		From       string `json:"from"`
		To         string `json:"to"`
		Amount     string `json:"amount"`
		PrivateKey string `json:"private_key"`
	}{
		From:       string(database.PublicKeyToAddress(privateKey.PublicKey)),
		To:         to,
		Amount:     amount,
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey)),
	}

	var tx submitted
	if err := call(http.MethodPost, fmt.Sprintf("%s/v1/tx/submit", url), req, &tx); err != nil {
		return submitted{}, err
	}

	return tx, nil
}
