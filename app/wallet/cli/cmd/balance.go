package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type account struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	address := database.PublicKeyToAddress(privateKey.PublicKey)
	fmt.Println("For Account:", address)

	acct, err := balance(nodeURL, address)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(acct.Balance)
}

// balance asks the node for the account's current balance.
func balance(url string, address database.Address) (account, error) {
	var acct account
	if err := call(http.MethodGet, fmt.Sprintf("%s/v1/accounts/list/%s", url, address), nil, &acct); err != nil {
		return account{}, err
	}

	return acct, nil
}
