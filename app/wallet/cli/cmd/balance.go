package cmd

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	chaincrypto "github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

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

	addr := chaincrypto.FromPublicKey(&privateKey.PublicKey)
	fmt.Println("For Account:", addr.String())

	n, err := openNode()
	if err != nil {
		log.Fatal(err)
	}
	defer n.Close()

	fmt.Println(n.GetBalance(addr))
}
