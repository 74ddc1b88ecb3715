package cmd

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	chaincrypto "github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

var (
	to       string
	value    uint64
	maxFee   uint64
	tip      uint64
	gasLimit uint64
	data     []byte
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64Var(&maxFee, "max-fee", 0, "Max fee per unit of gas.")
	sendCmd.Flags().Uint64VarP(&tip, "tip", "c", 0, "Max priority fee per unit of gas.")
	sendCmd.Flags().Uint64VarP(&gasLimit, "gas-limit", "g", 21000, "Gas limit for the transaction.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "D", nil, "Data to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	toAddr, err := chaincrypto.ParseAddress(to)
	if err != nil {
		log.Fatal(err)
	}

	n, err := openNode()
	if err != nil {
		log.Fatal(err)
	}
	defer n.Close()

	from := chaincrypto.FromPublicKey(&privateKey.PublicKey)

	tx := database.Transaction{
		From:                 from,
		To:                   toAddr,
		Value:                uint256.NewInt(value),
		Nonce:                n.GetNonce(from),
		Data:                 data,
		GasLimit:             gasLimit,
		MaxFeePerGas:         uint256.NewInt(maxFee),
		MaxPriorityFeePerGas: uint256.NewInt(tip),
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	hash, err := n.SubmitTransaction(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("submitted:", hash)
}
