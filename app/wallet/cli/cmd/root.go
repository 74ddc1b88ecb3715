// Package cmd contains wallet app
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonagon-chain/nonagon/foundation/node"
)

var (
	accountName string
	accountPath string
	dataDir     string
	chainID     uint64
)

const (
	keyExtenstion = ".ecdsa"
)

func init() {
	rootCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Path to the private key.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "zblock/nonagon.db", "Path to the node's data directory.")
	rootCmd.PersistentFlags().Uint64Var(&chainID, "chain-id", 1337, "Chain id of the network being queried.")
}

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "You simple wallet",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, keyExtenstion) {
		accountName += keyExtenstion
	}

	return filepath.Join(accountPath, accountName)
}

// openNode opens the same on-disk store the node service writes to so the
// wallet can read balances and submit transactions in-process rather than
// over a JSON-RPC endpoint.
func openNode() (*node.Node, error) {
	return node.Open(node.Config{
		DataDir: dataDir,
		ChainID: chainID,
	})
}
