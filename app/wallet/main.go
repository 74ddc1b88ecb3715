// This program is the wallet CLI: key generation, address derivation,
// balance lookups, and transaction submission against a node's local
// store.
package main

import (
	"github.com/nonagon-chain/nonagon/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
