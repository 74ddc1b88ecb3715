// Package selector provides different transaction selecting algorithms
// for assembling the next block's transaction list out of a mempool.
package selector

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

// StrategyPrice is the only strategy currently implemented: descending
// effective price, respecting per-sender nonce order and a gas budget.
const StrategyPrice = "price"

var strategies = map[string]Func{
	StrategyPrice: priceSelect,
}

// Func selects transactions for the next block out of transactions,
// grouped by sender and already sorted by nonce ascending, under
// gasLimit and baseFee. All selector functions MUST respect nonce
// ordering: two transactions from the same sender are never selected out
// of order.
type Func func(transactions map[crypto.Address][]database.Transaction, gasLimit uint64, baseFee *uint256.Int) []database.Transaction

// Retrieve returns the named strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("selector: strategy %q does not exist", strategy)
	}
	return fn, nil
}

// byNonce sorts a sender's transactions into processing order.
type byNonce []database.Transaction

func (bn byNonce) Len() int           { return len(bn) }
func (bn byNonce) Less(i, j int) bool { return bn[i].Nonce < bn[j].Nonce }
func (bn byNonce) Swap(i, j int)      { bn[i], bn[j] = bn[j], bn[i] }

func sortByNonce(m map[crypto.Address][]database.Transaction) {
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byNonce(m[key]))
		}
	}
}
