package selector

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

// candidate is one sender's next unselected transaction.
type candidate struct {
	sender crypto.Address
	index  int
	price  *uint256.Int
}

// priceSelect implements the block-selection algorithm: pop the
// candidate with the highest effective price, skip it permanently if its
// price is below baseFee or its gas does not fit the remaining budget
// (nonce order forbids reordering around a stuck transaction), otherwise
// select it and advance that sender to its next nonce. Continue until the
// budget is exhausted or every sender's queue is drained.
var priceSelect Func = func(m map[crypto.Address][]database.Transaction, gasLimit uint64, baseFee *uint256.Int) []database.Transaction {
	sortByNonce(m)

	candidates := make([]candidate, 0, len(m))
	for sender, txs := range m {
		if len(txs) == 0 {
			continue
		}
		price := effectivePrice(txs[0], baseFee)
		candidates = append(candidates, candidate{sender: sender, index: 0, price: price})
	}

	var selected []database.Transaction
	remaining := gasLimit

	for len(candidates) > 0 {
		best := 0
		for i := 1; i < len(candidates); i++ {
			if candidates[i].price.Gt(candidates[best].price) {
				best = i
			}
		}

		c := candidates[best]
		tx := m[c.sender][c.index]

		switch {
		case c.price.Lt(baseFee):
			candidates = dropCandidate(candidates, best)
		case tx.GasLimit > remaining:
			candidates = dropCandidate(candidates, best)
		default:
			selected = append(selected, tx)
			remaining -= tx.GasLimit

			next := c.index + 1
			if next < len(m[c.sender]) {
				candidates[best] = candidate{
					sender: c.sender,
					index:  next,
					price:  effectivePrice(m[c.sender][next], baseFee),
				}
			} else {
				candidates = dropCandidate(candidates, best)
			}
		}
	}

	return selected
}

func dropCandidate(candidates []candidate, i int) []candidate {
	last := len(candidates) - 1
	candidates[i] = candidates[last]
	return candidates[:last]
}

func effectivePrice(tx database.Transaction, baseFee *uint256.Int) *uint256.Int {
	priority := new(uint256.Int).Add(baseFee, tx.MaxPriorityFeePerGas)
	if tx.MaxFeePerGas.Lt(priority) {
		return new(uint256.Int).Set(tx.MaxFeePerGas)
	}
	return priority
}
