package consensus

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Leader returns the sequencer assigned to produce the block at slot (§4.5):
// let T = sum of stake over the active set (1 if that sum is zero);
// r = slot mod T; walk the active set in its deterministic order,
// accumulating stake, and return the first member whose running total
// strictly exceeds r. Each sequencer's slot share is proportional to its
// stake. An empty active set yields the zero address.
func (r *Registry) Leader(slot uint64) crypto.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.active) == 0 {
		return crypto.Address{}
	}

	total := new(uint256.Int)
	for _, stake := range r.activeStake {
		total.Add(total, stake)
	}
	if total.IsZero() {
		total.SetUint64(1)
	}

	slotWord := new(uint256.Int).SetUint64(slot)
	rem := new(uint256.Int).Mod(slotWord, total)

	running := new(uint256.Int)
	for i, addr := range r.active {
		running.Add(running, r.activeStake[i])
		if running.Gt(rem) {
			return addr
		}
	}

	return r.active[len(r.active)-1]
}
