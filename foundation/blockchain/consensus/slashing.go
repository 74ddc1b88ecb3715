package consensus

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Evidence is one slashing accusation against a sequencer (§4.5).
type Evidence struct {
	Type        string
	Sequencer   crypto.Address
	BlockNumber uint64
	Data        []byte
	Amount      *uint256.Int
}

// ReportEvidence enqueues evidence against its subject and immediately
// moves the subject to Slashed, which drops it from the active set on the
// next recomputation; the staked amount itself is only decremented at the
// next epoch boundary (ApplyEpoch), once queued evidence is tallied.
func (r *Registry) ReportEvidence(ev Evidence) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pendingSlash = append(r.pendingSlash, ev)

	if info, ok := r.sequencers[ev.Sequencer]; ok {
		info.Status = Slashed
	}
	r.recompute()
}

// RequestExit marks a sequencer as exiting as of slot; it is removed from
// the registry once exitSlot+unbondingWindow has elapsed (ApplyEpoch).
func (r *Registry) RequestExit(addr crypto.Address, slot uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.sequencers[addr]; ok {
		info.Status = Exiting
		info.ExitRequested = slot
	}
	r.recompute()
}

// ApplyEpoch runs the epoch-boundary bookkeeping (§4.5): staked amounts
// are decremented by their sequencer's queued slash amounts (saturating
// at zero), sequencers that requested exit more than unbondingWindow
// slots before currentSlot are removed entirely, the slash queue is
// cleared, and the active set is recomputed.
func (r *Registry) ApplyEpoch(currentSlot, unbondingWindow uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slashTotals := make(map[crypto.Address]*uint256.Int)
	for _, ev := range r.pendingSlash {
		total, ok := slashTotals[ev.Sequencer]
		if !ok {
			total = new(uint256.Int)
			slashTotals[ev.Sequencer] = total
		}
		total.Add(total, ev.Amount)
	}
	r.pendingSlash = nil

	for addr, amount := range slashTotals {
		info, ok := r.sequencers[addr]
		if !ok {
			continue
		}
		if info.Stake.Lt(amount) {
			info.Stake = new(uint256.Int)
		} else {
			info.Stake = new(uint256.Int).Sub(info.Stake, amount)
		}
	}

	for addr, info := range r.sequencers {
		if info.Status == Exiting && currentSlot > info.ExitRequested+unbondingWindow {
			delete(r.sequencers, addr)
		}
	}

	r.recompute()
}
