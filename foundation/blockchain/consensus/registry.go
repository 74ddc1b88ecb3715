// Package consensus implements the consensus engine (component J): the
// sequencer registry, stake-weighted leader election, block validation,
// and slashing/epoch recomputation.
package consensus

import (
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Status is the closed set of states a sequencer record can be in (§4.5).
type Status int

const (
	// Active sequencers are eligible for the active set and may lead slots.
	Active Status = iota
	// Standby sequencers are eligible for the active set but are not
	// currently producing; they become Active implicitly by having enough
	// stake to make the top-M cut.
	Standby
	// Slashed sequencers are dropped from the active set on the next
	// recomputation.
	Slashed
	// Exiting sequencers are unwinding their stake and leave the registry
	// once their unbonding window elapses.
	Exiting
)

// String renders the status for logs and diagnostics.
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Standby:
		return "standby"
	case Slashed:
		return "slashed"
	case Exiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Metrics tracks a sequencer's block-production history, used for slashing
// evidence scoring and diagnostics.
type Metrics struct {
	BlocksProduced uint64
	BlocksMissed   uint64
	LastActiveSlot uint64
}

// SequencerInfo is one entry in the registry (§4.5).
type SequencerInfo struct {
	Address       crypto.Address
	PublicKey     []byte
	Stake         *uint256.Int
	Status        Status
	Metrics       Metrics
	ExitRequested uint64 // slot the exit was requested, 0 if not exiting
}

// Registry holds the sequencer set, protected by a single reader/writer
// lock exactly as the teacher's state and mempool types guard their maps.
type Registry struct {
	mu sync.RWMutex

	sequencers   map[crypto.Address]*SequencerInfo
	minStake     *uint256.Int
	maxActive    int
	pendingSlash []Evidence

	active      []crypto.Address
	activeStake []*uint256.Int
}

// New constructs an empty registry; the active set is the top maxActive
// sequencers by stake among {Active, Standby} entries with stake >=
// minStake.
func New(minStake *uint256.Int, maxActive int) *Registry {
	return &Registry{
		sequencers: make(map[crypto.Address]*SequencerInfo),
		minStake:   minStake,
		maxActive:  maxActive,
	}
}

// Register adds or replaces a sequencer record and recomputes the active set.
func (r *Registry) Register(info SequencerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := info
	r.sequencers[info.Address] = &stored
	r.recompute()
}

// Get returns a copy of the sequencer record for addr.
func (r *Registry) Get(addr crypto.Address) (SequencerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.sequencers[addr]
	if !ok {
		return SequencerInfo{}, false
	}
	return *info, true
}

// ActiveSet returns the addresses currently eligible to lead slots, in the
// deterministic order used by Leader.
func (r *Registry) ActiveSet() []crypto.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]crypto.Address, len(r.active))
	copy(out, r.active)
	return out
}

// recompute rebuilds the active set: every {Active, Standby} entry with
// stake >= minStake, sorted by descending stake (ties broken by address
// bytes for a total order), truncated to the top maxActive. Must be
// called with mu held.
func (r *Registry) recompute() {
	type candidate struct {
		addr  crypto.Address
		stake *uint256.Int
	}

	var candidates []candidate
	for addr, info := range r.sequencers {
		if info.Status != Active && info.Status != Standby {
			continue
		}
		if info.Stake.Lt(r.minStake) {
			continue
		}
		candidates = append(candidates, candidate{addr: addr, stake: info.Stake})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].stake.Eq(candidates[j].stake) {
			return candidates[i].stake.Gt(candidates[j].stake)
		}
		return lessAddress(candidates[i].addr, candidates[j].addr)
	})

	if len(candidates) > r.maxActive {
		candidates = candidates[:r.maxActive]
	}

	r.active = make([]crypto.Address, len(candidates))
	r.activeStake = make([]*uint256.Int, len(candidates))
	for i, c := range candidates {
		r.active[i] = c.addr
		r.activeStake[i] = c.stake
	}
}

func lessAddress(a, b crypto.Address) bool {
	for i := range a.Credential {
		if a.Credential[i] != b.Credential[i] {
			return a.Credential[i] < b.Credential[i]
		}
	}
	return false
}
