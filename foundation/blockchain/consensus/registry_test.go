package consensus_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

func addr(b byte) crypto.Address {
	var a crypto.Address
	a.Credential[len(a.Credential)-1] = b
	return a
}

func register(r *consensus.Registry, a crypto.Address, stake uint64) {
	r.Register(consensus.SequencerInfo{
		Address: a,
		Stake:   uint256.NewInt(stake),
		Status:  consensus.Active,
	})
}

// Test_LeaderFairness matches the literal scenario: three sequencers with
// stakes 100, 200, 300 lead in proportion to their stake over a large
// number of slots (§8 invariant 8: over K*T slots, sequencer i leads
// K*stake_i slots, plus or minus rounding).
func Test_LeaderFairness(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)

	a1, a2, a3 := addr(1), addr(2), addr(3)
	register(r, a1, 100)
	register(r, a2, 200)
	register(r, a3, 300)

	const slots = 600
	counts := map[crypto.Address]int{}
	for slot := uint64(0); slot < slots; slot++ {
		counts[r.Leader(slot)]++
	}

	want := map[crypto.Address]int{a1: 100, a2: 200, a3: 300}
	for a, w := range want {
		if counts[a] != w {
			t.Fatalf("sequencer %x led %d of %d slots, want %d", a.Credential, counts[a], slots, w)
		}
	}
}

func Test_LeaderEmptyActiveSet(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)
	if got := r.Leader(0); !got.IsZero() {
		t.Fatalf("leader of an empty active set = %v, want zero address", got)
	}
}

func Test_RegistryMinStakeExcludesLowStake(t *testing.T) {
	r := consensus.New(uint256.NewInt(500), 10)
	low, high := addr(1), addr(2)
	register(r, low, 100)
	register(r, high, 1000)

	active := r.ActiveSet()
	if len(active) != 1 || active[0] != high {
		t.Fatalf("active set = %v, want only the above-minimum sequencer", active)
	}
}

func Test_RegistryMaxActiveTruncatesToTopStakes(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 2)
	a1, a2, a3 := addr(1), addr(2), addr(3)
	register(r, a1, 100)
	register(r, a2, 300)
	register(r, a3, 200)

	active := r.ActiveSet()
	if len(active) != 2 {
		t.Fatalf("active set size = %d, want 2", len(active))
	}
	if active[0] != a2 || active[1] != a3 {
		t.Fatalf("active set = %v, want [a2, a3] by descending stake", active)
	}
}

func Test_StandbySequencerIsEligible(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)
	standby := addr(1)
	r.Register(consensus.SequencerInfo{
		Address: standby,
		Stake:   uint256.NewInt(100),
		Status:  consensus.Standby,
	})

	active := r.ActiveSet()
	if len(active) != 1 || active[0] != standby {
		t.Fatalf("active set = %v, want the standby sequencer included", active)
	}
}
