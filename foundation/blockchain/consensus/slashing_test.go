package consensus_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
)

func Test_ReportEvidenceDropsFromActiveSet(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)
	culprit := addr(1)
	register(r, culprit, 100)
	register(r, addr(2), 100)

	r.ReportEvidence(consensus.Evidence{
		Sequencer:   culprit,
		BlockNumber: 5,
		Amount:      uint256.NewInt(50),
	})

	info, ok := r.Get(culprit)
	if !ok || info.Status != consensus.Slashed {
		t.Fatalf("culprit status = %v, want Slashed", info.Status)
	}

	for _, a := range r.ActiveSet() {
		if a == culprit {
			t.Fatal("slashed sequencer should be dropped from the active set immediately")
		}
	}
}

func Test_ApplyEpochDecrementsSlashedStake(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)
	culprit := addr(1)
	register(r, culprit, 100)

	r.ReportEvidence(consensus.Evidence{Sequencer: culprit, Amount: uint256.NewInt(30)})
	r.ReportEvidence(consensus.Evidence{Sequencer: culprit, Amount: uint256.NewInt(20)})

	r.ApplyEpoch(100, 10)

	info, ok := r.Get(culprit)
	if !ok {
		t.Fatal("culprit should still be present in the registry")
	}
	want := uint256.NewInt(50)
	if !info.Stake.Eq(want) {
		t.Fatalf("stake after epoch = %s, want %s", info.Stake, want)
	}
}

func Test_ApplyEpochSaturatesStakeAtZero(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)
	culprit := addr(1)
	register(r, culprit, 10)

	r.ReportEvidence(consensus.Evidence{Sequencer: culprit, Amount: uint256.NewInt(1000)})
	r.ApplyEpoch(1, 10)

	info, _ := r.Get(culprit)
	if !info.Stake.IsZero() {
		t.Fatalf("stake after over-slashing = %s, want 0", info.Stake)
	}
}

func Test_ApplyEpochRemovesExitedSequencerAfterUnbonding(t *testing.T) {
	r := consensus.New(uint256.NewInt(1), 10)
	leaver := addr(1)
	register(r, leaver, 100)

	r.RequestExit(leaver, 10)

	r.ApplyEpoch(15, 10) // within the unbonding window, still present
	if _, ok := r.Get(leaver); !ok {
		t.Fatal("sequencer should still be present before the unbonding window elapses")
	}

	r.ApplyEpoch(21, 10) // past exitSlot(10) + window(10)
	if _, ok := r.Get(leaver); ok {
		t.Fatal("sequencer should be removed once the unbonding window has elapsed")
	}
}
