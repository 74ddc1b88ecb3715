package state_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

func addr(b byte) crypto.Address {
	var a crypto.Address
	a.Credential[crypto.CredentialSize-1] = b
	return a
}

func Test_BalanceNonceRoundTrip(t *testing.T) {
	m := state.New(kvstore.New())
	alice := addr(0x01)

	m.AddBalance(alice, uint256.NewInt(100))
	m.IncrementNonce(alice)
	m.Commit()

	if got := m.Balance(alice).Uint64(); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}
	if got := m.Nonce(alice); got != 1 {
		t.Fatalf("nonce = %d, want 1", got)
	}
}

func Test_SnapshotRevertEquivalence(t *testing.T) {
	m := state.New(kvstore.New())
	alice, bob := addr(0x01), addr(0x02)

	m.AddBalance(alice, uint256.NewInt(1000))
	baseRoot := m.Commit()
	s0 := m.Snapshot()

	m.SubBalance(alice, uint256.NewInt(300))
	m.AddBalance(bob, uint256.NewInt(300))
	m.IncrementNonce(alice)
	m.StorageSet(bob, crypto.Sum([]byte("slot0")), []byte{1, 2, 3})

	m.Revert(s0)
	revertedRoot := m.Commit()

	if revertedRoot != baseRoot {
		t.Fatalf("root after revert = %s, want %s", revertedRoot, baseRoot)
	}
	if got := m.Balance(alice).Uint64(); got != 1000 {
		t.Fatalf("alice balance after revert = %d, want 1000", got)
	}
	if got := m.Balance(bob).Uint64(); got != 0 {
		t.Fatalf("bob balance after revert = %d, want 0", got)
	}
	if got := m.Nonce(alice); got != 0 {
		t.Fatalf("alice nonce after revert = %d, want 0", got)
	}
	if v := m.StorageGet(bob, crypto.Sum([]byte("slot0"))); v != nil {
		t.Fatalf("storage write was not reverted: %v", v)
	}
}

func Test_StorageRootChangesOnCommit(t *testing.T) {
	m := state.New(kvstore.New())
	contract := addr(0x03)

	m.SetCode(contract, []byte{0x60, 0x00})
	m.Commit()
	before := m.GetAccount(contract).StorageRoot

	m.StorageSet(contract, crypto.Sum([]byte("slot0")), []byte{0x05})
	m.Commit()
	after := m.GetAccount(contract).StorageRoot

	if before == after {
		t.Fatal("expected storage root to change after SSTORE + commit")
	}
}

func Test_CodeIsContentAddressedAndShared(t *testing.T) {
	m := state.New(kvstore.New())
	a, b := addr(0x04), addr(0x05)
	code := []byte{0x60, 0x05, 0x60, 0x00, 0x55}

	m.SetCode(a, code)
	m.SetCode(b, code)
	m.Commit()

	if m.CodeHash(a) != m.CodeHash(b) {
		t.Fatal("expected identical code to share a code hash")
	}

	got, ok := m.Code(m.CodeHash(a))
	if !ok {
		t.Fatal("expected code blob to be retrievable")
	}
	if string(got) != string(code) {
		t.Fatalf("got %x, want %x", got, code)
	}
}
