package genesis_test

import (
	"crypto/ecdsa"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/genesis"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

func newAddress(t *testing.T) crypto.Address {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return crypto.FromPublicKey(&key.PublicKey)
}

func newKeyAndAddress(t *testing.T) (*ecdsa.PrivateKey, crypto.Address) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key, crypto.FromPublicKey(&key.PublicKey)
}

func Test_LoadParsesGenesisFile(t *testing.T) {
	alice := newAddress(t)
	_, bob := newKeyAndAddress(t)

	g := genesis.Genesis{
		ChainID:   7,
		GasLimit:  30_000_000,
		BaseFee:   "1000000000",
		MinStake:  "500",
		MaxActive: 3,
		Balances: map[string]string{
			alice.String(): "1000000000000000000",
		},
		Sequencers: []genesis.Sequencer{
			{Address: bob.String(), PublicKey: "bob-key", Stake: "1000"},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	content, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.ChainID != 7 || got.GasLimit != 30_000_000 || got.MaxActive != 3 {
		t.Fatalf("got %+v, want matching scalar fields", got)
	}

	baseFee, err := got.BaseFeeInt()
	if err != nil {
		t.Fatalf("BaseFeeInt: %v", err)
	}
	if !baseFee.Eq(uint256.NewInt(1_000_000_000)) {
		t.Fatalf("BaseFeeInt = %s, want 1000000000", baseFee)
	}

	minStake, err := got.MinStakeInt()
	if err != nil {
		t.Fatalf("MinStakeInt: %v", err)
	}
	if !minStake.Eq(uint256.NewInt(500)) {
		t.Fatalf("MinStakeInt = %s, want 500", minStake)
	}
}

func Test_ApplySeedsBalancesAndSequencers(t *testing.T) {
	alice := newAddress(t)
	_, bob := newKeyAndAddress(t)

	g := genesis.Genesis{
		Balances: map[string]string{
			alice.String(): "42",
		},
		Sequencers: []genesis.Sequencer{
			{Address: bob.String(), PublicKey: "bob-key", Stake: "1000"},
		},
	}

	st := state.New(kvstore.New())
	registry := consensus.New(uint256.NewInt(1), 10)

	if err := g.Apply(st, registry); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !st.Balance(alice).Eq(uint256.NewInt(42)) {
		t.Fatalf("alice balance = %s, want 42", st.Balance(alice))
	}

	info, ok := registry.Get(bob)
	if !ok {
		t.Fatalf("bob not registered")
	}
	if !info.Stake.Eq(uint256.NewInt(1000)) {
		t.Fatalf("bob stake = %s, want 1000", info.Stake)
	}
}

func Test_ApplyRejectsMalformedAddress(t *testing.T) {
	g := genesis.Genesis{
		Balances: map[string]string{
			"not-an-address": "1",
		},
	}

	st := state.New(kvstore.New())
	registry := consensus.New(uint256.NewInt(1), 10)

	if err := g.Apply(st, registry); err == nil {
		t.Fatalf("Apply with malformed address, want error")
	}
}
