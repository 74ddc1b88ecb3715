package node_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	chaincrypto "github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/node"
)

func writeGenesis(t *testing.T, alice, bob chaincrypto.Address) string {
	t.Helper()

	doc := map[string]any{
		"chain_id":   1337,
		"gas_limit":  30_000_000,
		"base_fee":   "1000000000",
		"min_stake":  "0",
		"max_active": 1,
		"balances": map[string]string{
			alice.String(): "1000000000000000000",
			bob.String():   "0",
		},
		"sequencers": []any{},
	}

	content, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshaling genesis: %v", err)
	}

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing genesis: %v", err)
	}
	return path
}

func openTestNode(t *testing.T, alice, bob chaincrypto.Address) *node.Node {
	t.Helper()

	n, err := node.Open(node.Config{
		GenesisPath:    writeGenesis(t, alice, bob),
		ChainID:        1337,
		GasLimit:       30_000_000,
		MinStake:       uint256.NewInt(0),
		MaxActive:      1,
		MempoolMaxSize: 16,
	})
	if err != nil {
		t.Fatalf("opening node: %v", err)
	}
	t.Cleanup(func() { n.Close() })
	return n
}

func Test_OpenSeedsGenesisBalances(t *testing.T) {
	aliceKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	alice := chaincrypto.FromPublicKey(&aliceKey.PublicKey)

	bobKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	bob := chaincrypto.FromPublicKey(&bobKey.PublicKey)

	n := openTestNode(t, alice, bob)

	want, err := uint256.FromDecimal("1000000000000000000")
	if err != nil {
		t.Fatalf("parsing expected balance: %v", err)
	}
	if got := n.GetBalance(alice); got.Cmp(want) != 0 {
		t.Fatalf("balance = %s, want %s", got, want)
	}
	if got := n.GetNonce(alice); got != 0 {
		t.Fatalf("nonce = %d, want 0", got)
	}
}

func Test_SubmitTransactionAdmitsToPool(t *testing.T) {
	aliceKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	alice := chaincrypto.FromPublicKey(&aliceKey.PublicKey)

	bobKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	bob := chaincrypto.FromPublicKey(&bobKey.PublicKey)

	n := openTestNode(t, alice, bob)

	tx := database.Transaction{
		From:                 alice,
		To:                   bob,
		Value:                uint256.NewInt(1),
		Nonce:                0,
		GasLimit:             21000,
		MaxFeePerGas:         uint256.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: uint256.NewInt(1),
	}
	signed, err := tx.Sign(aliceKey)
	if err != nil {
		t.Fatalf("signing transaction: %v", err)
	}

	hash, err := n.SubmitTransaction(signed)
	if err != nil {
		t.Fatalf("submitting transaction: %v", err)
	}
	if hash != signed.Hash() {
		t.Fatalf("returned hash does not match transaction hash")
	}

	if _, err := n.SubmitTransaction(signed); err == nil {
		t.Fatalf("expected resubmitting the same transaction to be rejected")
	}
}

func Test_SubmitTransactionRejectsBadSignature(t *testing.T) {
	aliceKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	alice := chaincrypto.FromPublicKey(&aliceKey.PublicKey)

	bobKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	bob := chaincrypto.FromPublicKey(&bobKey.PublicKey)

	n := openTestNode(t, alice, bob)

	tx := database.Transaction{
		From:                 alice,
		To:                   bob,
		Value:                uint256.NewInt(1),
		Nonce:                0,
		GasLimit:             21000,
		MaxFeePerGas:         uint256.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: uint256.NewInt(1),
	}

	if _, err := n.SubmitTransaction(tx); err == nil {
		t.Fatalf("expected an unsigned transaction to be rejected")
	}
}

func Test_ActiveSequencersEmptyByDefault(t *testing.T) {
	aliceKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	alice := chaincrypto.FromPublicKey(&aliceKey.PublicKey)

	bobKey, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	bob := chaincrypto.FromPublicKey(&bobKey.PublicKey)

	n := openTestNode(t, alice, bob)

	if got := n.ActiveSequencers(); len(got) != 0 {
		t.Fatalf("active sequencers = %v, want none seeded", got)
	}
}
