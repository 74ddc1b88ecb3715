package execution_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/execution"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func newAccount(t *testing.T) (*ecdsa.PrivateKey, crypto.Address) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key, crypto.FromPublicKey(&key.PublicKey)
}

func signTx(t *testing.T, tx database.Transaction, key *ecdsa.PrivateKey) database.Transaction {
	t.Helper()
	signed, err := tx.Sign(key)
	if err != nil {
		t.Fatalf("signing transaction: %v", err)
	}
	return signed
}

// Test_SimpleTransfer matches the literal scenario: Alice and Bob each
// start with 10^19, Alice sends Bob 10^9 at 21000 gas. The receipt
// succeeds, Bob's balance grows by exactly the value transferred, and
// Alice's nonce advances by one.
func Test_SimpleTransfer(t *testing.T) {
	aliceKey, alice := newAccount(t)
	_, bob := newAccount(t)

	st := state.New(kvstore.New())

	genesisBalance := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(19))
	st.SetBalance(alice, new(uint256.Int).Set(genesisBalance))
	st.SetBalance(bob, new(uint256.Int).Set(genesisBalance))

	baseFee := uint256.NewInt(2_000_000_000)
	maxPriority := uint256.NewInt(1_000_000_000)

	tx := database.Transaction{
		From:                 alice,
		To:                   bob,
		Value:                uint256.NewInt(1_000_000_000),
		Nonce:                0,
		GasLimit:             21000,
		MaxFeePerGas:         uint256.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: maxPriority,
	}
	tx = signTx(t, tx, aliceKey)

	if err := tx.Validate(); err != nil {
		t.Fatalf("transaction should validate: %v", err)
	}
	if err := execution.ValidateTransaction(st, tx, baseFee); err != nil {
		t.Fatalf("transaction should pass pre-execution checks: %v", err)
	}

	ctx := execution.Context{Number: 1, BaseFee: baseFee, Sequencer: crypto.Address{}}
	receipt, err := execution.ApplyTransaction(st, ctx, tx, 0, 0)
	if err != nil {
		t.Fatalf("applying transaction: %v", err)
	}

	if !receipt.Success {
		t.Fatal("expected receipt to report success")
	}
	if receipt.GasUsed != 21000 {
		t.Fatalf("got gas used %d, want 21000", receipt.GasUsed)
	}

	wantBob := new(uint256.Int).Add(genesisBalance, tx.Value)
	if got := st.Balance(bob); !got.Eq(wantBob) {
		t.Fatalf("bob balance = %s, want %s", got, wantBob)
	}

	price := execution.EffectivePrice(tx, baseFee)
	spent := new(uint256.Int).Mul(uint256.NewInt(receipt.GasUsed), price)
	spent.Add(spent, tx.Value)
	wantAlice := new(uint256.Int).Sub(genesisBalance, spent)
	if got := st.Balance(alice); !got.Eq(wantAlice) {
		t.Fatalf("alice balance = %s, want %s", got, wantAlice)
	}

	if got := st.Nonce(alice); got != 1 {
		t.Fatalf("alice nonce = %d, want 1", got)
	}
}

// Test_ContractDeploy matches the literal scenario: deploying init
// code that stores 5 at slot 0 and returns empty runtime code leaves a
// non-empty contract address in the receipt and the value at slot 0.
func Test_ContractDeploy(t *testing.T) {
	deployerKey, deployer := newAccount(t)

	st := state.New(kvstore.New())
	st.SetBalance(deployer, uint256.NewInt(1_000_000_000_000))

	baseFee := uint256.NewInt(1)
	initCode := []byte{
		0x60, 0x05, // PUSH1 5
		0x60, 0x00, // PUSH1 0
		0x55,       // SSTORE
		0x60, 0x00, // PUSH1 0
		0x60, 0x00, // PUSH1 0
		0xf3, // RETURN
	}

	tx := database.Transaction{
		From:                 deployer,
		To:                   crypto.ZeroAddress,
		Value:                uint256.NewInt(0),
		Nonce:                0,
		Data:                 initCode,
		GasLimit:             200000,
		MaxFeePerGas:         uint256.NewInt(10),
		MaxPriorityFeePerGas: uint256.NewInt(1),
	}
	tx = signTx(t, tx, deployerKey)

	ctx := execution.Context{Number: 1, BaseFee: baseFee, Sequencer: crypto.Address{}}
	receipt, err := execution.ApplyTransaction(st, ctx, tx, 0, 0)
	if err != nil {
		t.Fatalf("applying transaction: %v", err)
	}

	if !receipt.Success {
		t.Fatal("expected contract deployment to succeed")
	}
	if receipt.ContractAddress.IsZero() {
		t.Fatal("expected a non-zero contract address")
	}

	slotZeroBytes := uint256.NewInt(0).Bytes32()
	slot := crypto.Sum(slotZeroBytes[:])
	stored := st.StorageGet(receipt.ContractAddress, slot)
	got := new(uint256.Int).SetBytes(stored)
	if got.Uint64() != 5 {
		t.Fatalf("storage slot 0 = %s, want 5", got)
	}
}

func Test_NextBaseFeeUnchangedAtTarget(t *testing.T) {
	parent := database.Header{
		GasLimit: 1000,
		GasUsed:  500,
		BaseFee:  uint256.NewInt(1000),
	}
	got := execution.NextBaseFee(parent)
	if !got.Eq(parent.BaseFee) {
		t.Fatalf("base fee at target = %s, want unchanged %s", got, parent.BaseFee)
	}
}

func Test_NextBaseFeeBoundsOnFullBlock(t *testing.T) {
	parent := database.Header{
		GasLimit: 1000,
		GasUsed:  1000,
		BaseFee:  uint256.NewInt(800),
	}
	got := execution.NextBaseFee(parent)

	ceiling := new(uint256.Int).Mul(parent.BaseFee, uint256.NewInt(9))
	ceiling.Div(ceiling, uint256.NewInt(8))
	if got.Gt(ceiling) {
		t.Fatalf("base fee %s exceeds the 1/8 increase bound %s", got, ceiling)
	}
	if !got.Gt(parent.BaseFee) {
		t.Fatalf("base fee should rise above parent when the block is full, got %s", got)
	}
}

func Test_NextBaseFeeBoundsOnEmptyBlock(t *testing.T) {
	parent := database.Header{
		GasLimit: 1000,
		GasUsed:  0,
		BaseFee:  uint256.NewInt(800),
	}
	got := execution.NextBaseFee(parent)

	floor := new(uint256.Int).Mul(parent.BaseFee, uint256.NewInt(7))
	floor.Div(floor, uint256.NewInt(8))
	if got.Lt(floor) {
		t.Fatalf("base fee %s falls below the 1/8 decrease bound %s", got, floor)
	}
	if !got.Lt(parent.BaseFee) {
		t.Fatalf("base fee should fall below parent when the block is empty, got %s", got)
	}
}
