package mempool_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/holiman/uint256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/mempool"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

func newFundedAccount(t *testing.T, st *state.Manager) (*ecdsa.PrivateKey, crypto.Address) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	addr := crypto.FromPublicKey(&key.PublicKey)
	st.SetBalance(addr, new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(19)))
	return key, addr
}

func mkTx(t *testing.T, key *ecdsa.PrivateKey, from, to crypto.Address, nonce uint64, maxFee int64) database.Transaction {
	t.Helper()
	tx := database.Transaction{
		From:                 from,
		To:                   to,
		Value:                uint256.NewInt(1),
		Nonce:                nonce,
		GasLimit:             21000,
		MaxFeePerGas:         uint256.NewInt(uint64(maxFee)),
		MaxPriorityFeePerGas: uint256.NewInt(1),
	}
	signed, err := tx.Sign(key)
	if err != nil {
		t.Fatalf("signing transaction: %v", err)
	}
	return signed
}

// Test_ReplayRejection matches the literal scenario: resubmitting an
// already-pooled transaction verbatim returns AlreadyKnown; after the
// pool is cleared and the sender's nonce has since advanced on-chain,
// resubmitting the same transaction returns NonceTooLow.
func Test_ReplayRejection(t *testing.T) {
	st := state.New(kvstore.New())
	aliceKey, alice := newFundedAccount(t, st)
	_, bob := newFundedAccount(t, st)

	pool := mempool.New(0)
	baseFee := uint256.NewInt(1)

	tx := mkTx(t, aliceKey, alice, bob, 0, 2_000_000_000)

	if got := pool.Add(st, tx, baseFee); got != mempool.Admitted {
		t.Fatalf("first admission = %v, want Admitted", got)
	}
	if got := pool.Add(st, tx, baseFee); got != mempool.AlreadyKnown {
		t.Fatalf("replay = %v, want AlreadyKnown", got)
	}

	pool.Truncate()
	st.IncrementNonce(alice)

	if got := pool.Add(st, tx, baseFee); got != mempool.NonceTooLow {
		t.Fatalf("replay after truncation and nonce advance = %v, want NonceTooLow", got)
	}
}

// Test_ReplaceByFee matches the literal scenario: a 20% higher bid
// replaces, a 5% higher bid is underpriced.
func Test_ReplaceByFee(t *testing.T) {
	st := state.New(kvstore.New())
	aliceKey, alice := newFundedAccount(t, st)
	_, bob := newFundedAccount(t, st)

	pool := mempool.New(0)
	baseFee := uint256.NewInt(1)

	a := mkTx(t, aliceKey, alice, bob, 0, 1_000_000_000)
	if got := pool.Add(st, a, baseFee); got != mempool.Admitted {
		t.Fatalf("tx A = %v, want Admitted", got)
	}

	b := mkTx(t, aliceKey, alice, bob, 0, 1_200_000_000)
	if got := pool.Add(st, b, baseFee); got != mempool.Replaced {
		t.Fatalf("tx B = %v, want Replaced", got)
	}

	c := mkTx(t, aliceKey, alice, bob, 0, 1_050_000_000)
	if got := pool.Add(st, c, baseFee); got != mempool.Underpriced {
		t.Fatalf("tx C = %v, want Underpriced", got)
	}
}

func Test_NonceTooHighRejectsGap(t *testing.T) {
	st := state.New(kvstore.New())
	aliceKey, alice := newFundedAccount(t, st)
	_, bob := newFundedAccount(t, st)

	pool := mempool.New(0)
	baseFee := uint256.NewInt(1)

	tx := mkTx(t, aliceKey, alice, bob, 5, 2_000_000_000)
	if got := pool.Add(st, tx, baseFee); got != mempool.NonceTooHigh {
		t.Fatalf("got %v, want NonceTooHigh", got)
	}
}

func Test_PoolFullRejectsNewSender(t *testing.T) {
	st := state.New(kvstore.New())
	aliceKey, alice := newFundedAccount(t, st)
	bobKey, bob := newFundedAccount(t, st)
	_, carol := newFundedAccount(t, st)

	pool := mempool.New(1)
	baseFee := uint256.NewInt(1)

	if got := pool.Add(st, mkTx(t, aliceKey, alice, carol, 0, 2_000_000_000), baseFee); got != mempool.Admitted {
		t.Fatalf("first tx = %v, want Admitted", got)
	}
	if got := pool.Add(st, mkTx(t, bobKey, bob, carol, 0, 2_000_000_000), baseFee); got != mempool.PoolFull {
		t.Fatalf("second tx = %v, want PoolFull", got)
	}
}

func Test_InsufficientFundsRejectsOverdraft(t *testing.T) {
	st := state.New(kvstore.New())
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	poor := crypto.FromPublicKey(&key.PublicKey)
	st.SetBalance(poor, uint256.NewInt(100))
	_, bob := newFundedAccount(t, st)

	pool := mempool.New(0)
	baseFee := uint256.NewInt(1)

	tx := mkTx(t, key, poor, bob, 0, 2_000_000_000)
	if got := pool.Add(st, tx, baseFee); got != mempool.InsufficientFunds {
		t.Fatalf("got %v, want InsufficientFunds", got)
	}
}

func Test_SelectForBlockRespectsGasBudget(t *testing.T) {
	st := state.New(kvstore.New())
	aliceKey, alice := newFundedAccount(t, st)
	bobKey, bob := newFundedAccount(t, st)
	_, carol := newFundedAccount(t, st)

	pool := mempool.New(0)
	baseFee := uint256.NewInt(1)

	// Effective price is min(max fee, base fee + priority 1): alice's max
	// fee of 1 caps her at 1, bob is priced at 2.
	pool.Add(st, mkTx(t, aliceKey, alice, carol, 0, 1), baseFee)
	pool.Add(st, mkTx(t, bobKey, bob, carol, 0, 3_000_000_000), baseFee)

	selected := pool.SelectForBlock(21000, baseFee)
	if len(selected) != 1 {
		t.Fatalf("got %d transactions, want 1 under a single-transaction gas budget", len(selected))
	}
	if selected[0].From.Credential != bob.Credential {
		t.Fatalf("selected sender %x, want bob (higher fee)", selected[0].From.Credential)
	}
}
