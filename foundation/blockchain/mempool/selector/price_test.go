package selector_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/mempool/selector"
)

func sender(b byte) crypto.Address {
	var a crypto.Address
	a.Credential[len(a.Credential)-1] = b
	return a
}

func tx(from crypto.Address, nonce uint64, gasLimit uint64, maxFee, maxPriority int64) database.Transaction {
	return database.Transaction{
		From:                 from,
		Value:                uint256.NewInt(0),
		Nonce:                nonce,
		GasLimit:             gasLimit,
		MaxFeePerGas:         uint256.NewInt(uint64(maxFee)),
		MaxPriorityFeePerGas: uint256.NewInt(uint64(maxPriority)),
	}
}

func Test_PriceSelectRespectsNonceOrder(t *testing.T) {
	fn, err := selector.Retrieve(selector.StrategyPrice)
	if err != nil {
		t.Fatalf("retrieving strategy: %v", err)
	}

	alice := sender(1)
	m := map[crypto.Address][]database.Transaction{
		alice: {
			tx(alice, 1, 21000, 100, 0), // higher price but wrong order
			tx(alice, 0, 21000, 10, 0),
		},
	}

	got := fn(m, 1_000_000, uint256.NewInt(1))
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
	if got[0].Nonce != 0 || got[1].Nonce != 1 {
		t.Fatalf("selection order = [%d,%d], want [0,1]", got[0].Nonce, got[1].Nonce)
	}
}

func Test_PriceSelectPicksHighestAcrossSenders(t *testing.T) {
	fn, err := selector.Retrieve(selector.StrategyPrice)
	if err != nil {
		t.Fatalf("retrieving strategy: %v", err)
	}

	alice, bob := sender(1), sender(2)
	m := map[crypto.Address][]database.Transaction{
		alice: {tx(alice, 0, 21000, 10, 0)},
		bob:   {tx(bob, 0, 21000, 100, 50)}, // effective 51 vs alice's 1
	}

	got := fn(m, 21000, uint256.NewInt(1))
	if len(got) != 1 {
		t.Fatalf("got %d transactions, want 1", len(got))
	}
	if got[0].From.Credential != bob.Credential {
		t.Fatalf("selected %x, want bob's transaction", got[0].From.Credential)
	}
}

func Test_PriceSelectSkipsBelowBaseFee(t *testing.T) {
	fn, err := selector.Retrieve(selector.StrategyPrice)
	if err != nil {
		t.Fatalf("retrieving strategy: %v", err)
	}

	alice := sender(1)
	m := map[crypto.Address][]database.Transaction{
		alice: {tx(alice, 0, 21000, 5, 0)},
	}

	got := fn(m, 1_000_000, uint256.NewInt(10))
	if len(got) != 0 {
		t.Fatalf("got %d transactions, want 0 (below base fee)", len(got))
	}
}

func Test_PriceSelectStopsAtGasBudget(t *testing.T) {
	fn, err := selector.Retrieve(selector.StrategyPrice)
	if err != nil {
		t.Fatalf("retrieving strategy: %v", err)
	}

	alice := sender(1)
	m := map[crypto.Address][]database.Transaction{
		alice: {
			tx(alice, 0, 21000, 10, 0),
			tx(alice, 1, 21000, 10, 0),
		},
	}

	got := fn(m, 21000, uint256.NewInt(1))
	if len(got) != 1 {
		t.Fatalf("got %d transactions, want 1 (budget exhausted)", len(got))
	}
}
