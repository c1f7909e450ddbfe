package selector_test

import (
	"testing"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool/selector"
)

func tx(fee float64, ts int64) database.BlockTx {
	return database.BlockTx{
		SignedTx: database.SignedTx{
			Tx: database.Tx{Fee: fee, TimeStamp: ts},
		},
	}
}

func TestFeePrioritySelect(t *testing.T) {
	fn, err := selector.Retrieve(selector.StrategyFeePriority)
	if err != nil {
		t.Fatalf("should be able to retrieve the fee-priority strategy: %v", err)
	}

	txs := []database.BlockTx{
		tx(5, 3),
		tx(10, 1),
		tx(10, 2),
		tx(1, 0),
	}

	got := fn(txs, -1)
	if len(got) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(got))
	}

	if got[0].Fee != 10 || got[0].TimeStamp != 1 {
		t.Fatalf("expected highest fee with earliest timestamp first, got fee=%v ts=%v", got[0].Fee, got[0].TimeStamp)
	}

	if got[1].Fee != 10 || got[1].TimeStamp != 2 {
		t.Fatalf("expected fee tie broken by timestamp ascending, got fee=%v ts=%v", got[1].Fee, got[1].TimeStamp)
	}

	if got[3].Fee != 1 {
		t.Fatalf("expected lowest fee last, got %v", got[3].Fee)
	}

	truncated := fn(txs, 2)
	if len(truncated) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(truncated))
	}
}

func TestRetrieveUnknownStrategy(t *testing.T) {
	if _, err := selector.Retrieve("bogus"); err == nil {
		t.Fatalf("expected an error for an unknown strategy")
	}
}
