package producer_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/fastpath"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool"
	"github.com/nilotic/blockchain/foundation/blockchain/producer"
)

func newTestSetup(t *testing.T) (*ledger.Ledger, *producer.Producer) {
	mp, err := mempool.New()
	if err != nil {
		t.Fatalf("should be able to construct a mempool: %v", err)
	}

	g := genesis.Default()
	g.Difficulty = 1
	g.MinDifficulty = 1

	l := ledger.New(g, mp, nil)
	if err := l.Genesis(); err != nil {
		t.Fatalf("should be able to build genesis: %v", err)
	}

	fp := fastpath.New(g.InstantLimit, nil)
	p := producer.New(l, fp, g, nil)

	return l, p
}

func TestCalculateBlockRewardHalves(t *testing.T) {
	_, p := newTestSetup(t)

	if got := p.CalculateBlockReward(0); got != 100 {
		t.Fatalf("expected base reward 100, got %v", got)
	}

	if got := p.CalculateBlockReward(210_000); got != 50 {
		t.Fatalf("expected halved reward 50 at block 210000, got %v", got)
	}

	if got := p.CalculateBlockReward(420_000); got != 25 {
		t.Fatalf("expected reward 25 at block 420000, got %v", got)
	}
}

func TestMineBlockRequiresTransactions(t *testing.T) {
	_, p := newTestSetup(t)

	miner := database.AccountID("NIL" + "0123456789abcdef0123456789abcdef01")

	if _, err := p.MineBlock(context.Background(), miner); err != producer.ErrNoTransactions {
		t.Fatalf("expected ErrNoTransactions, got %v", err)
	}
}

func TestMineBlockAppendsToLedger(t *testing.T) {
	l, p := newTestSetup(t)

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("should be able to generate a private key: %v", err)
	}

	from := database.PublicKeyToAccountID(pk.PublicKey)

	l.Lock()
	l.ApplyTransaction(database.NewBlockTx(database.SignCoinbase(from, 1000)))
	l.Unlock()

	to := database.AccountID("NIL" + "abcdef0123456789abcdef0123456789ab")
	tx, err := database.NewTx(to, 500, 5, false, nil)
	if err != nil {
		t.Fatalf("should be able to construct a transaction: %v", err)
	}

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("should be able to sign transaction: %v", err)
	}

	if err := l.Mempool.Admit(database.NewBlockTx(signed), l.GetBalance(from)); err != nil {
		t.Fatalf("should be able to admit a valid transaction: %v", err)
	}

	miner := database.AccountID("NIL" + "0123456789abcdef0123456789abcdef01")

	block, err := p.MineBlock(context.Background(), miner)
	if err != nil {
		t.Fatalf("should be able to mine a block: %v", err)
	}

	if block.Header.Number != 1 {
		t.Fatalf("expected block number 1, got %d", block.Header.Number)
	}

	if l.ChainHeight() != 2 {
		t.Fatalf("expected chain height 2 after mining, got %d", l.ChainHeight())
	}

	if l.Mempool.Count() != 0 {
		t.Fatalf("expected mempool drained after mining, got %d", l.Mempool.Count())
	}
}
