package ledger_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool"
)

func newLedger(t *testing.T) *ledger.Ledger {
	mp, err := mempool.New()
	if err != nil {
		t.Fatalf("should be able to construct a mempool: %v", err)
	}

	l := ledger.New(genesis.Default(), mp, nil)
	if err := l.Genesis(); err != nil {
		t.Fatalf("should be able to build the genesis block: %v", err)
	}

	return l
}

func TestGenesis(t *testing.T) {
	l := newLedger(t)

	if l.ChainHeight() != 1 {
		t.Fatalf("expected chain height 1 after genesis, got %d", l.ChainHeight())
	}

	if got := l.GetBalance(genesis.GenesisAddress); got != genesis.GenesisSupply {
		t.Fatalf("expected genesis balance %v, got %v", genesis.GenesisSupply, got)
	}
}

func TestApplyTransactionDebitsAndCredits(t *testing.T) {
	l := newLedger(t)

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("should be able to generate a private key: %v", err)
	}

	from := database.PublicKeyToAccountID(pk.PublicKey)
	to := database.AccountID("NIL" + "0123456789abcdef0123456789abcdef01")

	l.Lock()
	l.ApplyTransaction(database.NewBlockTx(database.SignCoinbase(from, 100)))
	l.Unlock()

	if got := l.GetBalance(from); got != 100 {
		t.Fatalf("expected sender funded to 100, got %v", got)
	}

	tx, err := database.NewTx(to, 40, 1, false, nil)
	if err != nil {
		t.Fatalf("should be able to construct a transaction: %v", err)
	}

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("should be able to sign transaction: %v", err)
	}

	l.Lock()
	err = l.ApplyTransaction(database.NewBlockTx(signed))
	l.Unlock()
	if err != nil {
		t.Fatalf("should be able to apply a funded transaction: %v", err)
	}

	if got := l.GetBalance(from); got != 60 {
		t.Fatalf("expected sender balance 60, got %v", got)
	}

	if got := l.GetBalance(to); got != 40 {
		t.Fatalf("expected recipient balance 40, got %v", got)
	}
}

func TestStakeMovesBalance(t *testing.T) {
	l := newLedger(t)

	addr := database.AccountID(genesis.GenesisAddress)

	if err := l.Stake(addr, 100); err != nil {
		t.Fatalf("should be able to stake from a funded balance: %v", err)
	}

	if got := l.GetStake(addr); got != 100 {
		t.Fatalf("expected stake 100, got %v", got)
	}

	if got := l.GetBalance(addr); got != genesis.GenesisSupply-100 {
		t.Fatalf("expected balance reduced by staked amount, got %v", got)
	}

	if err := l.Stake(addr, 1_000_000); err == nil {
		t.Fatalf("expected staking more than the balance to fail")
	}
}

func TestIsChainValidDetectsBrokenLinkage(t *testing.T) {
	l := newLedger(t)

	if err := l.IsChainValid(); err != nil {
		t.Fatalf("freshly built genesis chain should validate: %v", err)
	}

	mp, err := mempool.New()
	if err != nil {
		t.Fatalf("should be able to construct a mempool: %v", err)
	}

	broken := ledger.New(genesis.Default(), mp, nil)
	tampered := database.Block{Header: database.BlockHeader{Number: 1, PrevBlockHash: "not-the-genesis-hash"}}
	chain := []database.Block{l.LatestBlock(), tampered}
	if err := broken.RestoreChain(chain, map[database.AccountID]float64{}, map[database.AccountID]float64{}); err != nil {
		t.Fatalf("should be able to restore a chain: %v", err)
	}

	if err := broken.IsChainValid(); !errors.Is(err, ledger.ErrChainInvalid) {
		t.Fatalf("expected ErrChainInvalid for a block whose previous_hash does not match, got %v", err)
	}
}
