package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/fastpath"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool"
	"github.com/nilotic/blockchain/foundation/blockchain/porc"
	"github.com/nilotic/blockchain/foundation/blockchain/producer"
	"github.com/nilotic/blockchain/foundation/blockchain/supervisor"
)

func TestStartMineShutdownSnapshots(t *testing.T) {
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
	ps := porc.New(porc.DefaultConfig(), nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "blockchain_data.json")

	sup := supervisor.New(l, p, ps, g, path, nil)
	sup.Start()

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("should be able to generate a private key: %v", err)
	}
	from := database.PublicKeyToAccountID(pk.PublicKey)

	l.Lock()
	l.ApplyTransaction(database.NewBlockTx(database.SignCoinbase(from, 100)))
	l.Unlock()

	to := database.AccountID("NIL" + "0123456789abcdef0123456789abcdef01")
	tx, err := database.NewTx(to, 50, 1, false, nil)
	if err != nil {
		t.Fatalf("should be able to construct a transaction: %v", err)
	}
	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("should be able to sign transaction: %v", err)
	}
	if err := l.Mempool.Admit(database.NewBlockTx(signed), l.GetBalance(from)); err != nil {
		t.Fatalf("should be able to admit a transaction: %v", err)
	}

	miner := database.AccountID("NIL" + "abcdef0123456789abcdef0123456789ab")
	if err := sup.MineOnce(context.Background(), miner); err != nil {
		t.Fatalf("should be able to mine a block: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	sup.Shutdown()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected a snapshot file to exist after shutdown: %v", err)
	}
}
